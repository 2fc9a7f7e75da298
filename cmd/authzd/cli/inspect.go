package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/odyssey-erp/odyssey-authz/internal/access"
	"github.com/odyssey-erp/odyssey-authz/internal/rbac"
)

// InspectOptions defines available flags for the inspect command.
type InspectOptions struct {
	UserID     string
	Module     string
	Action     string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// InspectSummary describes the JSON response for inspect.
type InspectSummary struct {
	Profile  rbac.Profile     `json:"profile"`
	Decision *InspectDecision `json:"decision,omitempty"`
}

// InspectDecision reports a single module/action check.
type InspectDecision struct {
	Module        string       `json:"module"`
	Action        string       `json:"action"`
	Level         access.Level `json:"level"`
	RequiredLevel access.Level `json:"required_level"`
	Allowed       bool         `json:"allowed"`
}

// InspectCLI prints resolved permission profiles for operators.
type InspectCLI struct {
	service *rbac.Service
}

// NewInspectCLI constructs the helper around service.
func NewInspectCLI(service *rbac.Service) (*InspectCLI, error) {
	if service == nil {
		return nil, errors.New("inspect: service is required")
	}
	return &InspectCLI{service: service}, nil
}

// ParseInspectFlags reads inspect flags from args.
func ParseInspectFlags(args []string, stderr io.Writer) (InspectOptions, error) {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := InspectOptions{Stderr: stderr}
	fs.StringVar(&opts.UserID, "user", "", "user id to resolve")
	fs.StringVar(&opts.Module, "module", "", "module to check (requires -action)")
	fs.StringVar(&opts.Action, "action", "", "action to check (requires -module)")
	fs.BoolVar(&opts.JSONOutput, "json", true, "emit JSON")
	if err := fs.Parse(args); err != nil {
		return InspectOptions{}, err
	}
	return opts, nil
}

// InspectCommand resolves the user's profile and prints it. Exit codes: 0 on
// success (and allowed, when a check is requested), 1 on usage or store errors,
// 10 when the requested check is denied.
func (c *InspectCLI) InspectCommand(ctx context.Context, opts InspectOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	userID := strings.TrimSpace(opts.UserID)
	if userID == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "inspect: -user is required")
		return 1
	}
	module := strings.TrimSpace(opts.Module)
	action := strings.TrimSpace(opts.Action)
	if (module == "") != (action == "") {
		_, _ = fmt.Fprintln(opts.Stderr, "inspect: -module and -action must be given together")
		return 1
	}

	profile, err := c.service.ResolveProfile(ctx, userID)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "inspect: %v\n", err)
		return 1
	}

	summary := InspectSummary{Profile: profile}
	if module != "" {
		level := profile.Level(module)
		summary.Decision = &InspectDecision{
			Module:        module,
			Action:        action,
			Level:         level,
			RequiredLevel: access.MinimumLevelForAction(action),
			Allowed:       profile.IsSuperAdmin || access.HasPermissionForAction(level, action),
		}
	}

	if opts.JSONOutput {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "inspect: encode json: %v\n", err)
			return 1
		}
	} else {
		renderInspectHuman(opts.Stdout, summary)
	}
	if summary.Decision != nil && !summary.Decision.Allowed {
		return 10
	}
	return 0
}

func renderInspectHuman(w io.Writer, summary InspectSummary) {
	p := summary.Profile
	_, _ = fmt.Fprintf(w, "user:        %s\n", p.UserID)
	_, _ = fmt.Fprintf(w, "super admin: %t\n", p.IsSuperAdmin)
	_, _ = fmt.Fprintf(w, "effective:   %s\n", p.EffectiveLevel)
	modules := make([]string, 0, len(p.ModuleLevels))
	for module := range p.ModuleLevels {
		modules = append(modules, module)
	}
	sort.Strings(modules)
	for _, module := range modules {
		_, _ = fmt.Fprintf(w, "  %-20s %s\n", module, p.ModuleLevels[module])
	}
	if d := summary.Decision; d != nil {
		verdict := "DENY"
		if d.Allowed {
			verdict = "ALLOW"
		}
		_, _ = fmt.Fprintf(w, "%s %s:%s (level %s, requires %s)\n", verdict, d.Module, d.Action, d.Level, d.RequiredLevel)
	}
}
