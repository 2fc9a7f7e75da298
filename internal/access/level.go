// Package access defines the module permission levels, the action vocabulary each
// level grants, the legacy action tables and the settings sub-policy. Everything
// here is pure and safe for concurrent use.
package access

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Level is an ordinal, cumulative permission level within a module.
type Level int

const (
	// None grants nothing.
	None Level = iota
	// Read allows browsing records.
	Read
	// Write adds creating and editing records.
	Write
	// Full adds deleting, assigning and bulk operations.
	Full
	// Admin adds module configuration.
	Admin
	// SuperAdmin grants every action, including ones not yet catalogued.
	SuperAdmin
)

// ErrInvalidLevel reports a level outside None..SuperAdmin or an unknown level name.
var ErrInvalidLevel = errors.New("access: invalid level")

var levelNames = [...]string{
	None:       "none",
	Read:       "read",
	Write:      "write",
	Full:       "full",
	Admin:      "admin",
	SuperAdmin: "super_admin",
}

// Levels returns every level in ascending order.
func Levels() []Level {
	return []Level{None, Read, Write, Full, Admin, SuperAdmin}
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= None && l <= SuperAdmin
}

// String returns the canonical lower-case name of the level.
func (l Level) String() string {
	if !l.Valid() {
		return "level(" + strconv.Itoa(int(l)) + ")"
	}
	return levelNames[l]
}

// ParseLevel accepts a level name (case-insensitive) or its ordinal as a string.
func ParseLevel(raw string) (Level, error) {
	name := cases.Fold().String(strings.TrimSpace(raw))
	if name == "" {
		return None, fmt.Errorf("%w: empty", ErrInvalidLevel)
	}
	if n, err := strconv.Atoi(name); err == nil {
		lvl := Level(n)
		if !lvl.Valid() {
			return None, fmt.Errorf("%w: %d", ErrInvalidLevel, n)
		}
		return lvl, nil
	}
	switch name {
	case "superadmin", "super-admin":
		return SuperAdmin, nil
	case "no_access", "no-access":
		return None, nil
	}
	for i, candidate := range levelNames {
		if candidate == name {
			return Level(i), nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrInvalidLevel, raw)
}

// ParseNumber converts a JSON number to a level. Whole-number floats such as
// 2.0 or 2e0 are accepted.
func ParseNumber(n json.Number) (Level, error) {
	if i, err := n.Int64(); err == nil {
		return checkedLevel(float64(i), n)
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return None, fmt.Errorf("%w: %s", ErrInvalidLevel, n)
	}
	return checkedLevel(f, n)
}

func checkedLevel(f float64, n json.Number) (Level, error) {
	if f < float64(None) || f > float64(SuperAdmin) {
		return None, fmt.Errorf("%w: %s", ErrInvalidLevel, n)
	}
	return Level(f), nil
}

// MaxLevel returns the higher of a and b.
func MaxLevel(a, b Level) Level {
	if a > b {
		return a
	}
	return b
}

// MarshalJSON encodes the level as its ordinal.
func (l Level) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(l))), nil
}

// UnmarshalJSON accepts either the ordinal or the level name.
func (l *Level) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		parsed, err := ParseNumber(n)
		if err != nil {
			return err
		}
		*l = parsed
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidLevel, string(data))
	}
	parsed, err := ParseLevel(name)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
