package rbac

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/odyssey-erp/odyssey-authz/internal/access"
)

// decodeModuleLevels normalises a role's stored module levels. The returned bool is
// false when the role has no level configuration at all. Rows written by older
// releases hold the map as a JSON string, sometimes JSON-encoded twice.
func decodeModuleLevels(raw any) (map[string]access.Level, bool, error) {
	switch v := raw.(type) {
	case nil:
		return nil, false, nil
	case map[string]access.Level:
		out := make(map[string]access.Level, len(v))
		for module, lvl := range v {
			if !lvl.Valid() {
				return nil, false, fmt.Errorf("%w: module %q: %w", ErrMalformedModuleLevels, module, access.ErrInvalidLevel)
			}
			out[module] = lvl
		}
		return out, true, nil
	case map[string]int:
		out := make(map[string]access.Level, len(v))
		for module, n := range v {
			lvl := access.Level(n)
			if !lvl.Valid() {
				return nil, false, fmt.Errorf("%w: module %q: %w", ErrMalformedModuleLevels, module, access.ErrInvalidLevel)
			}
			out[module] = lvl
		}
		return out, true, nil
	case map[string]any:
		out := make(map[string]access.Level, len(v))
		for module, value := range v {
			lvl, err := levelFromValue(value)
			if err != nil {
				return nil, false, fmt.Errorf("%w: module %q: %w", ErrMalformedModuleLevels, module, err)
			}
			out[module] = lvl
		}
		return out, true, nil
	case string:
		return decodeSerializedLevels([]byte(v))
	case []byte:
		return decodeSerializedLevels(v)
	case json.RawMessage:
		return decodeSerializedLevels(v)
	default:
		return nil, false, fmt.Errorf("%w: unsupported type %T", ErrMalformedModuleLevels, raw)
	}
}

func decodeSerializedLevels(data []byte) (map[string]access.Level, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, false, nil
	}
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, false, fmt.Errorf("%w: %w", ErrMalformedModuleLevels, err)
		}
		return decodeSerializedLevels([]byte(inner))
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrMalformedModuleLevels, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false, fmt.Errorf("%w: trailing data", ErrMalformedModuleLevels)
	}
	levels := make(map[string]access.Level, len(values))
	for module, value := range values {
		lvl, err := levelFromValue(value)
		if err != nil {
			return nil, false, fmt.Errorf("%w: module %q: %w", ErrMalformedModuleLevels, module, err)
		}
		levels[module] = lvl
	}
	return levels, true, nil
}

func levelFromValue(value any) (access.Level, error) {
	switch v := value.(type) {
	case access.Level:
		if !v.Valid() {
			return access.None, access.ErrInvalidLevel
		}
		return v, nil
	case int:
		return levelFromValue(access.Level(v))
	case int64:
		return levelFromValue(access.Level(v))
	case float64:
		return access.ParseNumber(json.Number(strconv.FormatFloat(v, 'g', -1, 64)))
	case json.Number:
		return access.ParseNumber(v)
	case string:
		return access.ParseLevel(v)
	default:
		return access.None, fmt.Errorf("%w: unsupported value %T", access.ErrInvalidLevel, value)
	}
}
