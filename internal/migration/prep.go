package migration

import (
	"encoding/json"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// PrepCommand is one legacy do/undo pair in normalized form. Decoding from
// JSON or YAML accepts both the do_cmd/undo_cmd keys and the older do/undo
// keys, and an absent or non-boolean elevated flag is normalized here so the
// conversion never has to check for missing keys.
type PrepCommand struct {
	Do       string
	Undo     string
	Elevated bool
}

// prepCommandWire is the permissive on-disk shape of a legacy pair.
type prepCommandWire struct {
	DoCmd    *string     `json:"do_cmd,omitempty" yaml:"do_cmd,omitempty"`
	UndoCmd  *string     `json:"undo_cmd,omitempty" yaml:"undo_cmd,omitempty"`
	Do       *string     `json:"do,omitempty" yaml:"do,omitempty"`
	Undo     *string     `json:"undo,omitempty" yaml:"undo,omitempty"`
	Elevated interface{} `json:"elevated,omitempty" yaml:"elevated,omitempty"`
}

func (w prepCommandWire) normalize() PrepCommand {
	return PrepCommand{
		Do:       firstString(w.DoCmd, w.Do),
		Undo:     firstString(w.UndoCmd, w.Undo),
		Elevated: truthy(w.Elevated),
	}
}

func firstString(candidates ...*string) string {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return ""
}

// truthy maps the loosely typed legacy elevated field onto a bool with the
// rules the legacy web UI applied: any non-empty string is true, including
// "false" and "0"; numbers are true unless zero or NaN; null is false.
func truthy(v interface{}) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		return b != ""
	case int:
		return b != 0
	case int64:
		return b != 0
	case uint64:
		return b != 0
	case float64:
		return b != 0 && !math.IsNaN(b)
	default:
		return true
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PrepCommand) UnmarshalJSON(data []byte) error {
	var w prepCommandWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode legacy prep command: %w", err)
	}
	*p = w.normalize()
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *PrepCommand) UnmarshalYAML(value *yaml.Node) error {
	var w prepCommandWire
	if err := value.Decode(&w); err != nil {
		return fmt.Errorf("decode legacy prep command: %w", err)
	}
	*p = w.normalize()
	return nil
}

// prepCommandOut is the canonical shape written back to disk.
type prepCommandOut struct {
	DoCmd    string `json:"do_cmd" yaml:"do_cmd"`
	UndoCmd  string `json:"undo_cmd" yaml:"undo_cmd"`
	Elevated bool   `json:"elevated" yaml:"elevated"`
}

// MarshalJSON implements json.Marshaler.
func (p PrepCommand) MarshalJSON() ([]byte, error) {
	return json.Marshal(prepCommandOut{DoCmd: p.Do, UndoCmd: p.Undo, Elevated: p.Elevated})
}

// MarshalYAML implements yaml.Marshaler.
func (p PrepCommand) MarshalYAML() (interface{}, error) {
	return prepCommandOut{DoCmd: p.Do, UndoCmd: p.Undo, Elevated: p.Elevated}, nil
}
