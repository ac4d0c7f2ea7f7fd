// Package format writes command results to stdout.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Envelope is the shape of every command result: the payload under "data" and, when
// there is an obvious next step, the commands for it under "_hints".
type Envelope struct {
	Data  any      `json:"data"`
	Hints []string `json:"_hints,omitempty"`
}

// Hint returns e with h appended to its hints. Blank hints are dropped.
func (e Envelope) Hint(h ...string) Envelope {
	for _, s := range h {
		if strings.TrimSpace(s) != "" {
			e.Hints = append(e.Hints, s)
		}
	}
	return e
}

// Names lists the accepted output format names.
var Names = []string{"json", "yaml"}

// Write encodes v as json (the default, compact unless pretty) or yaml.
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "yaml", "yml":
		return WriteYAML(w, v)
	default:
		return fmt.Errorf("unknown format %q (expected %s)", format, strings.Join(Names, "|"))
	}
}

func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	// Story content is prose; keep <, > and & readable.
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
