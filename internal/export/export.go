// Package export renders a story into shareable formats.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"storyloom/internal/model"
)

type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatDOT      Format = "dot"
	FormatHTML     Format = "html"
	FormatSVG      Format = "svg"
	FormatPNG      Format = "png"
)

// ErrNotImplemented is returned for declared formats that have no renderer yet.
var ErrNotImplemented = errors.New("export format not implemented")

func Formats() []Format {
	return []Format{FormatText, FormatMarkdown, FormatJSON, FormatCSV, FormatDOT, FormatHTML, FormatSVG, FormatPNG}
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "dot", "graphviz", "gv":
		return FormatDOT, nil
	case "html":
		return FormatHTML, nil
	case "svg":
		return FormatSVG, nil
	case "png":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

func (f Format) Ext() string {
	switch f {
	case FormatText:
		return ".txt"
	case FormatMarkdown:
		return ".md"
	case FormatDOT:
		return ".dot"
	default:
		return "." + string(f)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatDOT:
		return "text/vnd.graphviz; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

type Options struct {
	// Now stamps text and markdown exports; zero means time.Now().
	Now time.Time
	// LiveURL, when set, makes the HTML page subscribe to this event stream and patch
	// itself as the story changes.
	LiveURL string
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// Render produces doc in format f.
func Render(doc *model.Story, f Format, opt Options) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("export: no story")
	}
	switch f {
	case FormatText:
		return []byte(Text(doc, opt)), nil
	case FormatMarkdown:
		return []byte(Markdown(doc, opt)), nil
	case FormatJSON:
		b, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case FormatCSV:
		s, err := CSV(doc)
		return []byte(s), err
	case FormatDOT:
		return []byte(DOT(doc)), nil
	case FormatHTML:
		s, err := HTML(doc, opt)
		return []byte(s), err
	case FormatSVG, FormatPNG:
		return nil, fmt.Errorf("%s: %w", f, ErrNotImplemented)
	default:
		return nil, fmt.Errorf("unknown export format %q", f)
	}
}

// FileName derives a download name from the story title.
func FileName(doc *model.Story, f Format) string {
	base := "story"
	if doc != nil {
		if t := strings.TrimSpace(doc.Title); t != "" {
			base = strings.Map(func(r rune) rune {
				if strings.ContainsRune(`/\:*?"<>|`, r) {
					return '_'
				}
				return r
			}, t)
		}
	}
	return base + f.Ext()
}

// WriteFile writes b to path, refusing to replace an existing file unless overwrite.
func WriteFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}

func typeLabel(t model.NodeType) string {
	switch t {
	case model.NodeTypeMain:
		return "Main node"
	case model.NodeTypeBranch:
		return "Branch node"
	default:
		return string(t)
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
