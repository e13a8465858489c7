package diagram

import (
	"context"
	"fmt"
	"strings"
)

// Format selects a renderer.
type Format string

const (
	FormatASCII   Format = "ascii"
	FormatMermaid Format = "mermaid"
	FormatPNG     Format = "png"
	FormatSVG     Format = "svg"
)

// Formats lists every supported output format.
var Formats = []Format{FormatASCII, FormatMermaid, FormatPNG, FormatSVG}

// ParseFormat parses a format name; the empty string selects ASCII.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatASCII, nil
	}
	for _, f := range Formats {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("diagram: unknown format %q", s)
}

// ContentType is the MIME type of the rendered output.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatSVG:
		return "image/svg+xml"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Binary reports whether the format produces non-text output.
func (f Format) Binary() bool {
	return f == FormatPNG
}

// Render renders model in the given format.
func Render(ctx context.Context, model *Model, format Format) ([]byte, error) {
	switch format {
	case FormatASCII:
		return []byte(RenderASCII(model)), nil
	case FormatMermaid:
		return []byte(RenderMermaid(model)), nil
	case FormatPNG, FormatSVG:
		return RenderImage(ctx, model, format)
	default:
		return nil, fmt.Errorf("diagram: unknown format %q", format)
	}
}
