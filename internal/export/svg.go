package export

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/engine"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
)

var ErrInvalidSize = errors.New("invalid export size")

const (
	DefaultWidth  = 1600
	DefaultHeight = 1000
	maxDimension  = 8192
)

// Options control an export. Hidden names render layers to leave out.
type Options struct {
	Width   float64
	Height  float64
	Padding float64
	Hidden  []string
}

func DefaultOptions() Options {
	return Options{Width: DefaultWidth, Height: DefaultHeight, Padding: 40}
}

// SVG renders data framed to fit the requested size.
func SVG(data document.CanvasData, opts Options) ([]byte, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width > maxDimension || opts.Height > maxDimension {
		return nil, fmt.Errorf("%gx%g: %w", opts.Width, opts.Height, ErrInvalidSize)
	}

	eo := engine.DefaultOptions()
	eo.ViewportSize = geom.Size{Width: opts.Width, Height: opts.Height}
	eo.FitPadding = opts.Padding
	e := engine.NewEngine(eo)
	if err := e.Restore(data); err != nil {
		return nil, fmt.Errorf("restore canvas: %w", err)
	}
	for _, name := range opts.Hidden {
		if err := e.SetLayerVisible(name, false); err != nil {
			return nil, err
		}
	}
	e.FitToContent()

	return encode(e.Render(), opts.Width, opts.Height), nil
}

func encode(commands []engine.DrawCommand, width, height float64) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		num(width), num(height), num(width), num(height))
	b.WriteByte('\n')
	b.WriteString(`<rect width="100%" height="100%" fill="#ffffff"/>`)
	b.WriteByte('\n')

	layer := ""
	for _, cmd := range commands {
		if cmd.Layer != layer {
			if layer != "" {
				b.WriteString("</g>\n")
			}
			layer = cmd.Layer
			fmt.Fprintf(&b, `<g class="layer-%s">`, html.EscapeString(layer))
			b.WriteByte('\n')
		}
		switch cmd.Op {
		case "path":
			writePath(&b, cmd)
		case "text":
			writeText(&b, cmd)
		}
	}
	if layer != "" {
		b.WriteString("</g>\n")
	}
	b.WriteString("</svg>\n")
	return b.Bytes()
}

func writePath(b *bytes.Buffer, cmd engine.DrawCommand) {
	d := engine.PathData(cmd.Path)
	if d == "" {
		return
	}
	fill := cmd.Fill
	if fill == "" {
		fill = "none"
	}
	fmt.Fprintf(b, `<path d="%s" fill="%s"`, d, html.EscapeString(fill))
	if cmd.Stroke != "" {
		fmt.Fprintf(b, ` stroke="%s" stroke-width="%s" vector-effect="non-scaling-stroke"`,
			html.EscapeString(cmd.Stroke), num(cmd.StrokeWidth))
	}
	if len(cmd.Dash) > 0 {
		parts := make([]string, len(cmd.Dash))
		for i, v := range cmd.Dash {
			parts[i] = num(v)
		}
		fmt.Fprintf(b, ` stroke-dasharray="%s"`, strings.Join(parts, " "))
	}
	writeTransform(b, cmd.Transform)
	if cmd.ObjectID != "" {
		fmt.Fprintf(b, ` data-id="%s"`, html.EscapeString(cmd.ObjectID))
	}
	b.WriteString("/>\n")
}

func writeText(b *bytes.Buffer, cmd engine.DrawCommand) {
	fmt.Fprintf(b, `<text x="%s" y="%s" font-family="sans-serif" font-size="12" text-anchor="middle"`,
		num(cmd.X), num(cmd.Y))
	writeTransform(b, cmd.Transform)
	fmt.Fprintf(b, ">%s</text>\n", html.EscapeString(cmd.Text))
}

func writeTransform(b *bytes.Buffer, m []float64) {
	if len(m) != 6 {
		return
	}
	parts := make([]string, 6)
	for i, v := range m {
		parts[i] = num(v)
	}
	fmt.Fprintf(b, ` transform="matrix(%s)"`, strings.Join(parts, " "))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
