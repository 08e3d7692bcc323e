/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"cvcanvas/internal/scene"
)

// SVG writes the page as a standalone SVG document. Fonts are referenced by
// family name and not embedded.
func SVG(w io.Writer, page Page, opt Options) error {
	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%g\" height=\"%g\" viewBox=\"0 0 %g %g\">\n",
		page.Width, page.Height, page.Width, page.Height)
	if page.Title != "" {
		wf("  <title>%s</title>\n", escText(page.Title))
	}
	if bg, ok := ParseColor(opt.background()); ok {
		wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"%s\"/>\n", page.Width, page.Height, hex(bg))
	}
	for _, it := range flatten(page.Root) {
		m := it.m
		wf("  <g transform=\"matrix(%g %g %g %g %g %g)\"", m.A, m.B, m.C, m.D, m.E, m.F)
		if op := it.n.Opacity(); op < 1 {
			wf(" opacity=\"%g\"", max(0, op))
		}
		wf(">\n")
		svgShape(wf, it.n)
		wf("  </g>\n")
	}
	wf("</svg>\n")
	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// svgPaint renders fill and stroke attributes.
func svgPaint(n *scene.Node, fill string) string {
	var b strings.Builder
	if c, ok := ParseColor(fill); ok {
		fmt.Fprintf(&b, " fill=\"%s\"", hex(c))
		if c.A < 255 {
			fmt.Fprintf(&b, " fill-opacity=\"%g\"", float64(c.A)/255)
		}
	} else {
		b.WriteString(" fill=\"none\"")
	}
	if c, ok := ParseColor(n.Stroke()); ok && n.StrokeWidth() > 0 {
		fmt.Fprintf(&b, " stroke=\"%s\" stroke-width=\"%g\"", hex(c), n.StrokeWidth())
		if d := dashOf(n); len(d) > 0 {
			parts := make([]string, len(d))
			for i, v := range d {
				parts[i] = fmt.Sprintf("%g", v)
			}
			fmt.Fprintf(&b, " stroke-dasharray=\"%s\"", strings.Join(parts, " "))
		}
		if lc := n.Str("lineCap"); lc != "" {
			fmt.Fprintf(&b, " stroke-linecap=\"%s\"", escAttr(lc))
		}
	}
	return b.String()
}

func svgShape(wf func(string, ...any), n *scene.Node) {
	switch n.Kind() {
	case scene.KindRect:
		r := n.Float("cornerRadius")
		wf("    <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" rx=\"%g\" ry=\"%g\"%s/>\n",
			n.Width(), n.Height(), r, r, svgPaint(n, n.Fill()))
	case scene.KindCircle:
		wf("    <circle cx=\"0\" cy=\"0\" r=\"%g\"%s/>\n", n.Radius(), svgPaint(n, n.Fill()))
	case scene.KindLine:
		pts := n.Points()
		if len(pts) < 4 {
			return
		}
		coords := make([]string, 0, len(pts)/2)
		for i := 0; i+1 < len(pts); i += 2 {
			coords = append(coords, fmt.Sprintf("%g,%g", pts[i], pts[i+1]))
		}
		wf("    <polyline points=\"%s\"%s/>\n", strings.Join(coords, " "), svgPaint(n, ""))
	case scene.KindText:
		c, ok := ParseColor(n.Fill())
		if !ok {
			return
		}
		spec := n.FontSpec()
		weight, style := "normal", "normal"
		if spec.Bold {
			weight = "bold"
		}
		if spec.Italic {
			style = "italic"
		}
		deco := ""
		if strings.Contains(n.Str("textDecoration"), "underline") {
			deco = " text-decoration=\"underline\""
		}
		for _, ln := range layoutText(n) {
			wf("    <text x=\"%g\" y=\"%g\" font-family=\"%s\" font-size=\"%g\" font-weight=\"%s\" font-style=\"%s\" fill=\"%s\"%s xml:space=\"preserve\">%s</text>\n",
				ln.x, ln.baseline, escAttr(n.FontFamily()), spec.Size, weight, style, hex(c), deco, escText(ln.text))
		}
	}
}

func escAttr(s string) string {
	r := strings.NewReplacer("&", "&amp;", "\"", "&quot;", "<", "&lt;", "\n", " ", "\r", "")
	return r.Replace(s)
}

func escText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
