/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a canvas page to PDF, PNG or SVG.
// All renderers walk the same flattened scene: every visible shape with its
// transform relative to the page, in draw order, editor chrome excluded.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"cvcanvas/internal/scene"
)

// Format is an output format.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("export: unknown format")

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case FormatPDF, FormatPNG, FormatSVG:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatForPath picks the format from a file name's extension.
func FormatForPath(path string) (Format, error) { return ParseFormat(filepath.Ext(path)) }

// Page is what gets rendered: the canvas size and the layer holding the elements.
type Page struct {
	Width  float64
	Height float64
	Root   *scene.Node
	Title  string
}

// Options tune the renderers. Zero values pick the defaults.
type Options struct {
	// PixelRatio multiplies the PNG size; 1 means one pixel per canvas unit.
	PixelRatio float64
	// Background is painted under the page; empty means white.
	Background string
}

func (o Options) ratio() float64 {
	if o.PixelRatio <= 0 {
		return 1
	}
	return o.PixelRatio
}

func (o Options) background() string {
	if o.Background == "" {
		return "#ffffff"
	}
	return o.Background
}

// Render writes page in format f to w.
func Render(w io.Writer, f Format, page Page, opt Options) error {
	if page.Root == nil {
		return errors.New("export: page has no content root")
	}
	if page.Width <= 0 || page.Height <= 0 {
		return fmt.Errorf("export: invalid page size %vx%v", page.Width, page.Height)
	}
	switch f {
	case FormatPDF:
		return PDF(w, page, opt)
	case FormatPNG:
		return PNG(w, page, opt)
	case FormatSVG:
		return SVG(w, page, opt)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// WriteFile renders page to path, creating parent directories.
func WriteFile(path string, f Format, page Page, opt Options) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", f, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", f, cerr)
		}
	}()
	return Render(out, f, page, opt)
}

// item is one shape to paint with its page transform.
type item struct {
	n *scene.Node
	m scene.Affine
}

// flatten collects the visible shapes under root in draw order.
func flatten(root *scene.Node) []item {
	var out []item
	var walk func(n *scene.Node, m scene.Affine)
	walk = func(n *scene.Node, m scene.Affine) {
		for _, c := range n.Children() {
			if c.Kind() == scene.KindTransformer || !c.Visible() {
				continue
			}
			cm := m.Mul(c.Transform())
			if c.IsContainer() {
				walk(c, cm)
				continue
			}
			out = append(out, item{n: c, m: cm})
		}
	}
	walk(root, scene.Identity)
	return out
}

// decompose splits an affine without shear into translation, rotation
// (degrees, clockwise in canvas space) and scale.
func decompose(m scene.Affine) (tx, ty, deg, sx, sy float64) {
	sx = math.Hypot(m.A, m.B)
	if sx == 0 {
		return m.E, m.F, 0, 0, 0
	}
	deg = math.Atan2(m.B, m.A) * 180 / math.Pi
	sy = (m.A*m.D - m.B*m.C) / sx
	return m.E, m.F, deg, sx, sy
}

// textLine is one laid out line positioned in the text node's local space.
type textLine struct {
	text     string
	x        float64
	baseline float64
	width    float64
}

// ascentRatio approximates the ascent of the Go fonts as a share of the size.
const ascentRatio = 0.8

// layoutText positions a Text node's lines honoring padding, lineHeight,
// align and verticalAlign.
func layoutText(n *scene.Node) []textLine {
	box := n.TextBox()
	size := n.FontSize()
	lh := n.Float("lineHeight")
	if lh <= 0 {
		lh = 1
	}
	pad := n.Float("padding")
	w, h := n.Width(), n.Height()
	top := pad
	if n.Str("verticalAlign") == "middle" {
		top = (h - float64(len(box.Lines))*size*lh) / 2
	} else if n.Str("verticalAlign") == "bottom" {
		top = h - pad - float64(len(box.Lines))*size*lh
	}
	out := make([]textLine, 0, len(box.Lines))
	for i, ln := range box.Lines {
		x := pad
		switch n.Str("align") {
		case "center":
			x = (w - ln.Width) / 2
		case "right":
			x = w - pad - ln.Width
		}
		out = append(out, textLine{
			text:     ln.Text,
			x:        x,
			baseline: top + float64(i)*size*lh + (size*lh-size)/2 + size*ascentRatio,
			width:    ln.Width,
		})
	}
	return out
}

// dashOf returns the node's dash pattern, or nil for a solid stroke.
func dashOf(n *scene.Node) []float64 {
	d := n.Dash()
	if len(d) == 0 || !n.Bool("dashEnabled", true) {
		return nil
	}
	return d
}
