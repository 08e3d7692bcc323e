/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and word-wraps the text of canvas text nodes.
// All measurement goes through a Provider so scene code stays deterministic
// in tests (BasicProvider) and close to real glyph widths in exports.
package textlayout

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font in canvas pixels.
type FontSpec struct {
	Family string
	Size   float64
	Bold   bool
	Italic bool
}

// Line is a single laid out line.
type Line struct {
	Text  string
	Width float64
}

// Box is the result of laying out text.
type Box struct {
	Lines  []Line
	Width  float64
	Height float64
}

// Options control a layout pass. Width <= 0 means auto width (no wrapping).
type Options struct {
	Width      float64
	LineHeight float64 // multiplier of the font size, default 1
	Padding    float64
}

// Provider maps a FontSpec to a face plus the factor that scales the face's
// advances to the requested size.
type Provider interface {
	Resolve(FontSpec) (face font.Face, scale float64)
}

// BasicProvider uses x/image/basicfont Face7x13 scaled to the requested size.
type BasicProvider struct{}

const basicHeight = 13.0

func (BasicProvider) Resolve(spec FontSpec) (font.Face, float64) {
	size := spec.Size
	if size <= 0 {
		size = basicHeight
	}
	scale := size / basicHeight
	if spec.Bold {
		scale *= 1.05
	}
	return basicfont.Face7x13, scale
}

// Default is the provider used when none is supplied.
var Default Provider = BasicProvider{}

func advance(d *font.Drawer, s string) float64 {
	return float64(d.MeasureString(s)) / 64 // fixed.Int26_6 to px
}

// Measure returns the width of a single line of text.
func Measure(p Provider, spec FontSpec, s string) float64 {
	if p == nil {
		p = Default
	}
	face, scale := p.Resolve(spec)
	return advance(&font.Drawer{Face: face}, s) * scale
}

// Layout splits text on newlines and, when opts.Width > 0, wraps words so
// no line exceeds the inner width. Height is lines * size * lineHeight + padding.
func Layout(p Provider, spec FontSpec, text string, opts Options) Box {
	if p == nil {
		p = Default
	}
	if spec.Size <= 0 {
		spec.Size = 12
	}
	lh := opts.LineHeight
	if lh <= 0 {
		lh = 1
	}
	face, scale := p.Resolve(spec)
	d := &font.Drawer{Face: face}
	measure := func(s string) float64 { return advance(d, s) * scale }

	inner := opts.Width - 2*opts.Padding
	var box Box
	for _, para := range strings.Split(text, "\n") {
		if opts.Width <= 0 || inner <= 0 {
			box.Lines = append(box.Lines, Line{Text: para, Width: measure(para)})
			continue
		}
		box.Lines = append(box.Lines, wrap(para, inner, measure)...)
	}
	for _, ln := range box.Lines {
		if ln.Width > box.Width {
			box.Width = ln.Width
		}
	}
	if opts.Width > 0 {
		box.Width = opts.Width
	} else {
		box.Width += 2 * opts.Padding
	}
	box.Height = float64(len(box.Lines))*spec.Size*lh + 2*opts.Padding
	return box
}

// wrap breaks one paragraph on spaces; a single word wider than max gets its own line.
func wrap(para string, max float64, measure func(string) float64) []Line {
	words := strings.Fields(para)
	if len(words) == 0 {
		return []Line{{Text: "", Width: 0}}
	}
	var out []Line
	cur := words[0]
	for _, w := range words[1:] {
		cand := cur + " " + w
		if measure(cand) > max {
			out = append(out, Line{Text: cur, Width: measure(cur)})
			cur = w
			continue
		}
		cur = cand
	}
	return append(out, Line{Text: cur, Width: measure(cur)})
}
