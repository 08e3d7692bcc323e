/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"cvcanvas/internal/scene"
	"cvcanvas/internal/textlayout"
)

// fontCache holds parsed TTFs keyed by bold/italic.
var fontCache = struct {
	sync.Mutex
	fonts map[[2]bool]*truetype.Font
}{fonts: make(map[[2]bool]*truetype.Font)}

func ttfFace(spec textlayout.FontSpec) (font.Face, error) {
	key := [2]bool{spec.Bold, spec.Italic}
	fontCache.Lock()
	f, ok := fontCache.fonts[key]
	if !ok {
		var err error
		f, err = truetype.Parse(textlayout.Source(spec))
		if err != nil {
			fontCache.Unlock()
			return nil, fmt.Errorf("parse font: %w", err)
		}
		fontCache.fonts[key] = f
	}
	fontCache.Unlock()
	return truetype.NewFace(f, &truetype.Options{Size: spec.Size, DPI: 72, Hinting: font.HintingFull}), nil
}

// PNG rasterizes the page and encodes it.
func PNG(w io.Writer, page Page, opt Options) error {
	img, err := Raster(page, opt)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// Raster draws the page into an image of Width x Height times the pixel
// ratio. Opacity is applied per shape.
func Raster(page Page, opt Options) (image.Image, error) {
	r := opt.ratio()
	dc := gg.NewContext(int(math.Ceil(page.Width*r)), int(math.Ceil(page.Height*r)))
	if bg, ok := ParseColor(opt.background()); ok {
		dc.SetColor(nrgba(bg))
		dc.Clear()
	}
	dc.Scale(r, r)
	for _, it := range flatten(page.Root) {
		tx, ty, deg, sx, sy := decompose(it.m)
		if sx == 0 || sy == 0 {
			continue
		}
		dc.Push()
		dc.Translate(tx, ty)
		dc.Rotate(gg.Radians(deg))
		dc.Scale(sx, sy)
		err := pngShape(dc, it.n)
		dc.Pop()
		if err != nil {
			return nil, err
		}
	}
	return dc.Image(), nil
}

func withOpacity(c color.RGBA, op float64) color.RGBA {
	op = min(1, max(0, op))
	if op == 1 {
		return c
	}
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: uint8(float64(c.A) * op)}
}

// nrgba reinterprets ParseColor's straight-alpha channels for gg.
func nrgba(c color.RGBA) color.NRGBA { return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A} }

// paint fills and strokes the current path from the node's style.
func paint(dc *gg.Context, n *scene.Node) {
	fill, hasFill := ParseColor(n.Fill())
	stroke, hasStroke := ParseColor(n.Stroke())
	hasStroke = hasStroke && n.StrokeWidth() > 0
	if hasFill {
		dc.SetColor(nrgba(withOpacity(fill, n.Opacity())))
		if hasStroke {
			dc.FillPreserve()
		} else {
			dc.Fill()
		}
	}
	if hasStroke {
		dc.SetColor(nrgba(withOpacity(stroke, n.Opacity())))
		dc.SetLineWidth(n.StrokeWidth())
		dc.SetDash(dashOf(n)...)
		dc.Stroke()
	}
	dc.ClearPath()
}

func pngShape(dc *gg.Context, n *scene.Node) error {
	switch n.Kind() {
	case scene.KindRect:
		if r := n.Float("cornerRadius"); r > 0 {
			dc.DrawRoundedRectangle(0, 0, n.Width(), n.Height(), r)
		} else {
			dc.DrawRectangle(0, 0, n.Width(), n.Height())
		}
		paint(dc, n)
	case scene.KindCircle:
		dc.DrawCircle(0, 0, n.Radius())
		paint(dc, n)
	case scene.KindLine:
		c, ok := ParseColor(n.Stroke())
		pts := n.Points()
		if !ok || len(pts) < 4 {
			return nil
		}
		dc.MoveTo(pts[0], pts[1])
		for i := 2; i+1 < len(pts); i += 2 {
			dc.LineTo(pts[i], pts[i+1])
		}
		dc.SetColor(nrgba(withOpacity(c, n.Opacity())))
		dc.SetLineWidth(n.StrokeWidth())
		dc.SetDash(dashOf(n)...)
		if n.Str("lineCap") == "round" {
			dc.SetLineCapRound()
		} else {
			dc.SetLineCapButt()
		}
		dc.Stroke()
	case scene.KindText:
		c, ok := ParseColor(n.Fill())
		if !ok {
			return nil
		}
		spec := n.FontSpec()
		if spec.Size <= 0 {
			return nil
		}
		face, err := ttfFace(spec)
		if err != nil {
			return err
		}
		dc.SetFontFace(face)
		col := nrgba(withOpacity(c, n.Opacity()))
		dc.SetColor(col)
		underline := strings.Contains(n.Str("textDecoration"), "underline")
		for _, ln := range layoutText(n) {
			dc.DrawString(ln.text, ln.x, ln.baseline)
			if underline {
				y := ln.baseline + spec.Size/10
				dc.SetLineWidth(spec.Size / 15)
				dc.SetDash()
				dc.DrawLine(ln.x, y, ln.x+ln.width, y)
				dc.Stroke()
			}
		}
	}
	return nil
}
