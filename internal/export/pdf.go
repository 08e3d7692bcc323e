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
	"image/color"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"cvcanvas/internal/scene"
	"cvcanvas/internal/textlayout"
)

const pdfFamily = "go"

// PDF writes the page as a single-page vector PDF. One canvas unit maps to
// one point; text uses the embedded Go fonts so non-Latin content survives.
func PDF(w io.Writer, page Page, opt Options) error {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: page.Width, Ht: page.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	title := page.Title
	if title == "" {
		title = "CV"
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("cvcanvas", false)
	for _, st := range []string{"", "B", "I", "BI"} {
		pdf.AddUTF8FontFromBytes(pdfFamily, st, textlayout.Source(textlayout.FontSpec{
			Bold:   strings.Contains(st, "B"),
			Italic: strings.Contains(st, "I"),
		}))
	}
	pdf.AddPage()

	if bg, ok := ParseColor(opt.background()); ok {
		pdf.SetFillColor(int(bg.R), int(bg.G), int(bg.B))
		pdf.Rect(0, 0, page.Width, page.Height, "F")
	}

	for _, it := range flatten(page.Root) {
		tx, ty, deg, sx, sy := decompose(it.m)
		if sx == 0 || sy == 0 {
			continue
		}
		pdf.TransformBegin()
		pdf.TransformTranslate(tx, ty)
		if deg != 0 {
			pdf.TransformRotate(-deg, 0, 0)
		}
		if sx != 1 || sy != 1 {
			pdf.TransformScale(sx*100, sy*100, 0, 0)
		}
		pdf.SetAlpha(min(1, max(0, it.n.Opacity())), "Normal")
		pdfShape(pdf, it.n)
		pdf.SetAlpha(1, "Normal")
		pdf.TransformEnd()
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// pdfStyle sets fill and stroke state and returns the gofpdf style string,
// or "" when nothing is painted.
func pdfStyle(pdf *gofpdf.Fpdf, n *scene.Node) string {
	style := ""
	if c, ok := ParseColor(n.Fill()); ok {
		pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
		style += "F"
	}
	if c, ok := ParseColor(n.Stroke()); ok && n.StrokeWidth() > 0 {
		pdfStroke(pdf, n, c)
		style += "D"
	}
	return style
}

func pdfStroke(pdf *gofpdf.Fpdf, n *scene.Node, c color.RGBA) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
	pdf.SetLineWidth(n.StrokeWidth())
	pdf.SetDashPattern(dashOf(n), 0)
}

func pdfShape(pdf *gofpdf.Fpdf, n *scene.Node) {
	switch n.Kind() {
	case scene.KindRect:
		style := pdfStyle(pdf, n)
		if style == "" {
			return
		}
		if r := n.Float("cornerRadius"); r > 0 {
			pdf.RoundedRect(0, 0, n.Width(), n.Height(), r, "1234", style)
			return
		}
		pdf.Rect(0, 0, n.Width(), n.Height(), style)
	case scene.KindCircle:
		if style := pdfStyle(pdf, n); style != "" {
			pdf.Circle(0, 0, n.Radius(), style)
		}
	case scene.KindLine:
		c, ok := ParseColor(n.Stroke())
		pts := n.Points()
		if !ok || len(pts) < 4 {
			return
		}
		pdfStroke(pdf, n, c)
		if n.Str("lineCap") == "round" {
			pdf.SetLineCapStyle("round")
		}
		for i := 2; i+1 < len(pts); i += 2 {
			pdf.Line(pts[i-2], pts[i-1], pts[i], pts[i+1])
		}
		pdf.SetLineCapStyle("butt")
	case scene.KindText:
		c, ok := ParseColor(n.Fill())
		if !ok {
			return
		}
		spec := n.FontSpec()
		st := ""
		if spec.Bold {
			st += "B"
		}
		if spec.Italic {
			st += "I"
		}
		pdf.SetFont(pdfFamily, st, spec.Size)
		pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
		underline := strings.Contains(n.Str("textDecoration"), "underline")
		for _, ln := range layoutText(n) {
			pdf.Text(ln.x, ln.baseline, ln.text)
			if underline {
				pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
				pdf.SetLineWidth(spec.Size / 15)
				pdf.SetDashPattern(nil, 0)
				y := ln.baseline + spec.Size/10
				pdf.Line(ln.x, y, ln.x+ln.width, y)
			}
		}
	}
}
