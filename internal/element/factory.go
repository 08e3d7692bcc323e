/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package element

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/oklog/ulid/v2"

	"cvcanvas/internal/document"
	applog "cvcanvas/internal/log"
	"cvcanvas/internal/scene"
)

// Cascade offsets for elements created without an explicit position.
const (
	cascadeOrigin = 50
	cascadeStep   = 20
)

// Factory builds visual nodes for element types with their default
// geometry and style. It knows nothing about selection or history.
type Factory struct {
	counter int
	newID   func() string
	log     *slog.Logger
}

func NewFactory() *Factory {
	return &Factory{
		newID: func() string { return ulid.Make().String() },
		log:   applog.WithComponent("factory"),
	}
}

// SetIDSource replaces the id generator.
func (f *Factory) SetIDSource(fn func() string) { f.newID = fn }

// NewID returns a fresh element id.
func (f *Factory) NewID() string { return f.newID() }

// Create builds a node for t. A nil pos picks the next cascading position so
// sequential elements do not overlap exactly. Unknown types log a warning and
// return ErrUnknownType.
func (f *Factory) Create(t Type, pos *scene.Pt) (*scene.Node, error) {
	if _, ok := ParseType(string(t)); !ok {
		f.log.Warn("unknown element type", slog.String("type", string(t)))
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	f.counter++
	p := scene.Pt{X: float64(cascadeOrigin + f.counter*cascadeStep), Y: float64(cascadeOrigin + f.counter*cascadeStep)}
	if pos != nil {
		p = *pos
	}
	id := f.newID()
	d := DefaultProperties(t)
	var n *scene.Node
	switch t {
	case Text:
		n = scene.NewText(scene.Attrs{"text": "Nhập văn bản...", "fontSize": 14.0, "fontFamily": "Arial", "fill": "#333333"})
	case Heading:
		n = scene.NewText(scene.Attrs{"text": "Tiêu đề", "fontSize": 24.0, "fontFamily": "Arial", "fontStyle": "bold", "fill": "#2c3e50"})
	case Paragraph:
		n = scene.NewText(scene.Attrs{
			"text":     "Đây là một đoạn văn mẫu. Bạn có thể chỉnh sửa nội dung này để phù hợp với CV của mình. Hãy cung cấp thông tin chi tiết và rõ ràng.",
			"fontSize": 14.0, "fontFamily": "Arial", "fill": "#333333", "width": 300.0, "lineHeight": 1.5,
		})
	case List:
		n = scene.NewText(scene.Attrs{
			"text":     FormatList("Mục 1\nMục 2\nMục 3", d.String("bulletStyle")),
			"fontSize": 14.0, "fontFamily": "Arial", "fill": "#333333", "width": 200.0, "lineHeight": 1.6,
		})
	case Rectangle:
		n = scene.NewRect(scene.Attrs{"width": 200.0, "height": 100.0, "fill": "#667eea", "stroke": "#5a67d8", "strokeWidth": 2.0})
	case Image:
		n = buildImage(d.String("placeholderText"), num(d, "width", 150), num(d, "height", 150), d.String("fill"), d.String("stroke"))
	case Line:
		n = scene.NewLine(scene.Attrs{
			"points": []float64{p.X, p.Y, p.X + 200, p.Y},
			"stroke": d.String("stroke"), "strokeWidth": num(d, "strokeWidth", 2),
			"hitStrokeWidth": 15.0, "dash": []float64{},
		})
	case Avatar:
		n = buildAvatar(num(d, "radius", 50), d.String("fill"), d.String("stroke"), d.String("placeholderText"))
	case Circle:
		n = scene.NewCircle(scene.Attrs{"radius": num(d, "radius", 50), "fill": d.String("fill"), "stroke": d.String("stroke"), "strokeWidth": 2.0})
	case Icon:
		n = buildIcon(num(d, "size", 40), d.String("iconChar"), num(d, "iconSize", 30), d.String("iconColor"))
	case ProgressBar:
		n = buildProgress(d)
	case Rating:
		n = scene.NewGroup(nil)
		buildStars(n, int(num(d, "totalStars", 5)), int(num(d, "rating", 4)), num(d, "starSize", 20), num(d, "spacing", 5),
			d.String("filledColor"), d.String("emptyColor"))
	}
	n.SetID(id)
	n.SetDraggable(true)
	n.AddName(EditableTag)
	n.AddName(t.Tag())
	// Lines carry their position in their points.
	if t != Line {
		n.SetPosition(p)
	}
	return n, nil
}

// center shifts a text node's origin to its middle.
func center(n *scene.Node) {
	n.SetOffset(n.Width()/2, n.Height()/2)
}

func buildImage(label string, w, h float64, fill, stroke string) *scene.Node {
	g := scene.NewGroup(scene.Attrs{"width": w, "height": h})
	rect := scene.NewRect(scene.Attrs{"x": 0.0, "y": 0.0, "width": w, "height": h, "fill": fill, "stroke": stroke, "strokeWidth": 2.0, "name": string(RolePlaceholderRect)})
	text := scene.NewText(scene.Attrs{
		"x": w / 2, "y": h / 2, "text": label, "fontSize": 14.0, "fill": "#6c757d", "listening": false,
		"align": "center", "verticalAlign": "middle", "name": string(RolePlaceholderText),
	})
	center(text)
	g.Add(rect, text)
	return g
}

// avatarFontSize is the label size for a radius, never below 10.
func avatarFontSize(r float64) float64 { return math.Max(10, r/4) }

func buildAvatar(r float64, fill, stroke, label string) *scene.Node {
	g := scene.NewGroup(scene.Attrs{"width": r * 2, "height": r * 2})
	circle := scene.NewCircle(scene.Attrs{"x": r, "y": r, "radius": r, "fill": fill, "stroke": stroke, "strokeWidth": 2.0, "name": string(RoleAvatarCircle)})
	text := scene.NewText(scene.Attrs{
		"x": r, "y": r, "text": label, "fontSize": avatarFontSize(r), "fill": "#6c757d", "listening": false,
		"align": "center", "verticalAlign": "middle", "name": string(RoleAvatarText),
	})
	center(text)
	g.Add(circle, text)
	return g
}

func buildIcon(size float64, glyph string, glyphSize float64, color string) *scene.Node {
	g := scene.NewGroup(scene.Attrs{"width": size, "height": size})
	text := scene.NewText(scene.Attrs{
		"x": size / 2, "y": size / 2, "text": glyph, "fontSize": glyphSize, "fontFamily": "Arial", "fill": color,
		"align": "center", "verticalAlign": "middle", "name": string(RoleIconText),
	})
	center(text)
	g.Add(text)
	return g
}

func percentLabel(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) + "%" }

func buildProgress(d *document.Properties) *scene.Node {
	w, h, v := num(d, "width", 200), num(d, "height", 20), num(d, "value", 75)
	g := scene.NewGroup(scene.Attrs{"width": w, "height": h})
	bg := scene.NewRect(scene.Attrs{
		"x": 0.0, "y": 0.0, "width": w, "height": h, "fill": d.String("backgroundColor"),
		"stroke": d.String("borderColor"), "strokeWidth": 1.0, "cornerRadius": h / 2, "name": string(RoleProgressBackground),
	})
	fill := scene.NewRect(scene.Attrs{
		"x": 0.0, "y": 0.0, "width": w * v / 100, "height": h, "fill": d.String("fillColor"),
		"cornerRadius": h / 2, "name": string(RoleProgressFill),
	})
	text := scene.NewText(scene.Attrs{
		"x": w / 2, "y": h / 2, "text": percentLabel(v), "fontSize": num(d, "fontSize", 12), "fontFamily": "Arial",
		"fill": d.String("textColor"), "align": "center", "verticalAlign": "middle", "name": string(RoleProgressText),
	})
	center(text)
	g.Add(bg, fill, text)
	return g
}

// buildStars replaces g's children with total star glyphs, the first rating
// of them filled, and resizes g to the row.
func buildStars(g *scene.Node, total, rating int, size, spacing float64, filled, empty string) []*scene.Node {
	g.DestroyChildren()
	stars := make([]*scene.Node, 0, total)
	for i := 0; i < total; i++ {
		glyph, color := StarEmpty, empty
		if i < rating {
			glyph, color = StarFilled, filled
		}
		s := scene.NewText(scene.Attrs{
			"x": float64(i) * (size + spacing), "y": 0.0, "text": glyph, "fontSize": size,
			"fill": color, "fontFamily": "Arial", "name": starName(i),
		})
		g.Add(s)
		stars = append(stars, s)
	}
	g.SetAttrs(scene.Attrs{"width": float64(total) * (size + spacing), "height": size})
	return stars
}
