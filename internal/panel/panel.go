/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package panel builds the property form shown for the selected element.
// The form is plain data; front-ends render it and send edits back through
// the element manager.
package panel

import (
	"math"
	"strconv"
	"strings"

	"cvcanvas/internal/element"
	"cvcanvas/internal/scene"
)

type FieldKind string

const (
	Number   FieldKind = "number"
	Color    FieldKind = "color"
	TextLine FieldKind = "text"
	TextArea FieldKind = "textarea"
	Select   FieldKind = "select"
	Toggle   FieldKind = "toggle"
)

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field is one input bound to a property name.
type Field struct {
	Property string    `json:"property"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Value    any       `json:"value"`
	Min      *float64  `json:"min,omitempty"`
	Max      *float64  `json:"max,omitempty"`
	Step     float64   `json:"step,omitempty"`
	Options  []Option  `json:"options,omitempty"`
	Active   bool      `json:"active,omitempty"`
	Disabled bool      `json:"disabled,omitempty"`
}

type Group struct {
	Label  string  `json:"label"`
	Fields []Field `json:"fields"`
}

// Form is the panel content for one element. An empty ElementID means
// nothing is selected.
type Form struct {
	ElementID string       `json:"elementId,omitempty"`
	Type      element.Type `json:"type,omitempty"`
	Groups    []Group      `json:"groups,omitempty"`
	Hint      string       `json:"hint,omitempty"`
}

// Empty is the form shown without a selection.
func Empty() Form { return Form{Hint: "Select an element to edit"} }

// IconChoices are the glyphs offered for icon elements.
var IconChoices = []Option{
	{"★", "Star"}, {"♥", "Heart"}, {"●", "Dot"}, {"▲", "Triangle"}, {"■", "Square"},
	{"♦", "Diamond"}, {"✓", "Check"}, {"✗", "Cross"}, {"→", "Arrow right"}, {"↑", "Arrow up"},
}

var fontFamilies = []Option{{"Arial", "Arial"}, {"Times New Roman", "Times New Roman"}, {"Helvetica", "Helvetica"}}

var bulletOptions = []Option{{"•", "• Bullet"}, {"-", "- Dash"}, {element.NumberedBullet, "1. Numbered"}}

var lineStyles = []Option{{"solid", "Solid"}, {"dashed", "Dashed"}, {"dotted", "Dotted"}}

func bound(v float64) *float64 { return &v }

func value(el *element.Element, name string) any {
	v, _ := el.Value(name)
	return v
}

func str(el *element.Element, name string) string {
	switch v := value(el, name).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func numField(prop, label string, v any, lo, hi *float64) Field {
	return Field{Property: prop, Label: label, Kind: Number, Value: v, Min: lo, Max: hi}
}

func colorField(prop, label, v string) Field {
	return Field{Property: prop, Label: label, Kind: Color, Value: v}
}

// Build renders the form for el from its live visual state.
func Build(el *element.Element) Form {
	if el == nil {
		return Empty()
	}
	n := el.Node
	f := Form{ElementID: el.ID, Type: el.Type}
	f.Groups = append(f.Groups, Group{Label: "Position", Fields: []Field{
		numField("x", "X", math.Round(n.X()), nil, nil),
		numField("y", "Y", math.Round(n.Y()), nil, nil),
	}})

	switch el.Type {
	case element.Rectangle, element.Image, element.Paragraph, element.List,
		element.Icon, element.ProgressBar, element.Rating:
		f.Groups = append(f.Groups,
			Group{Label: "Size", Fields: []Field{
				numField("width", "Width", math.Round(n.Width()*n.ScaleX()), nil, nil),
				numField("height", "Height", math.Round(n.Height()*n.ScaleY()), nil, nil),
			}},
			Group{Label: "Scale", Fields: []Field{
				{Property: "scaleX", Label: "Scale X", Kind: Number, Value: scene.Round(n.ScaleX(), 2), Step: 0.1},
				{Property: "scaleY", Label: "Scale Y", Kind: Number, Value: scene.Round(n.ScaleY(), 2), Step: 0.1},
			}},
		)
	}

	switch el.Type {
	case element.Text, element.Heading, element.Paragraph, element.List:
		f.Groups = append(f.Groups, textGroups(el)...)
	case element.Rectangle:
		f.Groups = append(f.Groups, Group{Label: "Shape", Fields: []Field{
			colorField("fill", "Fill", n.Fill()),
			colorField("stroke", "Border", n.Stroke()),
		}})
	case element.Image:
		f.Groups = append(f.Groups, Group{Label: "Image", Fields: []Field{
			{Property: "placeholderText", Label: "Placeholder text", Kind: TextLine, Value: str(el, "placeholderText")},
			colorField("placeholderFill", "Background", str(el, "placeholderFill")),
			{Property: "imageSrc", Label: "Image URL", Kind: TextLine, Value: "", Disabled: true},
		}})
	case element.Line:
		f.Groups = append(f.Groups, Group{Label: "Line", Fields: []Field{
			colorField("stroke", "Color", n.Stroke()),
			numField("strokeWidth", "Thickness", n.StrokeWidth(), bound(1), bound(50)),
			{Property: "lineStyle", Label: "Style", Kind: Select, Value: str(el, "lineStyle"), Options: lineStyles},
		}})
	case element.Avatar:
		f.Groups = append(f.Groups, Group{Label: "Avatar", Fields: []Field{
			numField("radius", "Radius", value(el, "radius"), bound(10), nil),
			{Property: "placeholderText", Label: "Placeholder text", Kind: TextLine, Value: str(el, "placeholderText")},
			colorField("placeholderFill", "Background", str(el, "placeholderFill")),
			colorField("stroke", "Border", str(el, "stroke")),
			{Property: "imageSrc", Label: "Image URL", Kind: TextLine, Value: "", Disabled: true},
		}})
	case element.Circle:
		f.Groups = append(f.Groups, Group{Label: "Circle", Fields: []Field{
			numField("radius", "Radius", n.Radius(), bound(5), nil),
			colorField("fill", "Fill", n.Fill()),
			colorField("stroke", "Border", n.Stroke()),
			numField("strokeWidth", "Border width", n.StrokeWidth(), bound(0), nil),
		}})
	case element.Icon:
		f.Groups = append(f.Groups, Group{Label: "Icon", Fields: []Field{
			{Property: "iconType", Label: "Icon", Kind: Select, Value: str(el, "iconType"), Options: IconChoices},
			numField("iconSize", "Size", value(el, "iconSize"), bound(10), bound(100)),
			colorField("iconColor", "Color", str(el, "iconColor")),
		}})
	case element.ProgressBar:
		f.Groups = append(f.Groups, Group{Label: "Progress", Fields: []Field{
			numField("progressValue", "Value (%)", value(el, "progressValue"), bound(0), bound(100)),
			colorField("fillColor", "Fill", str(el, "fillColor")),
			colorField("backgroundColor", "Background", str(el, "backgroundColor")),
			colorField("textColor", "Text", str(el, "textColor")),
		}})
	case element.Rating:
		total, _ := value(el, "totalStars").(float64)
		f.Groups = append(f.Groups, Group{Label: "Rating", Fields: []Field{
			numField("ratingValue", "Stars", value(el, "ratingValue"), bound(0), bound(total)),
			numField("totalStars", "Total stars", total, bound(3), bound(10)),
			colorField("filledColor", "Filled", str(el, "filledColor")),
			colorField("emptyColor", "Empty", str(el, "emptyColor")),
		}})
	}
	return f
}

func textGroups(el *element.Element) []Group {
	n := el.Node
	content := Field{Property: "text", Label: "Content", Kind: TextArea, Value: n.Text()}
	gs := []Group{
		{Label: "Content", Fields: []Field{content}},
		{Label: "Font", Fields: []Field{
			numField("fontSize", "Font size", n.FontSize(), bound(8), bound(72)),
			colorField("fill", "Text color", n.Fill()),
			{Property: "fontFamily", Label: "Font family", Kind: Select, Value: n.FontFamily(), Options: fontFamilies},
		}},
	}
	if el.Type == element.List {
		style := el.Properties.String("bulletStyle")
		if style == "" {
			style = element.BulletStyles[0]
		}
		gs[1].Fields = append(gs[1].Fields, Field{Property: "bulletStyle", Label: "List style", Kind: Select, Value: style, Options: bulletOptions})
	}
	var toggles []Field
	for _, s := range []string{element.StyleBold, element.StyleItalic, element.StyleUnderline} {
		toggles = append(toggles, Field{Property: s, Label: strings.ToUpper(s[:1]) + s[1:], Kind: Toggle, Active: element.FontStyleActive(el, s)})
	}
	gs = append(gs, Group{Label: "Style", Fields: toggles})
	return gs
}

// Find returns the field bound to property.
func (f Form) Find(property string) (Field, bool) {
	for _, g := range f.Groups {
		for _, fd := range g.Fields {
			if fd.Property == property {
				return fd, true
			}
		}
	}
	return Field{}, false
}

// Parse converts raw input text for the field into the value handed to
// the dispatcher. Number fields are clamped to their bounds.
func (fd Field) Parse(raw string) (any, bool) {
	switch fd.Kind {
	case Number:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(v) {
			return nil, false
		}
		if fd.Min != nil && v < *fd.Min {
			v = *fd.Min
		}
		if fd.Max != nil && v > *fd.Max {
			v = *fd.Max
		}
		return v, true
	case Select:
		for _, o := range fd.Options {
			if o.Value == raw {
				return raw, true
			}
		}
		return nil, false
	case Toggle:
		return nil, false
	}
	return raw, true
}
