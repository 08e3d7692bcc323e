/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package element

import (
	"math"
	"slices"
	"strings"

	"cvcanvas/internal/document"
	"cvcanvas/internal/scene"
)

type reader func(el *Element) any

var readers = map[Type]map[string]reader{
	List: {
		"bulletStyle": func(el *Element) any { return el.Properties.String("bulletStyle") },
	},
	Image: {
		"placeholderText": partText(RolePlaceholderText),
		"placeholderFill": partFillOf(RolePlaceholderRect),
		"fill":            partFillOf(RolePlaceholderRect),
		"stroke":          func(el *Element) any { return el.Parts.Part(RolePlaceholderRect).Stroke() },
	},
	Avatar: {
		"radius":          func(el *Element) any { return el.Parts.Part(RoleAvatarCircle).Radius() },
		"placeholderText": partText(RoleAvatarText),
		"placeholderFill": partFillOf(RoleAvatarCircle),
		"fill":            partFillOf(RoleAvatarCircle),
		"stroke":          func(el *Element) any { return el.Parts.Part(RoleAvatarCircle).Stroke() },
	},
	Line: {
		"lineStyle": func(el *Element) any { return StyleForDash(el.Node.Dash()) },
		"dashArray": func(el *Element) any {
			if d := el.Node.Dash(); d != nil {
				return d
			}
			return []float64{}
		},
	},
	Icon: {
		"iconChar":  partText(RoleIconText),
		"iconSize":  func(el *Element) any { return el.Parts.Part(RoleIconText).FontSize() },
		"iconColor": partFillOf(RoleIconText),
		"size":      func(el *Element) any { return el.Node.Width() },
	},
	ProgressBar: {
		"value": func(el *Element) any {
			bg, fill := el.Parts.Part(RoleProgressBackground), el.Parts.Part(RoleProgressFill)
			if bg.Width() == 0 {
				return 0.0
			}
			return math.Round(fill.Width()/bg.Width()*1e4) / 100
		},
		"fillColor":       partFillOf(RoleProgressFill),
		"backgroundColor": partFillOf(RoleProgressBackground),
		"textColor":       partFillOf(RoleProgressText),
		"borderColor":     func(el *Element) any { return el.Parts.Part(RoleProgressBackground).Stroke() },
		"fontSize":        func(el *Element) any { return el.Parts.Part(RoleProgressText).FontSize() },
	},
	Rating: {
		"rating": func(el *Element) any {
			n := 0
			for _, s := range el.Parts.Stars {
				if s.Text() == StarFilled {
					n++
				}
			}
			return float64(n)
		},
		"totalStars":  func(el *Element) any { return float64(len(el.Parts.Stars)) },
		"filledColor": starColor(StarFilled, "filledColor"),
		"emptyColor":  starColor(StarEmpty, "emptyColor"),
		"starSize": func(el *Element) any {
			if len(el.Parts.Stars) == 0 {
				return num(el.Properties, "starSize", 20)
			}
			return el.Parts.Stars[0].FontSize()
		},
	},
}

func partText(r Role) reader {
	return func(el *Element) any { return el.Parts.Part(r).Text() }
}

func partFillOf(r Role) reader {
	return func(el *Element) any { return el.Parts.Part(r).Fill() }
}

func starColor(glyph, key string) reader {
	return func(el *Element) any {
		for _, s := range el.Parts.Stars {
			if s.Text() == glyph {
				return s.Fill()
			}
		}
		return el.Properties.String(key)
	}
}

// Value reads the live visual value behind a property name (panel names
// and bag keys both work).
func (el *Element) Value(name string) (any, bool) {
	key := Canonical(name)
	if r, ok := readers[el.Type][key]; ok {
		return r(el), true
	}
	n := el.Node
	switch key {
	case "x":
		return n.X(), true
	case "y":
		return n.Y(), true
	case "width":
		return n.Width(), true
	case "height":
		return n.Height(), true
	case "scaleX":
		return n.ScaleX(), true
	case "scaleY":
		return n.ScaleY(), true
	case "text":
		return n.Text(), true
	case "fontSize", "strokeWidth", "lineHeight", "opacity", "radius":
		return n.Float(key), true
	case "fontFamily":
		return n.FontFamily(), true
	case "fontStyle":
		return n.FontStyle(), true
	}
	v, ok := n.Attr(key)
	return v, ok
}

// Derive builds a property bag for a node that arrived without one: the
// type defaults overlaid with what the node actually shows.
func Derive(el *Element) *document.Properties {
	p := DefaultProperties(el.Type)
	for _, k := range append([]string{"x", "y"}, p.Keys()...) {
		if v, ok := el.Value(k); ok && v != nil {
			p.Set(k, v)
		}
	}
	return p
}

// TypeFromNode infers the element type of a loaded node from its name tags,
// falling back to its class. Untagged groups have no type.
func TypeFromNode(n *scene.Node) (Type, bool) {
	kind := n.Kind()
	for _, t := range []Type{Heading, Paragraph, List, Text} {
		if n.HasName(t.Tag()) {
			return t, true
		}
	}
	tagged := map[Type]scene.Kind{
		Image: scene.KindGroup, Avatar: scene.KindGroup, Icon: scene.KindGroup,
		ProgressBar: scene.KindGroup, Rating: scene.KindGroup,
		Circle: scene.KindCircle, Line: scene.KindLine, Rectangle: scene.KindRect,
	}
	for _, t := range Types {
		if k, ok := tagged[t]; ok && k == kind && n.HasName(t.Tag()) {
			return t, true
		}
	}
	switch kind {
	case scene.KindText:
		return Text, true
	case scene.KindRect:
		return Rectangle, true
	case scene.KindCircle:
		return Circle, true
	case scene.KindLine:
		return Line, true
	}
	return "", false
}

// Font style toggles.
const (
	StyleBold      = "bold"
	StyleItalic    = "italic"
	StyleUnderline = "underline"
)

// FontStyleActive reports whether style is on for a text element.
func FontStyleActive(el *Element, style string) bool {
	if style == StyleUnderline {
		return el.Node.Str("textDecoration") == StyleUnderline
	}
	return slices.Contains(strings.Fields(el.Node.FontStyle()), style)
}

// ToggleFontStyle flips bold, italic or underline on a text element.
func (m *Manager) ToggleFontStyle(el *Element, style string) error {
	if el == nil {
		return ErrMissingArgument
	}
	if !el.Type.IsText() {
		return ErrInvalidValue
	}
	switch style {
	case StyleBold, StyleItalic:
		words := slices.DeleteFunc(strings.Fields(el.Node.FontStyle()), func(w string) bool {
			return w == "normal" || w == style
		})
		if !FontStyleActive(el, style) {
			words = append(words, style)
		}
		next := strings.Join(words, " ")
		if next == "" {
			next = "normal"
		}
		return m.SetProperty(el, "fontStyle", next)
	case StyleUnderline:
		next := StyleUnderline
		if FontStyleActive(el, style) {
			next = ""
		}
		return m.SetProperty(el, "textDecoration", next)
	}
	return ErrInvalidValue
}
