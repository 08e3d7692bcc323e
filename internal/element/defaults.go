/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package element

import (
	"cvcanvas/internal/document"
	"cvcanvas/internal/scene"
)

// Star glyphs used by rating elements.
const (
	StarFilled = "★"
	StarEmpty  = "☆"
)

// Line dash patterns by symbolic style.
var dashPatterns = map[string][]float64{
	"solid":  {},
	"dashed": {10, 5},
	"dotted": {2, 5},
}

// DashFor maps a line style to its dash pattern; unknown styles are solid.
func DashFor(style string) []float64 {
	if d, ok := dashPatterns[style]; ok {
		return append([]float64{}, d...)
	}
	return []float64{}
}

// StyleForDash is the inverse of DashFor.
func StyleForDash(d []float64) string {
	switch {
	case len(d) == 2 && d[0] == 10 && d[1] == 5:
		return "dashed"
	case len(d) == 2 && d[0] == 2 && d[1] == 5:
		return "dotted"
	}
	return "solid"
}

// DefaultProperties returns a fresh property bag for t; unknown types get an
// empty bag.
func DefaultProperties(t Type) *document.Properties {
	switch t {
	case Text:
		return document.NewProperties("fontSize", 14.0, "fontFamily", "Arial", "fill", "#333333")
	case Heading:
		return document.NewProperties("fontSize", 24.0, "fontFamily", "Arial", "fill", "#2c3e50", "fontStyle", "bold")
	case Paragraph:
		return document.NewProperties("fontSize", 14.0, "fontFamily", "Arial", "fill", "#333333", "width", 300.0, "lineHeight", 1.5)
	case List:
		return document.NewProperties("fontSize", 14.0, "fontFamily", "Arial", "fill", "#333333", "width", 200.0, "lineHeight", 1.6, "bulletStyle", "•")
	case Rectangle:
		return document.NewProperties("width", 200.0, "height", 100.0, "fill", "#667eea", "stroke", "#5a67d8")
	case Image:
		return document.NewProperties("width", 150.0, "height", 150.0, "fill", "#f8f9fa", "stroke", "#dee2e6", "placeholderText", "Hình ảnh")
	case Line:
		return document.NewProperties("stroke", "#333333", "strokeWidth", 2.0, "lineStyle", "solid", "dashArray", []float64{})
	case Avatar:
		return document.NewProperties("radius", 50.0, "fill", "#e9ecef", "stroke", "#adb5bd", "placeholderText", "Avatar")
	case Circle:
		return document.NewProperties("radius", 50.0, "fill", "#ff6b6b", "stroke", "#c92a2a")
	case Icon:
		return document.NewProperties("size", 40.0, "iconChar", "★", "iconSize", 30.0, "iconColor", "#667eea")
	case ProgressBar:
		return document.NewProperties("width", 200.0, "height", 20.0, "value", 75.0,
			"backgroundColor", "#e9ecef", "fillColor", "#28a745", "borderColor", "#dee2e6",
			"textColor", "#212529", "fontSize", 12.0)
	case Rating:
		return document.NewProperties("totalStars", 5.0, "rating", 4.0, "starSize", 20.0, "spacing", 5.0,
			"filledColor", "#ffd700", "emptyColor", "#e9ecef")
	}
	return document.NewProperties()
}

// num reads a numeric bag value with a fallback.
func num(p *document.Properties, key string, def float64) float64 {
	if v, ok := p.Get(key); ok {
		if f, ok := scene.Num(v); ok {
			return f
		}
	}
	return def
}
