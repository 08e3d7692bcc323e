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
	"slices"
	"strings"

	"cvcanvas/internal/scene"
)

// rule applies one property to an element's node(s) and returns the value
// to cache in the property bag. ok is false when v cannot be applied; the
// element is left untouched in that case.
type rule func(m *Manager, el *Element, v any) (cached any, ok bool)

// strategy is the dispatch entry of one element type. Properties without a
// rule go to the generic setter when generic allows them (nil allows all).
type strategy struct {
	rules   map[string]rule
	generic func(name string) bool
}

// aliases maps panel field names onto bag keys.
var aliases = map[string]string{
	"iconType":      "iconChar",
	"progressValue": "value",
	"ratingValue":   "rating",
}

var strategies map[Type]strategy

// placementOnly admits the generic keys that move a composite as a whole;
// everything that changes its look goes through a rule.
func placementOnly(name string) bool {
	switch name {
	case "x", "y", "scaleX", "scaleY", "rotation", "opacity", "visible", "draggable":
		return true
	}
	return false
}

func init() {
	strategies = map[Type]strategy{
		Text:      {},
		Heading:   {},
		Paragraph: {},
		Rectangle: {},
		List: {rules: map[string]rule{
			"bulletStyle": listBulletStyle,
			"text":        listText,
		}},
		Image: {
			rules: map[string]rule{
				"placeholderText": imagePlaceholderText,
				"placeholderFill": imagePlaceholderFill,
				"fill":            imagePlaceholderFill,
				"stroke":          imageStroke,
				"width":           imageSize(true),
				"height":          imageSize(false),
			},
			generic: placementOnly,
		},
		Avatar: {
			rules: map[string]rule{
				"radius":          avatarRadius,
				"placeholderText": avatarPlaceholderText,
				"placeholderFill": avatarPlaceholderFill,
				"stroke":          avatarStroke,
			},
			// Size follows the radius.
			generic: placementOnly,
		},
		Line: {rules: map[string]rule{
			"stroke":      lineStroke,
			"strokeWidth": lineStrokeWidth,
			"lineStyle":   lineStyle,
			"dashArray":   lineDash,
		}},
		Circle: {rules: map[string]rule{
			"radius": circleRadius,
			"width":  circleDiameter,
			"height": circleDiameter,
		}},
		Icon: {
			rules: map[string]rule{
				"iconChar":  iconChar,
				"iconSize":  iconSize,
				"iconColor": iconColor,
				"size":      iconBox,
				"width":     iconBox,
				"height":    iconBox,
			},
			generic: placementOnly,
		},
		ProgressBar: {rules: map[string]rule{
			"value":           progressValue,
			"fillColor":       partFill(RoleProgressFill),
			"backgroundColor": partFill(RoleProgressBackground),
			"textColor":       partFill(RoleProgressText),
			"borderColor":     progressBorder,
			"width":           progressWidth,
			"height":          progressHeight,
			"fontSize":        progressFontSize,
		}},
		Rating: {rules: map[string]rule{
			"rating":      ratingValue,
			"filledColor": ratingColor(StarFilled),
			"emptyColor":  ratingColor(StarEmpty),
			"totalStars":  ratingRebuild("totalStars"),
			"starSize":    ratingRebuild("starSize"),
			"spacing":     ratingRebuild("spacing"),
		}},
	}
}

// Canonical resolves a panel field name to the bag key it is cached under.
func Canonical(name string) string {
	if k, ok := aliases[name]; ok {
		return k
	}
	return name
}

// SetProperty routes name=value through el's type strategy, updates the
// property bag and redraws.
func (m *Manager) SetProperty(el *Element, name string, value any) error {
	if el == nil || name == "" || value == nil {
		m.log.Debug("property dispatch without arguments", slog.String("property", name))
		return ErrMissingArgument
	}
	if m.elements[el.ID] != el {
		return fmt.Errorf("%w: %s", ErrNotRegistered, el.ID)
	}
	if err := apply(m, el, name, value); err != nil {
		return err
	}
	m.layer.Draw()
	if el.Type == List && name == "bulletStyle" {
		m.RefreshPanel()
	}
	return nil
}

func apply(m *Manager, el *Element, name string, value any) error {
	s := strategies[el.Type]
	key := Canonical(name)
	var (
		cached any
		ok     bool
	)
	if r, found := s.rules[key]; found {
		cached, ok = r(m, el, value)
	} else if s.generic != nil && !s.generic(key) {
		return fmt.Errorf("%w: %s cannot be set on %s", ErrInvalidValue, name, el.Type)
	} else {
		cached, ok = setStandard(el.Node, key, value)
	}
	if !ok {
		return fmt.Errorf("%w: %s=%v", ErrInvalidValue, name, value)
	}
	el.Properties.Set(key, cached)
	m.syncExcept(el, key)
	return nil
}

// syncExcept refreshes every cached key but skip from the nodes. One rule
// may change what several keys show (a circle's radius is also its width).
func (m *Manager) syncExcept(el *Element, skip string) {
	keys := slices.DeleteFunc(el.Properties.Keys(), func(k string) bool { return k == skip })
	m.SyncBag(el, keys...)
}

// Rehydrate replays the type-specific entries of el's bag onto its
// sub-nodes, so an element rebuilt from defaults plus saved attributes
// matches its saved properties.
func (m *Manager) Rehydrate(el *Element) {
	rules := strategies[el.Type].rules
	for _, k := range el.Properties.Keys() {
		r, ok := rules[k]
		if !ok {
			continue
		}
		v, _ := el.Properties.Get(k)
		if cached, ok := r(m, el, v); ok {
			el.Properties.Set(k, cached)
		} else {
			m.log.Debug("stale property skipped", slog.String("id", el.ID), slog.String("property", k))
		}
	}
	m.Resync(el)
	m.layer.Draw()
}

var numericAttrs = map[string]bool{
	"x": true, "y": true, "width": true, "height": true, "scaleX": true, "scaleY": true,
	"rotation": true, "fontSize": true, "strokeWidth": true, "radius": true, "opacity": true,
	"lineHeight": true, "padding": true, "cornerRadius": true, "offsetX": true, "offsetY": true,
	"hitStrokeWidth": true, "letterSpacing": true,
}

var boolAttrs = map[string]bool{"draggable": true, "visible": true, "listening": true}

// setStandard writes one attribute directly onto the node.
func setStandard(n *scene.Node, key string, v any) (any, bool) {
	switch {
	case numericAttrs[key]:
		f, ok := scene.Num(v)
		if !ok {
			return nil, false
		}
		switch key {
		case "width":
			n.SetWidth(f)
		case "height":
			n.SetHeight(f)
		default:
			n.SetAttr(key, f)
		}
		return f, true
	case boolAttrs[key]:
		b, ok := toBool(v)
		if !ok {
			return nil, false
		}
		n.SetAttr(key, b)
		return b, true
	case key == "points" || key == "dash":
		n.SetAttr(key, v)
		return n.Attrs()[key], true
	case key == "text":
		s := fmt.Sprint(v)
		n.SetText(s)
		return s, true
	}
	n.SetAttr(key, v)
	return v, true
}

func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "on":
			return true, true
		case "false", "0", "off", "":
			return false, true
		}
	}
	return false, false
}

func str(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case fmt.Stringer:
		return t.String(), true
	}
	return "", false
}

func positive(v any) (float64, bool) {
	f, ok := scene.Num(v)
	return f, ok && f > 0
}

// list

func listBulletStyle(_ *Manager, el *Element, v any) (any, bool) {
	style, ok := str(v)
	if !ok || style == "" {
		return nil, false
	}
	el.Node.SetText(FormatList(el.Node.Text(), style))
	return style, true
}

func listText(_ *Manager, el *Element, v any) (any, bool) {
	raw, ok := str(v)
	if !ok {
		return nil, false
	}
	style := el.Properties.String("bulletStyle")
	if style == "" {
		style = BulletStyles[0]
	}
	el.Node.SetText(FormatList(raw, style))
	return el.Node.Text(), true
}

// image

func imagePlaceholderText(_ *Manager, el *Element, v any) (any, bool) {
	s, ok := str(v)
	if !ok {
		return nil, false
	}
	t := el.Parts.Part(RolePlaceholderText)
	t.SetText(s)
	center(t)
	return s, true
}

func imagePlaceholderFill(_ *Manager, el *Element, v any) (any, bool) {
	s, ok := str(v)
	if !ok {
		return nil, false
	}
	el.Parts.Part(RolePlaceholderRect).SetFill(s)
	return s, true
}

func imageStroke(_ *Manager, el *Element, v any) (any, bool) {
	s, ok := str(v)
	if !ok {
		return nil, false
	}
	el.Parts.Part(RolePlaceholderRect).SetStroke(s)
	return s, true
}

func imageSize(horizontal bool) rule {
	return func(_ *Manager, el *Element, v any) (any, bool) {
		f, ok := positive(v)
		if !ok {
			return nil, false
		}
		rect, text := el.Parts.Part(RolePlaceholderRect), el.Parts.Part(RolePlaceholderText)
		if horizontal {
			el.Node.SetWidth(f)
			rect.SetWidth(f)
			text.SetAttr("x", f/2)
		} else {
			el.Node.SetHeight(f)
			rect.SetHeight(f)
			text.SetAttr("y", f/2)
		}
		return f, true
	}
}

// avatar

func avatarRadius(_ *Manager, el *Element, v any) (any, bool) {
	r, ok := positive(v)
	if !ok {
		return nil, false
	}
	el.Node.SetAttrs(scene.Attrs{"width": r * 2, "height": r * 2})
	c := el.Parts.Part(RoleAvatarCircle)
	c.SetAttrs(scene.Attrs{"radius": r, "x": r, "y": r})
	t := el.Parts.Part(RoleAvatarText)
	t.SetAttrs(scene.Attrs{"fontSize": avatarFontSize(r), "x": r, "y": r})
	center(t)
	return r, true
}

func avatarPlaceholderText(_ *Manager, el *Element, v any) (any, bool) {
	s, ok := str(v)
	if !ok {
		return nil, false
	}
	r := el.Parts.Part(RoleAvatarCircle).Radius()
	t := el.Parts.Part(RoleAvatarText)
	t.SetAttrs(scene.Attrs{"text": s, "x": r, "y": r})
	center(t)
	return s, true
}

func avatarPlaceholderFill(_ *Manager, el *Element, v any) (any, bool) {
	s, ok := str(v)
	if !ok {
		return nil, false
	}
	el.Parts.Part(RoleAvatarCircle).SetFill(s)
	el.Properties.Set("fill", s)
	return s, true
}

func avatarStroke(_ *Manager, el *Element, v any) (any, bool) {
	s, ok := str(v)
	if !ok {
		return nil, false
	}
	el.Parts.Part(RoleAvatarCircle).SetStroke(s)
	return s, true
}

// line

func lineStroke(_ *Manager, el *Element, v any) (any, bool) {
	s, ok := str(v)
	if !ok {
		return nil, false
	}
	el.Node.SetStroke(s)
	return s, true
}

func lineStrokeWidth(_ *Manager, el *Element, v any) (any, bool) {
	f, ok := scene.Num(v)
	if !ok || f < 0 {
		return nil, false
	}
	el.Node.SetAttr("strokeWidth", f)
	return f, true
}

func lineStyle(_ *Manager, el *Element, v any) (any, bool) {
	s, ok := str(v)
	if _, known := dashPatterns[s]; !ok || !known {
		return nil, false
	}
	el.Node.SetAttr("dash", DashFor(s))
	return s, true
}

func lineDash(_ *Manager, el *Element, v any) (any, bool) {
	var d []float64
	switch t := v.(type) {
	case []float64:
		d = slices.Clone(t)
	case []any:
		for _, x := range t {
			f, ok := scene.Num(x)
			if !ok || f < 0 {
				return nil, false
			}
			d = append(d, f)
		}
	default:
		return nil, false
	}
	if d == nil {
		d = []float64{}
	}
	el.Node.SetAttr("dash", d)
	return slices.Clone(d), true
}

// circle

func circleDiameter(_ *Manager, el *Element, v any) (any, bool) {
	f, ok := positive(v)
	if !ok {
		return nil, false
	}
	el.Node.SetRadius(f / 2)
	return f, true
}

func circleRadius(_ *Manager, el *Element, v any) (any, bool) {
	f, ok := positive(v)
	if !ok {
		return nil, false
	}
	el.Node.SetRadius(f)
	return f, true
}

// icon

func iconChar(_ *Manager, el *Element, v any) (any, bool) {
	s, ok := str(v)
	if !ok || s == "" {
		return nil, false
	}
	t := el.Parts.Part(RoleIconText)
	t.SetText(s)
	center(t)
	return s, true
}

func iconSize(_ *Manager, el *Element, v any) (any, bool) {
	f, ok := positive(v)
	if !ok {
		return nil, false
	}
	t := el.Parts.Part(RoleIconText)
	t.SetFontSize(f)
	center(t)
	return f, true
}

func iconColor(_ *Manager, el *Element, v any) (any, bool) {
	s, ok := str(v)
	if !ok {
		return nil, false
	}
	el.Parts.Part(RoleIconText).SetFill(s)
	return s, true
}

func iconBox(_ *Manager, el *Element, v any) (any, bool) {
	f, ok := positive(v)
	if !ok {
		return nil, false
	}
	el.Node.SetAttrs(scene.Attrs{"width": f, "height": f})
	t := el.Parts.Part(RoleIconText)
	t.SetAttrs(scene.Attrs{"x": f / 2, "y": f / 2})
	return f, true
}

// progress bar

func partFill(r Role) rule {
	return func(_ *Manager, el *Element, v any) (any, bool) {
		s, ok := str(v)
		if !ok {
			return nil, false
		}
		el.Parts.Part(r).SetFill(s)
		return s, true
	}
}

func progressBorder(_ *Manager, el *Element, v any) (any, bool) {
	s, ok := str(v)
	if !ok {
		return nil, false
	}
	el.Parts.Part(RoleProgressBackground).SetStroke(s)
	return s, true
}

func clampPercent(f float64) float64 { return math.Min(100, math.Max(0, f)) }

func progressValue(_ *Manager, el *Element, v any) (any, bool) {
	f, ok := scene.Num(v)
	if !ok {
		return nil, false
	}
	f = clampPercent(f)
	bg, fill, text := el.Parts.Part(RoleProgressBackground), el.Parts.Part(RoleProgressFill), el.Parts.Part(RoleProgressText)
	fill.SetWidth(bg.Width() * f / 100)
	text.SetText(percentLabel(f))
	center(text)
	return f, true
}

func progressWidth(_ *Manager, el *Element, v any) (any, bool) {
	w, ok := positive(v)
	if !ok {
		return nil, false
	}
	value := clampPercent(num(el.Properties, "value", 0))
	el.Node.SetWidth(w)
	el.Parts.Part(RoleProgressBackground).SetWidth(w)
	el.Parts.Part(RoleProgressFill).SetWidth(w * value / 100)
	el.Parts.Part(RoleProgressText).SetAttr("x", w/2)
	return w, true
}

func progressHeight(_ *Manager, el *Element, v any) (any, bool) {
	h, ok := positive(v)
	if !ok {
		return nil, false
	}
	el.Node.SetHeight(h)
	for _, r := range []Role{RoleProgressBackground, RoleProgressFill} {
		el.Parts.Part(r).SetAttrs(scene.Attrs{"height": h, "cornerRadius": h / 2})
	}
	el.Parts.Part(RoleProgressText).SetAttr("y", h/2)
	return h, true
}

func progressFontSize(_ *Manager, el *Element, v any) (any, bool) {
	f, ok := positive(v)
	if !ok {
		return nil, false
	}
	t := el.Parts.Part(RoleProgressText)
	t.SetFontSize(f)
	center(t)
	return f, true
}

// rating

func restyleStars(el *Element, rating int) {
	filled, empty := el.Properties.String("filledColor"), el.Properties.String("emptyColor")
	for i, s := range el.Parts.Stars {
		if i < rating {
			s.SetAttrs(scene.Attrs{"text": StarFilled, "fill": filled})
		} else {
			s.SetAttrs(scene.Attrs{"text": StarEmpty, "fill": empty})
		}
	}
}

func ratingValue(_ *Manager, el *Element, v any) (any, bool) {
	f, ok := scene.Num(v)
	if !ok {
		return nil, false
	}
	r := min(max(int(f), 0), len(el.Parts.Stars))
	restyleStars(el, r)
	return float64(r), true
}

func ratingColor(glyph string) rule {
	return func(_ *Manager, el *Element, v any) (any, bool) {
		s, ok := str(v)
		if !ok {
			return nil, false
		}
		for _, star := range el.Parts.Stars {
			if star.Text() == glyph {
				star.SetFill(s)
			}
		}
		return s, true
	}
}

// maxStars bounds a rebuilt star row.
const maxStars = 20

// ratingRebuild recreates the star row after a change to its count or
// geometry, keeping the current rating and colors.
func ratingRebuild(key string) rule {
	return func(_ *Manager, el *Element, v any) (any, bool) {
		f, ok := positive(v)
		if !ok {
			return nil, false
		}
		bag := el.Properties
		total := int(num(bag, "totalStars", float64(len(el.Parts.Stars))))
		size, spacing := num(bag, "starSize", 20), num(bag, "spacing", 5)
		switch key {
		case "totalStars":
			total = int(f)
			if total < 1 || total > maxStars {
				return nil, false
			}
			f = float64(total)
		case "starSize":
			size = f
		case "spacing":
			spacing = f
		}
		rating := min(int(num(bag, "rating", 0)), total)
		bag.Set("rating", float64(rating))
		el.Parts.Stars = buildStars(el.Node, total, rating, size, spacing, bag.String("filledColor"), bag.String("emptyColor"))
		return f, true
	}
}
