/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene is the retained-mode scene graph the editor draws into:
// a Stage holding Layers of Group/Text/Rect/Circle/Line nodes with free-form
// attribute bags, named tags, bubbling events, hit-testing, a resize handle
// overlay and JSON (de)serialization of whole trees.
package scene

import (
	"slices"
	"strings"

	"cvcanvas/internal/textlayout"
)

// Kind is the structural class of a node. Its string form is the
// "className" used in serialized trees.
type Kind string

const (
	KindStage       Kind = "Stage"
	KindLayer       Kind = "Layer"
	KindGroup       Kind = "Group"
	KindText        Kind = "Text"
	KindRect        Kind = "Rect"
	KindCircle      Kind = "Circle"
	KindLine        Kind = "Line"
	KindTransformer Kind = "Transformer"
)

// Attrs is a node's attribute bag. Values are float64, string, bool or []float64.
type Attrs map[string]any

// Measurer measures Text nodes that have no explicit width/height.
var Measurer textlayout.Provider = textlayout.Default

// Node is one item in the tree. Containers (Stage, Layer, Group) have
// children; shapes are leaves.
type Node struct {
	kind     Kind
	attrs    Attrs
	parent   *Node
	children []*Node
	handlers map[string][]Handler

	stage *Stage       // set on the root node of a Stage
	tr    *Transformer // set on the node backing a Transformer

	// layer bookkeeping
	dirty bool
	draws int
}

func newNode(k Kind, a Attrs) *Node {
	n := &Node{kind: k, attrs: Attrs{}}
	for key, v := range a {
		n.attrs[key] = normalize(key, v)
	}
	return n
}

func NewGroup(a Attrs) *Node  { return newNode(KindGroup, a) }
func NewText(a Attrs) *Node   { return newNode(KindText, a) }
func NewRect(a Attrs) *Node   { return newNode(KindRect, a) }
func NewCircle(a Attrs) *Node { return newNode(KindCircle, a) }
func NewLine(a Attrs) *Node   { return newNode(KindLine, a) }
func NewLayer() *Node         { return newNode(KindLayer, nil) }

func (n *Node) Kind() Kind        { return n.kind }
func (n *Node) ClassName() string { return string(n.kind) }
func (n *Node) Parent() *Node     { return n.parent }
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// IsContainer reports whether n may hold children.
func (n *Node) IsContainer() bool {
	return n.kind == KindStage || n.kind == KindLayer || n.kind == KindGroup
}

// Transformer returns the overlay backed by n, if any.
func (n *Node) Transformer() *Transformer { return n.tr }

// Attr returns the raw attribute value.
func (n *Node) Attr(key string) (any, bool) {
	v, ok := n.attrs[key]
	return v, ok
}

// Attrs returns a copy of the attribute bag.
func (n *Node) Attrs() Attrs {
	out := make(Attrs, len(n.attrs))
	for k, v := range n.attrs {
		if f, ok := v.([]float64); ok {
			v = slices.Clone(f)
		}
		out[k] = v
	}
	return out
}

// SetAttr stores one attribute and marks the owning layer for redraw.
func (n *Node) SetAttr(key string, v any) {
	if v == nil {
		delete(n.attrs, key)
	} else {
		n.attrs[key] = normalize(key, v)
	}
	n.markDirty()
}

// SetAttrs merges a into the attribute bag.
func (n *Node) SetAttrs(a Attrs) {
	for k, v := range a {
		if v == nil {
			delete(n.attrs, k)
			continue
		}
		n.attrs[k] = normalize(k, v)
	}
	n.markDirty()
}

// normalize converts decoded JSON values into the canonical attribute types.
func normalize(key string, v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]float64, 0, len(t))
		for _, e := range t {
			if f, ok := Num(e); ok {
				out = append(out, f)
			}
		}
		return out
	case []float64:
		return slices.Clone(t)
	case []int:
		out := make([]float64, len(t))
		for i, e := range t {
			out[i] = float64(e)
		}
		return out
	case int, int64, int32, float32:
		f, _ := Num(t)
		return f
	}
	return v
}

var floatDefaults = map[string]float64{
	"scaleX": 1, "scaleY": 1, "opacity": 1, "lineHeight": 1, "fontSize": 12,
}

// Float reads a numeric attribute, falling back to the class default.
func (n *Node) Float(key string) float64 {
	if f, ok := Num(n.attrs[key]); ok {
		return f
	}
	if key == "strokeWidth" {
		return 2
	}
	return floatDefaults[key]
}

// Str reads a string attribute.
func (n *Node) Str(key string) string {
	s, _ := n.attrs[key].(string)
	return s
}

// Bool reads a boolean attribute with a default.
func (n *Node) Bool(key string, def bool) bool {
	if b, ok := n.attrs[key].(bool); ok {
		return b
	}
	return def
}

func (n *Node) ID() string          { return n.Str("id") }
func (n *Node) SetID(id string)     { n.SetAttr("id", id) }
func (n *Node) Name() string        { return n.Str("name") }
func (n *Node) SetName(name string) { n.SetAttr("name", name) }

// HasName reports whether name is one of the space-separated tags in the name attribute.
func (n *Node) HasName(name string) bool {
	return slices.Contains(strings.Fields(n.Name()), name)
}

// AddName appends a tag to the name attribute unless present.
func (n *Node) AddName(name string) {
	if n.HasName(name) {
		return
	}
	n.SetName(strings.TrimSpace(n.Name() + " " + name))
}

func (n *Node) X() float64 { return n.Float("x") }
func (n *Node) Y() float64 { return n.Float("y") }

func (n *Node) Position() Pt { return Pt{n.X(), n.Y()} }

func (n *Node) SetPosition(p Pt) { n.SetAttrs(Attrs{"x": p.X, "y": p.Y}) }

func (n *Node) ScaleX() float64 { return n.Float("scaleX") }
func (n *Node) ScaleY() float64 { return n.Float("scaleY") }
func (n *Node) SetScale(sx, sy float64) {
	n.SetAttrs(Attrs{"scaleX": sx, "scaleY": sy})
}

func (n *Node) Opacity() float64       { return n.Float("opacity") }
func (n *Node) SetOpacity(v float64)   { n.SetAttr("opacity", v) }
func (n *Node) Draggable() bool        { return n.Bool("draggable", false) }
func (n *Node) SetDraggable(v bool)    { n.SetAttr("draggable", v) }
func (n *Node) Listening() bool        { return n.Bool("listening", true) }
func (n *Node) Visible() bool          { return n.Bool("visible", true) }
func (n *Node) Text() string           { return n.Str("text") }
func (n *Node) SetText(s string)       { n.SetAttr("text", s) }
func (n *Node) FontSize() float64      { return n.Float("fontSize") }
func (n *Node) SetFontSize(v float64)  { n.SetAttr("fontSize", v) }
func (n *Node) Fill() string           { return n.Str("fill") }
func (n *Node) SetFill(c string)       { n.SetAttr("fill", c) }
func (n *Node) Stroke() string         { return n.Str("stroke") }
func (n *Node) SetStroke(c string)     { n.SetAttr("stroke", c) }
func (n *Node) StrokeWidth() float64   { return n.Float("strokeWidth") }
func (n *Node) Radius() float64        { return n.Float("radius") }
func (n *Node) SetRadius(r float64)    { n.SetAttr("radius", r) }
func (n *Node) SetOffset(x, y float64) { n.SetAttrs(Attrs{"offsetX": x, "offsetY": y}) }

func (n *Node) FontFamily() string {
	if s := n.Str("fontFamily"); s != "" {
		return s
	}
	return "Arial"
}

func (n *Node) FontStyle() string {
	if s := n.Str("fontStyle"); s != "" {
		return s
	}
	return "normal"
}

// Points returns a copy of a Line's flat [x0,y0,x1,y1,...] list.
func (n *Node) Points() []float64 {
	p, _ := n.attrs["points"].([]float64)
	return slices.Clone(p)
}

func (n *Node) Dash() []float64 {
	d, _ := n.attrs["dash"].([]float64)
	return slices.Clone(d)
}

// FontSpec is the font a Text node renders with.
func (n *Node) FontSpec() textlayout.FontSpec {
	st := n.FontStyle()
	return textlayout.FontSpec{
		Family: n.FontFamily(),
		Size:   n.FontSize(),
		Bold:   strings.Contains(st, "bold"),
		Italic: strings.Contains(st, "italic"),
	}
}

// TextBox lays out a Text node's content using its width, lineHeight and padding.
func (n *Node) TextBox() textlayout.Box {
	w, _ := Num(n.attrs["width"])
	return textlayout.Layout(Measurer, n.FontSpec(), n.Text(), textlayout.Options{
		Width:      w,
		LineHeight: n.Float("lineHeight"),
		Padding:    n.Float("padding"),
	})
}

// Width is class-aware: circles report their diameter, text without an
// explicit width measures itself, lines span their points.
func (n *Node) Width() float64 {
	switch n.kind {
	case KindCircle:
		return n.Radius() * 2
	case KindText:
		if w, ok := Num(n.attrs["width"]); ok {
			return w
		}
		return n.TextBox().Width
	case KindLine:
		return n.selfRect().W
	}
	return n.Float("width")
}

func (n *Node) Height() float64 {
	switch n.kind {
	case KindCircle:
		return n.Radius() * 2
	case KindText:
		if h, ok := Num(n.attrs["height"]); ok {
			return h
		}
		return n.TextBox().Height
	case KindLine:
		return n.selfRect().H
	}
	return n.Float("height")
}

func (n *Node) SetWidth(w float64) {
	if n.kind == KindCircle {
		n.SetRadius(w / 2)
		return
	}
	n.SetAttr("width", w)
}

func (n *Node) SetHeight(h float64) {
	if n.kind == KindCircle {
		n.SetRadius(h / 2)
		return
	}
	n.SetAttr("height", h)
}

// Add appends children, detaching them from any previous parent.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if c == nil {
			continue
		}
		c.Remove()
		c.parent = n
		n.children = append(n.children, c)
	}
	n.markDirty()
	return n
}

// Remove detaches n from its parent without destroying it.
func (n *Node) Remove() {
	p := n.parent
	if p == nil {
		return
	}
	p.markDirty()
	if i := slices.Index(p.children, n); i >= 0 {
		p.children = slices.Delete(p.children, i, i+1)
	}
	n.parent = nil
}

// Destroy detaches n, drops its handlers and destroys its subtree.
func (n *Node) Destroy() {
	n.DestroyChildren()
	n.Remove()
	n.handlers = nil
	if n.tr != nil {
		n.tr.nodes = nil
	}
}

func (n *Node) DestroyChildren() {
	for _, c := range slices.Clone(n.children) {
		c.Destroy()
	}
	n.children = nil
	n.markDirty()
}

// MoveToTop puts n last in its parent's draw order.
func (n *Node) MoveToTop() {
	p := n.parent
	if p == nil {
		return
	}
	if i := slices.Index(p.children, n); i >= 0 && i != len(p.children)-1 {
		p.children = append(slices.Delete(p.children, i, i+1), n)
		p.markDirty()
	}
}

// ZIndex is the position of n among its siblings.
func (n *Node) ZIndex() int {
	if n.parent == nil {
		return 0
	}
	return slices.Index(n.parent.children, n)
}

// Find returns descendants matching selector: ".tag" by name tag, "#id" by id,
// anything else by class name.
func (n *Node) Find(selector string) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(p *Node) {
		for _, c := range p.children {
			if c.matches(selector) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// FindOne returns the first descendant matching selector, or nil.
func (n *Node) FindOne(selector string) *Node {
	if all := n.Find(selector); len(all) > 0 {
		return all[0]
	}
	return nil
}

func (n *Node) matches(sel string) bool {
	switch {
	case strings.HasPrefix(sel, "."):
		return n.HasName(sel[1:])
	case strings.HasPrefix(sel, "#"):
		return n.ID() == sel[1:]
	default:
		return string(n.kind) == sel
	}
}

// Layer returns the enclosing layer (or n itself if it is one).
func (n *Node) Layer() *Node {
	for p := n; p != nil; p = p.parent {
		if p.kind == KindLayer {
			return p
		}
	}
	return nil
}

// Stage returns the stage n is attached to, or nil.
func (n *Node) Stage() *Stage {
	p := n
	for p.parent != nil {
		p = p.parent
	}
	return p.stage
}

func (n *Node) markDirty() {
	if l := n.Layer(); l != nil {
		l.dirty = true
	}
}

// Draw repaints a layer synchronously. On other nodes it draws their layer.
func (n *Node) Draw() {
	l := n.Layer()
	if l == nil {
		return
	}
	l.dirty = false
	l.draws++
}

// BatchDraw coalesces with an already pending draw.
func (n *Node) BatchDraw() {
	if l := n.Layer(); l != nil && l.dirty {
		l.Draw()
	}
}

// Dirty reports whether the layer has mutations not yet drawn.
func (n *Node) Dirty() bool { return n.dirty }

// Draws counts how many times the layer has been drawn.
func (n *Node) Draws() int { return n.draws }

// Clone deep-copies n and its subtree without handlers or parent.
func (n *Node) Clone() *Node {
	c := &Node{kind: n.kind, attrs: n.Attrs()}
	for _, ch := range n.children {
		cc := ch.Clone()
		cc.parent = c
		c.children = append(c.children, cc)
	}
	return c
}
