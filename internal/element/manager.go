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

	"cvcanvas/internal/document"
	"cvcanvas/internal/history"
	applog "cvcanvas/internal/log"
	"cvcanvas/internal/scene"
)

// Element is one registry entry. Node is owned by the entry; code outside
// this package must not reach into its sub-nodes.
type Element struct {
	ID         string
	Type       Type
	Node       *scene.Node
	Parts      Parts
	Properties *document.Properties
}

// Notifier receives the UI refreshes the manager triggers.
type Notifier interface {
	ElementCountChanged(n int)
	// PropertiesPanelRefresh renders the panel for el; nil clears it.
	PropertiesPanelRefresh(el *Element)
	ElementInfo(text string)
}

// NopNotifier ignores every notification.
type NopNotifier struct{}

func (NopNotifier) ElementCountChanged(int)         {}
func (NopNotifier) PropertiesPanelRefresh(*Element) {}
func (NopNotifier) ElementInfo(string)              {}

// Descriptor is a copied element waiting to be pasted.
type Descriptor struct {
	Type       Type
	Attrs      scene.Attrs
	Properties *document.Properties
}

// PasteOffset is added to both coordinates of a pasted element.
const PasteOffset = 20

// Handle anchors used for lines.
var lineAnchors = []string{scene.MiddleLeft, scene.MiddleRight, scene.TopLeft, scene.TopRight, scene.BottomLeft, scene.BottomRight}

// Manager is the element registry plus the selection controller and the
// property dispatcher.
type Manager struct {
	stage *scene.Stage
	layer *scene.Node
	tr    *scene.Transformer

	elements map[string]*Element
	order    []string
	selected *Element
	copied   *Descriptor

	history *history.Log
	notify  Notifier
	log     *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

func WithNotifier(n Notifier) Option { return func(m *Manager) { m.notify = n } }

func WithHistory(h *history.Log) Option { return func(m *Manager) { m.history = h } }

// NewManager registers the surface-level click bindings on stage and puts
// a fresh transformer into layer.
func NewManager(stage *scene.Stage, layer *scene.Node, opts ...Option) *Manager {
	m := &Manager{
		stage:    stage,
		layer:    layer,
		elements: make(map[string]*Element),
		notify:   NopNotifier{},
		log:      applog.WithComponent("element"),
	}
	for _, o := range opts {
		o(m)
	}
	if m.history == nil {
		m.history = history.New(history.Config{})
	}
	m.InitTransformer()
	if stage != nil {
		stage.On("click tap", m.onSurfaceClick)
	}
	return m
}

// InitTransformer destroys any previous overlay and adds a new one.
func (m *Manager) InitTransformer() {
	if m.tr != nil {
		m.tr.SetNodes()
		m.tr.Node().Destroy()
	}
	m.tr = scene.NewTransformer(scene.TransformerConfig{
		KeepRatio:     false,
		RotateEnabled: false,
		BorderDash:    []float64{8, 4},
		BorderStroke:  "#667eea",
		AnchorStroke:  "#667eea",
		AnchorFill:    "#ffffff",
		AnchorSize:    10,
	})
	if m.layer != nil {
		m.layer.Add(m.tr.Node())
	}
}

func (m *Manager) Transformer() *scene.Transformer { return m.tr }
func (m *Manager) Layer() *scene.Node              { return m.layer }
func (m *Manager) Stage() *scene.Stage             { return m.stage }
func (m *Manager) History() *history.Log           { return m.history }

// Record appends to the history log.
func (m *Manager) Record(action string, data history.Data) {
	m.history.Record(action, data)
}

// Add registers node as an element of type t, attaches it to the layer if
// needed and selects it. A nil props uses the type defaults. An element
// already registered under the node's id is removed first.
func (m *Manager) Add(node *scene.Node, t Type, props *document.Properties) (*Element, error) {
	if node == nil {
		return nil, ErrMissingArgument
	}
	if _, ok := ParseType(string(t)); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	parts, err := bindParts(t, node)
	if err != nil {
		return nil, err
	}
	if props == nil {
		props = DefaultProperties(t)
	}
	node.SetDraggable(true)
	node.AddName(EditableTag)
	node.AddName(t.Tag())
	el := &Element{ID: node.ID(), Type: t, Node: node, Parts: parts, Properties: props.Clone()}
	if old, dup := m.elements[el.ID]; dup {
		if old.Node != node {
			// A new node under a taken id replaces the old element entirely.
			m.Remove(el.ID)
		} else {
			m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == el.ID })
		}
	}
	m.elements[el.ID] = el
	m.order = append(m.order, el.ID)
	if node.Parent() == nil && m.layer != nil {
		m.layer.Add(node)
	}
	m.layer.Draw()
	m.Select(el)
	m.log.Debug("element added", slog.String("id", el.ID), slog.String("type", string(t)))
	m.notify.ElementCountChanged(len(m.order))
	return el, nil
}

// Remove deselects the element if needed, destroys its node and forgets it.
func (m *Manager) Remove(id string) bool {
	el, ok := m.elements[id]
	if !ok {
		return false
	}
	if m.selected == el {
		m.Deselect()
	}
	el.Node.Destroy()
	delete(m.elements, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	m.layer.Draw()
	m.notify.ElementCountChanged(len(m.order))
	return true
}

// Clear destroys every element and rebuilds the transformer.
func (m *Manager) Clear() {
	m.Deselect()
	for _, id := range m.order {
		m.elements[id].Node.Destroy()
	}
	m.elements = make(map[string]*Element)
	m.order = nil
	m.InitTransformer()
	m.layer.Draw()
	m.notify.ElementCountChanged(0)
}

func (m *Manager) Get(id string) (*Element, bool) {
	el, ok := m.elements[id]
	return el, ok
}

func (m *Manager) Len() int { return len(m.order) }

// Elements returns the registry in insertion order.
func (m *Manager) Elements() []*Element {
	out := make([]*Element, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.elements[id])
	}
	return out
}

// ElementFor finds the registered element owning n, walking up from
// sub-nodes to their group.
func (m *Manager) ElementFor(n *scene.Node) (*Element, bool) {
	for p := n; p != nil; p = p.Parent() {
		if el, ok := m.elements[p.ID()]; ok && el.Node == p {
			return el, true
		}
	}
	return nil, false
}

func (m *Manager) Selected() *Element { return m.selected }

// Select makes el the single selection and configures the overlay for it.
func (m *Manager) Select(el *Element) {
	if el == nil || m.elements[el.ID] != el {
		return
	}
	m.Deselect()
	m.selected = el
	el.Node.MoveToTop()
	m.tr.SetNodes(el.Node)
	m.tr.MoveToTop()
	if el.Type == Line {
		m.tr.SetEnabledAnchors(lineAnchors)
	} else {
		m.tr.SetEnabledAnchors(nil)
	}
	m.tr.SetKeepRatio(false)
	m.tr.SetRotateEnabled(false)
	m.layer.Draw()
	m.notify.PropertiesPanelRefresh(el)
	m.notify.ElementInfo(Info(el))
}

// Deselect detaches the overlay and clears the panel. No-op when idle.
func (m *Manager) Deselect() {
	if m.selected == nil {
		return
	}
	m.tr.SetNodes()
	m.selected = nil
	m.layer.Draw()
	m.notify.PropertiesPanelRefresh(nil)
}

// RefreshPanel re-renders the panel for the current selection.
func (m *Manager) RefreshPanel() {
	if m.selected != nil {
		m.notify.PropertiesPanelRefresh(m.selected)
	}
}

// Info is the status readout for el.
func Info(el *Element) string {
	return fmt.Sprintf("%s - X: %d, Y: %d", el.Type, int(math.Round(el.Node.X())), int(math.Round(el.Node.Y())))
}

func (m *Manager) onSurfaceClick(e *scene.Event) {
	t := e.Target
	if t == nil || t == m.stage.Node {
		m.Deselect()
		return
	}
	if el, ok := m.ElementFor(t); ok {
		if el.Node.HasName(EditableTag) {
			m.Select(el)
		}
		return
	}
	if t.Kind() == scene.KindRect {
		m.Deselect()
	}
}

// Copy snapshots the selection into the clipboard slot.
func (m *Manager) Copy() bool {
	if m.selected == nil {
		return false
	}
	m.copied = &Descriptor{
		Type:       m.selected.Type,
		Attrs:      m.selected.Node.Attrs(),
		Properties: m.selected.Properties.Clone(),
	}
	return true
}

// Paste returns a descriptor for a new element offset from the copied one.
// The caller builds and registers the node so it gets a fresh identity.
func (m *Manager) Paste() (Descriptor, bool) {
	if m.copied == nil {
		return Descriptor{}, false
	}
	attrs := scene.Attrs{}
	for k, v := range m.copied.Attrs {
		attrs[k] = v
	}
	delete(attrs, "id")
	x, _ := scene.Num(attrs["x"])
	y, _ := scene.Num(attrs["y"])
	attrs["x"], attrs["y"] = x+PasteOffset, y+PasteOffset
	return Descriptor{Type: m.copied.Type, Attrs: attrs, Properties: m.copied.Properties.Clone()}, true
}

// Export snapshots every live element in registry order.
func (m *Manager) Export() document.Document {
	doc := document.Document{Elements: []document.Record{}}
	for _, el := range m.Elements() {
		doc.Elements = append(doc.Elements, document.Record{
			ID:         el.ID,
			Type:       string(el.Type),
			Attrs:      map[string]any(el.Node.Attrs()),
			Properties: el.Properties.Clone(),
		})
	}
	return doc
}

// Resync refreshes every bag entry from the nodes.
func (m *Manager) Resync(el *Element) { m.syncExcept(el, "") }

// SyncBag refreshes bag entries that already exist for keys from the node.
// Gestures that move or resize a node directly call it once they finish.
func (m *Manager) SyncBag(el *Element, keys ...string) {
	for _, k := range keys {
		if _, ok := el.Properties.Get(k); !ok {
			continue
		}
		if v, ok := el.Value(k); ok {
			el.Properties.Set(k, v)
		}
	}
}
