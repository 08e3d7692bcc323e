/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor is the canvas session: it owns the stage and its single
// layer, wires the element manager to the gesture bridge and exposes the
// editing commands a front-end binds its controls to.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cvcanvas/internal/config"
	"cvcanvas/internal/document"
	"cvcanvas/internal/element"
	"cvcanvas/internal/export"
	"cvcanvas/internal/gesture"
	"cvcanvas/internal/history"
	applog "cvcanvas/internal/log"
	"cvcanvas/internal/scene"
)

var (
	// ErrNoSelection is returned by commands that act on the selection.
	ErrNoSelection = errors.New("editor: no element selected")
	// ErrUnknownTemplate is returned for an unknown sample template name.
	ErrUnknownTemplate = errors.New("editor: unknown template")
)

// Session is one open canvas. It is not safe for concurrent use; callers
// serving several goroutines serialize access themselves.
type Session struct {
	cfg     config.CanvasConfig
	stage   *scene.Stage
	layer   *scene.Node
	factory *element.Factory
	m       *element.Manager
	bridge  *gesture.Bridge
	notify  *fanout
	now     func() time.Time
	log     *slog.Logger

	settleUntil time.Time
	snap        bool
}

type options struct {
	now      func() time.Time
	feedback gesture.Feedback
	newID    func() string
	history  *history.Log
	notifier element.Notifier
}

type Option func(*options)

// WithClock replaces time.Now for zoom settling and feedback timers.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func WithFeedback(f gesture.Feedback) Option { return func(o *options) { o.feedback = f } }

// WithIDSource replaces the ULID generator for new element ids.
func WithIDSource(fn func() string) Option { return func(o *options) { o.newID = fn } }

func WithHistory(h *history.Log) Option { return func(o *options) { o.history = h } }

// WithNotifier subscribes n before any element exists.
func WithNotifier(n element.Notifier) Option { return func(o *options) { o.notifier = n } }

// New creates a session with an empty page of cfg's size.
func New(cfg config.CanvasConfig, opts ...Option) *Session {
	def := config.Defaults().Canvas
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.MinZoom <= 0 || cfg.MaxZoom < cfg.MinZoom {
		cfg.MinZoom, cfg.MaxZoom = def.MinZoom, def.MaxZoom
	}
	if cfg.ZoomStep <= 0 {
		cfg.ZoomStep = def.ZoomStep
	}
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	if o.history == nil {
		o.history = history.New(history.Config{Now: o.now})
	}

	s := &Session{
		cfg:     cfg,
		stage:   scene.NewStage(cfg.Width, cfg.Height),
		layer:   scene.NewLayer(),
		factory: element.NewFactory(),
		notify:  newFanout(),
		now:     o.now,
		log:     applog.WithComponent("editor"),
		snap:    cfg.SnapToGrid,
	}
	if o.newID != nil {
		s.factory.SetIDSource(o.newID)
	}
	if o.notifier != nil {
		s.notify.add(o.notifier)
	}
	s.stage.Add(s.layer)
	s.m = element.NewManager(s.stage, s.layer, element.WithNotifier(s.notify), element.WithHistory(o.history))
	bopts := []gesture.Option{gesture.WithSnap(s.SnapToGrid), gesture.WithClock(o.now)}
	if o.feedback != nil {
		bopts = append(bopts, gesture.WithFeedback(o.feedback))
	}
	s.bridge = gesture.New(s.m, bopts...)
	return s
}

// Subscribe adds a notifier and returns a func removing it.
func (s *Session) Subscribe(n element.Notifier) func() { return s.notify.add(n) }

func (s *Session) Stage() *scene.Stage         { return s.stage }
func (s *Session) Layer() *scene.Node          { return s.layer }
func (s *Session) Manager() *element.Manager   { return s.m }
func (s *Session) Bridge() *gesture.Bridge     { return s.bridge }
func (s *Session) History() *history.Log       { return s.m.History() }
func (s *Session) Config() config.CanvasConfig { return s.cfg }

// ElementCount is the number of live elements.
func (s *Session) ElementCount() int { return s.m.Len() }

func (s *Session) Selected() *element.Element { return s.m.Selected() }

// Select selects the element with id.
func (s *Session) Select(id string) bool {
	el, ok := s.m.Get(id)
	if !ok {
		return false
	}
	s.m.Select(el)
	return true
}

func (s *Session) Deselect() { s.m.Deselect() }

// Tick advances timers such as the nudge readout.
func (s *Session) Tick() { s.bridge.Tick(s.now()) }

// Create adds a new element of type t at the next cascade position.
func (s *Session) Create(t element.Type) (*element.Element, error) {
	return s.CreateAt(t, nil)
}

// CreateAt adds a new element of type t at pos, or the cascade position when pos is nil.
func (s *Session) CreateAt(t element.Type, pos *scene.Pt) (*element.Element, error) {
	n, err := s.factory.Create(t, pos)
	if err != nil {
		return nil, err
	}
	return s.register(n, t, nil, false)
}

// register adds n to the manager, binds gestures and logs an add entry.
// Rehydrate replays the property bag onto freshly built composites.
func (s *Session) register(n *scene.Node, t element.Type, props *document.Properties, rehydrate bool) (*element.Element, error) {
	el, err := s.m.Add(n, t, props)
	if err != nil {
		return nil, err
	}
	if rehydrate {
		s.m.Rehydrate(el)
	}
	s.bridge.Bind(el)
	p := n.Position()
	s.m.Record(history.ActionAdd, history.Data{
		ElementID: el.ID,
		After:     map[string]any{"type": string(t), "x": p.X, "y": p.Y},
	})
	return el, nil
}

// UpdateProperty sets a property on the selection, as the properties panel
// does, and logs a property entry.
func (s *Session) UpdateProperty(name string, value any) error {
	el := s.m.Selected()
	if el == nil {
		return ErrNoSelection
	}
	key := element.Canonical(name)
	before, _ := el.Value(key)
	if err := s.m.SetProperty(el, name, value); err != nil {
		return err
	}
	after, _ := el.Properties.Get(key)
	s.m.Record(history.ActionProperty, history.Data{
		ElementID: el.ID,
		Property:  key,
		Before:    map[string]any{key: before},
		After:     map[string]any{key: after},
	})
	return nil
}

// ToggleFontStyle flips bold, italic or underline on the selection.
func (s *Session) ToggleFontStyle(style string) error {
	el := s.m.Selected()
	if el == nil {
		return ErrNoSelection
	}
	return s.m.ToggleFontStyle(el, style)
}

// DeleteSelected removes the selection. It reports whether anything was removed.
func (s *Session) DeleteSelected() bool {
	el := s.m.Selected()
	if el == nil {
		return false
	}
	before := map[string]any(el.Node.Attrs())
	before["type"] = string(el.Type)
	if !s.m.Remove(el.ID) {
		return false
	}
	s.m.Record(history.ActionRemove, history.Data{ElementID: el.ID, Before: before})
	return true
}

// Copy stores the selection in the clipboard slot.
func (s *Session) Copy() bool { return s.m.Copy() }

// Paste adds a copy of the clipboard element offset from the original.
func (s *Session) Paste() (*element.Element, error) {
	d, ok := s.m.Paste()
	if !ok {
		return nil, fmt.Errorf("%w: clipboard is empty", ErrNoSelection)
	}
	x, _ := scene.Num(d.Attrs["x"])
	y, _ := scene.Num(d.Attrs["y"])
	n, err := s.factory.Create(d.Type, &scene.Pt{X: x, Y: y})
	if err != nil {
		return nil, err
	}
	d.Attrs["id"] = n.ID()
	n.SetAttrs(d.Attrs)
	return s.register(n, d.Type, d.Properties, true)
}

// Export snapshots every live element as the save payload.
func (s *Session) Export() document.Document { return s.m.Export() }

// ExportJSON renders Export as indented JSON.
func (s *Session) ExportJSON() ([]byte, error) { return s.m.Export().Marshal() }

// Page describes the canvas for the renderers. Zoom and pan are not part
// of it; the layer is rendered at its natural size.
func (s *Session) Page(title string) export.Page {
	return export.Page{Width: s.cfg.Width, Height: s.cfg.Height, Root: s.layer, Title: title}
}

var templates = map[string][]element.Type{
	"modern": {
		element.Heading, element.Text, element.Avatar, element.Text, element.Text,
		element.Heading, element.Rectangle, element.Circle, element.ProgressBar, element.Rating,
	},
	"creative": {element.Rectangle, element.Heading, element.Icon, element.ProgressBar, element.Rating},
}

// TemplateNames lists the sample templates.
func TemplateNames() []string { return []string{"modern", "creative"} }

// LoadSampleTemplate appends the element sequence of a sample template.
func (s *Session) LoadSampleTemplate(name string) error {
	seq, ok := templates[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	for _, t := range seq {
		if _, err := s.Create(t); err != nil {
			return fmt.Errorf("template %s: %w", name, err)
		}
	}
	return nil
}
