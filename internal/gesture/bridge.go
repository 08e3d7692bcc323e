/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package gesture translates pointer and keyboard gestures on element nodes
// into selection changes, property updates and history entries.
package gesture

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"cvcanvas/internal/element"
	"cvcanvas/internal/history"
	applog "cvcanvas/internal/log"
	"cvcanvas/internal/scene"
)

// Events is every event type Bind owns on an element node.
const Events = "dragstart dragmove dragend click tap mouseenter mouseleave contextmenu transformstart transform transformend dblclick dbltap"

// FeedbackDelay is how long a keyboard nudge readout stays visible.
const FeedbackDelay = time.Second

// Readout offset from the element origin in screen space.
var feedbackOffset = scene.Pt{X: 10, Y: -30}

// Feedback is the transient UI a front-end shows during gestures.
type Feedback interface {
	ShowPosition(label string, screen scene.Pt)
	HidePosition()
	SetCursor(cursor string)
	// MirrorPosition updates the panel x/y fields without a dispatch.
	MirrorPosition(x, y float64)
	ContextMenu(el *element.Element, clientX, clientY float64)
}

type NopFeedback struct{}

func (NopFeedback) ShowPosition(string, scene.Pt)                  {}
func (NopFeedback) HidePosition()                                  {}
func (NopFeedback) SetCursor(string)                               {}
func (NopFeedback) MirrorPosition(float64, float64)                {}
func (NopFeedback) ContextMenu(*element.Element, float64, float64) {}

// Bridge owns the per-element bindings and the state of the gesture in
// progress. There is at most one drag, transform or text edit at a time.
type Bridge struct {
	m     *element.Manager
	stage *scene.Stage
	fb    Feedback
	snap  func(float64) float64
	now   func() time.Time
	log   *slog.Logger

	dragging       bool
	dragStart      scene.Pt
	transformStart map[string]any
	edit           *TextEdit
	hideAt         time.Time
}

type Option func(*Bridge)

func WithFeedback(f Feedback) Option { return func(b *Bridge) { b.fb = f } }

// WithSnap sets the function applied to the final position of a drag.
func WithSnap(fn func(float64) float64) Option { return func(b *Bridge) { b.snap = fn } }

func WithClock(now func() time.Time) Option { return func(b *Bridge) { b.now = now } }

// New creates a bridge and registers the keyboard nudge handler on the stage.
func New(m *element.Manager, opts ...Option) *Bridge {
	b := &Bridge{
		m:     m,
		stage: m.Stage(),
		fb:    NopFeedback{},
		snap:  func(v float64) float64 { return v },
		now:   time.Now,
		log:   applog.WithComponent("gesture"),
	}
	for _, o := range opts {
		o(b)
	}
	if b.stage != nil {
		b.stage.On("keydown", b.onKey)
	}
	return b
}

// Dragging reports whether an element drag is in progress.
func (b *Bridge) Dragging() bool { return b.dragging }

// Editing returns the open text overlay, or nil.
func (b *Bridge) Editing() *TextEdit { return b.edit }

// ScreenPoint maps a stage-space position to screen space using the
// current zoom and pan.
func ScreenPoint(st *scene.Stage, p scene.Pt) scene.Pt {
	s := st.Zoom()
	return scene.Pt{X: p.X*s + st.X(), Y: p.Y*s + st.Y()}
}

func positionLabel(p scene.Pt) string {
	return fmt.Sprintf("X: %d, Y: %d", int(math.Round(p.X)), int(math.Round(p.Y)))
}

func (b *Bridge) showPosition(p scene.Pt) {
	sp := ScreenPoint(b.stage, p)
	b.fb.ShowPosition(positionLabel(p), scene.Pt{X: sp.X + feedbackOffset.X, Y: sp.Y + feedbackOffset.Y})
}

// Tick hides a pending nudge readout once its delay has passed.
func (b *Bridge) Tick(now time.Time) {
	if !b.hideAt.IsZero() && !now.Before(b.hideAt) {
		b.hideAt = time.Time{}
		b.fb.HidePosition()
	}
}

// Bind (re)installs the gesture handlers on el's node. Existing handlers
// for the owned events are removed first.
func (b *Bridge) Bind(el *element.Element) {
	n := el.Node
	n.Off(Events)
	n.SetDraggable(true)
	n.AddName(element.EditableTag)

	n.On("dragstart", func(e *scene.Event) { b.dragBegin(el) })
	n.On("dragmove", func(e *scene.Event) {
		p := n.Position()
		b.showPosition(p)
		b.fb.MirrorPosition(math.Round(p.X), math.Round(p.Y))
	})
	n.On("dragend", func(e *scene.Event) { b.dragEnd(el) })

	n.On("click tap", func(e *scene.Event) {
		e.CancelBubble = true
		b.m.Select(el)
	})
	n.On("mouseenter", func(e *scene.Event) {
		if !b.dragging {
			b.fb.SetCursor("move")
		}
	})
	n.On("mouseleave", func(e *scene.Event) {
		if !b.dragging {
			b.fb.SetCursor("default")
		}
	})
	n.On("contextmenu", func(e *scene.Event) {
		e.PreventDefault()
		b.m.Select(el)
		b.fb.ContextMenu(el, e.ClientX, e.ClientY)
	})

	n.On("transformstart", func(e *scene.Event) { b.transformStart = transformSnapshot(n) })
	n.On("transform", func(e *scene.Event) {
		if el.Type.IsText() {
			foldScale(n)
		}
	})
	n.On("transformend", func(e *scene.Event) { b.transformEnd(el) })

	if n.Kind() == scene.KindText {
		n.On("dblclick dbltap", func(e *scene.Event) { b.EditText(el) })
	}
	if el.Type == element.Rating {
		n.On("click tap", func(e *scene.Event) { b.ratingClick(el) })
	}
}

func (b *Bridge) dragBegin(el *element.Element) {
	b.dragging = true
	b.hideAt = time.Time{}
	b.dragStart = el.Node.Position()
	el.Node.SetOpacity(0.8)
	if b.m.Selected() != el {
		b.m.Select(el)
	}
	b.fb.SetCursor("grabbing")
}

func (b *Bridge) dragEnd(el *element.Element) {
	b.dragging = false
	n := el.Node
	n.SetOpacity(1)
	b.fb.SetCursor("move")
	final := n.Position()
	if snapped := (scene.Pt{X: b.snap(final.X), Y: b.snap(final.Y)}); snapped != final {
		n.SetPosition(snapped)
		final = snapped
	}
	b.m.SyncBag(el, "x", "y")
	n.Draw()
	b.m.RefreshPanel()
	b.fb.HidePosition()
	if final != b.dragStart {
		b.m.Record(history.ActionMove, history.Data{
			ElementID: el.ID,
			Before:    map[string]any{"x": b.dragStart.X, "y": b.dragStart.Y},
			After:     map[string]any{"x": final.X, "y": final.Y},
		})
	}
}

// transformSnapshot captures what is needed to reconstruct the node's
// geometry: all attributes plus resolved size and line points.
func transformSnapshot(n *scene.Node) map[string]any {
	s := map[string]any(n.Attrs())
	s["width"] = n.Width()
	s["height"] = n.Height()
	if n.Kind() == scene.KindLine {
		s["points"] = n.Points()
	}
	return s
}

// foldScale turns a non-unit scale into explicit width/height so text is
// never rendered stretched.
func foldScale(n *scene.Node) {
	sx, sy := n.ScaleX(), n.ScaleY()
	if sx == 1 && sy == 1 {
		return
	}
	n.SetAttrs(scene.Attrs{
		"width":  n.Width() * sx,
		"height": n.Height() * sy,
		"scaleX": 1.0,
		"scaleY": 1.0,
	})
}

func (b *Bridge) transformEnd(el *element.Element) {
	before := b.transformStart
	b.transformStart = nil
	b.m.Resync(el)
	b.m.RefreshPanel()
	b.m.Record(history.ActionTransform, history.Data{
		ElementID: el.ID,
		Before:    before,
		After:     transformSnapshot(el.Node),
	})
}

// ratingClick sets the rating to the clicked star.
func (b *Bridge) ratingClick(el *element.Element) {
	stars := el.Parts.Stars
	if len(stars) == 0 {
		return
	}
	p, ok := el.Node.RelativePointerPosition()
	if !ok {
		return
	}
	spacing := 5.0
	if v, ok := el.Properties.Get("spacing"); ok {
		if f, ok := scene.Num(v); ok {
			spacing = f
		}
	}
	idx := int(math.Floor(p.X / (stars[0].FontSize() + spacing)))
	if idx < 0 || idx >= len(stars) {
		return
	}
	if err := b.m.SetProperty(el, "ratingValue", float64(idx+1)); err != nil {
		b.log.Debug("rating click ignored", slog.String("id", el.ID), slog.Any("err", err))
		return
	}
	b.m.RefreshPanel()
}

var arrows = map[string]scene.Pt{
	"ArrowUp":    {X: 0, Y: -1},
	"ArrowDown":  {X: 0, Y: 1},
	"ArrowLeft":  {X: -1, Y: 0},
	"ArrowRight": {X: 1, Y: 0},
}

// onKey nudges the selection by 1 (10 with shift) screen pixel.
func (b *Bridge) onKey(e *scene.Event) {
	el := b.m.Selected()
	if el == nil || b.edit != nil {
		return
	}
	dir, ok := arrows[e.Key]
	if !ok {
		return
	}
	e.PreventDefault()
	step := 1.0
	if e.Shift {
		step = 10
	}
	step /= b.stage.Zoom()
	p := el.Node.Position()
	p.X += dir.X * step
	p.Y += dir.Y * step
	el.Node.SetPosition(p)
	b.m.SyncBag(el, "x", "y")
	b.m.RefreshPanel()
	b.showPosition(p)
	el.Node.BatchDraw()
	b.hideAt = b.now().Add(FeedbackDelay)
}
