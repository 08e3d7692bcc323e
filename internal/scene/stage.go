/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

// Stage is the root of a scene: it owns the layers, the zoom (scaleX/scaleY)
// and pan (x/y) of the whole surface, and turns raw pointer and keyboard
// input into node events.
type Stage struct {
	*Node

	pointer    Pt
	hasPointer bool

	pressTarget *Node
	drag        *dragState
	hover       *Node
}

type dragState struct {
	node         *Node
	startPointer Pt
	startPos     Pt
	started      bool
}

// NewStage creates an empty stage of the given container size.
func NewStage(width, height float64) *Stage {
	s := &Stage{Node: newNode(KindStage, Attrs{"width": width, "height": height})}
	s.Node.stage = s
	return s
}

// Layers returns the stage's layers in draw order.
func (s *Stage) Layers() []*Node { return s.Children() }

// Draw repaints every layer.
func (s *Stage) Draw() {
	for _, l := range s.children {
		l.Draw()
	}
}

// Zoom is the uniform stage scale.
func (s *Stage) Zoom() float64 { return s.ScaleX() }

// PointerPosition is the last known pointer in container pixels.
func (s *Stage) PointerPosition() (Pt, bool) { return s.pointer, s.hasPointer }

// SetPointer records the pointer without dispatching events.
func (s *Stage) SetPointer(p Pt) { s.pointer, s.hasPointer = p, true }

// Intersection returns the top-most listening shape under p, or nil.
func (s *Stage) Intersection(p Pt) *Node { return s.Node.Hit(p) }

func (s *Stage) targetAt(p Pt) *Node {
	if t := s.Intersection(p); t != nil {
		return t
	}
	return s.Node
}

func (s *Stage) event(p Pt) *Event {
	return &Event{Pointer: p, ClientX: p.X, ClientY: p.Y}
}

// PointerDown presses at p and arms a drag on the nearest draggable ancestor of the hit node.
func (s *Stage) PointerDown(p Pt) {
	s.SetPointer(p)
	t := s.targetAt(p)
	s.pressTarget = t
	s.drag = nil
	for d := t; d != nil && d.kind != KindLayer && d.kind != KindStage; d = d.parent {
		if d.Draggable() {
			s.drag = &dragState{node: d, startPointer: p, startPos: d.Position()}
			break
		}
	}
	t.Fire("mousedown", s.event(p))
}

// PointerMove moves the pointer; while a drag is armed the dragged node
// follows the pointer in its parent's coordinate space.
func (s *Stage) PointerMove(p Pt) {
	s.SetPointer(p)
	if d := s.drag; d != nil {
		if !d.started {
			d.started = true
			d.node.Fire("dragstart", s.event(p))
		}
		var inv Affine = Identity
		if d.node.parent != nil {
			inv = d.node.parent.AbsoluteTransform().Invert()
		}
		a, b := inv.Apply(d.startPointer), inv.Apply(p)
		d.node.SetPosition(Pt{d.startPos.X + b.X - a.X, d.startPos.Y + b.Y - a.Y})
		d.node.Fire("dragmove", s.event(p))
		d.node.BatchDraw()
		return
	}
	t := s.Intersection(p)
	if t == s.hover {
		return
	}
	if s.hover != nil {
		s.hover.Fire("mouseleave", &Event{Pointer: p, CancelBubble: true})
	}
	s.hover = t
	if t != nil {
		t.Fire("mouseenter", &Event{Pointer: p, CancelBubble: true})
	}
}

// PointerUp releases the pointer. A started drag ends with "dragend";
// otherwise a release on the pressed node is a "click".
func (s *Stage) PointerUp(p Pt) {
	s.SetPointer(p)
	d := s.drag
	s.drag = nil
	if d != nil && d.started {
		d.node.Fire("dragend", s.event(p))
		s.pressTarget = nil
		return
	}
	t := s.targetAt(p)
	t.Fire("mouseup", s.event(p))
	if t == s.pressTarget {
		t.Fire("click", s.event(p))
	}
	s.pressTarget = nil
}

// Click is a press and release at p.
func (s *Stage) Click(p Pt) {
	s.PointerDown(p)
	s.PointerUp(p)
}

// Drag presses at from, moves through each point in path and releases at the last one.
func (s *Stage) Drag(from Pt, path ...Pt) {
	s.PointerDown(from)
	last := from
	for _, p := range path {
		s.PointerMove(p)
		last = p
	}
	s.PointerUp(last)
}

// DblClick fires "dblclick" on the node under p.
func (s *Stage) DblClick(p Pt) {
	s.SetPointer(p)
	s.targetAt(p).Fire("dblclick", s.event(p))
}

// ContextMenu fires "contextmenu" on the node under p with page coordinates.
func (s *Stage) ContextMenu(p Pt, clientX, clientY float64) *Event {
	s.SetPointer(p)
	e := s.event(p)
	e.ClientX, e.ClientY = clientX, clientY
	return s.targetAt(p).Fire("contextmenu", e)
}

// KeyDown fires "keydown" on the stage itself.
func (s *Stage) KeyDown(key string, shift bool) *Event {
	return s.Node.Fire("keydown", &Event{Key: key, Shift: shift})
}

// IsDragging reports whether a drag gesture is in progress.
func (s *Stage) IsDragging() bool { return s.drag != nil && s.drag.started }
