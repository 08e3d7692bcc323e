/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"log/slog"
	"math"

	"cvcanvas/internal/element"
	"cvcanvas/internal/scene"
)

// Minimum overlay size in screen pixels.
const (
	minEditWidth  = 200
	minEditHeight = 50
)

// TextEdit is the in-place editor opened by a double click on a text node.
// The caller renders it as an overlay at Rect and forwards typing to it.
type TextEdit struct {
	b  *Bridge
	el *element.Element

	Value      string
	SelStart   int
	SelEnd     int
	Rect       scene.Rect
	FontSize   float64
	FontFamily string

	closed bool
}

// EditText opens an overlay for el's text with everything selected.
// Any overlay already open is committed first.
func (b *Bridge) EditText(el *element.Element) *TextEdit {
	if b.edit != nil {
		b.edit.Commit()
	}
	n := el.Node
	abs := n.AbsolutePosition()
	z := b.stage.Zoom()
	text := n.Text()
	te := &TextEdit{
		b:          b,
		el:         el,
		Value:      text,
		SelStart:   0,
		SelEnd:     len([]rune(text)),
		Rect:       scene.R(abs.X, abs.Y, math.Max(n.Width()*z, minEditWidth), math.Max(n.Height()*z, minEditHeight)),
		FontSize:   n.FontSize() * z,
		FontFamily: n.FontFamily(),
	}
	b.edit = te
	b.m.Select(el)
	b.log.Debug("text edit opened", slog.String("id", el.ID))
	return te
}

// Element is the element being edited.
func (t *TextEdit) Element() *element.Element { return t.el }

// Insert replaces the selection with s and leaves the cursor after it.
func (t *TextEdit) Insert(s string) {
	r := []rune(t.Value)
	lo, hi := t.selection(len(r))
	out := make([]rune, 0, len(r)+len(s))
	out = append(out, r[:lo]...)
	out = append(out, []rune(s)...)
	out = append(out, r[hi:]...)
	t.Value = string(out)
	t.SelStart = lo + len([]rune(s))
	t.SelEnd = t.SelStart
}

// SetValue replaces the whole text and moves the cursor to the end.
func (t *TextEdit) SetValue(s string) {
	t.Value = s
	t.SelStart = len([]rune(s))
	t.SelEnd = t.SelStart
}

// SetCursor collapses the selection at rune offset pos.
func (t *TextEdit) SetCursor(pos int) {
	t.SelStart, t.SelEnd = pos, pos
}

func (t *TextEdit) selection(n int) (int, int) {
	lo, hi := t.SelStart, t.SelEnd
	if lo > hi {
		lo, hi = hi, lo
	}
	lo = max(0, min(lo, n))
	hi = max(lo, min(hi, n))
	return lo, hi
}

// KeyDown handles Enter and Escape. Shift+Enter inserts a plain line
// break; in a list, Enter starts a new item carrying the next bullet or
// number; elsewhere Enter commits. It reports whether the key was consumed.
func (t *TextEdit) KeyDown(key string, shift bool) bool {
	if t.closed {
		return false
	}
	switch key {
	case "Escape":
		t.Commit()
		return true
	case "Enter":
		if shift {
			t.Insert("\n")
			return true
		}
		if t.el.Type == element.List {
			r := []rune(t.Value)
			lo, _ := t.selection(len(r))
			style := t.el.Properties.String("bulletStyle")
			if style == "" {
				style = element.BulletStyles[0]
			}
			t.Insert("\n" + element.NextPrefix(string(r[:lo]), style))
			return true
		}
		t.Commit()
		return true
	}
	return false
}

// Blur commits the edit, as when focus leaves the overlay.
func (t *TextEdit) Blur() { t.Commit() }

// Commit writes the text back through property dispatch and closes the
// overlay. Committing twice is a no-op.
func (t *TextEdit) Commit() {
	if t.closed {
		return
	}
	t.closed = true
	if t.b.edit == t {
		t.b.edit = nil
	}
	if err := t.b.m.SetProperty(t.el, "text", t.Value); err != nil {
		t.b.log.Warn("text commit failed", slog.String("id", t.el.ID), slog.Any("err", err))
		return
	}
	t.b.m.RefreshPanel()
}
