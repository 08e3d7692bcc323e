/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"testing"
)

func TestNameTagsAndFind(t *testing.T) {
	g := NewGroup(Attrs{"id": "g1", "name": "cv-element avatar-element"})
	c := NewCircle(Attrs{"name": "avatar-placeholder-circle", "radius": 50})
	txt := NewText(Attrs{"name": "avatar-placeholder-text", "text": "Avatar"})
	g.Add(c, txt)

	if !g.HasName("avatar-element") || g.HasName("avatar") {
		t.Fatalf("HasName must match whole tags only")
	}
	if g.FindOne(".avatar-placeholder-circle") != c {
		t.Fatalf("find by name failed")
	}
	if got := g.Find("Text"); len(got) != 1 || got[0] != txt {
		t.Fatalf("find by class failed: %v", got)
	}
	g.AddName("cv-element")
	if g.Name() != "cv-element avatar-element" {
		t.Fatalf("AddName duplicated a tag: %q", g.Name())
	}
}

func TestClassAwareSize(t *testing.T) {
	c := NewCircle(Attrs{"radius": 30})
	if c.Width() != 60 || c.Height() != 60 {
		t.Fatalf("circle size = %vx%v", c.Width(), c.Height())
	}
	c.SetWidth(100)
	if c.Radius() != 50 {
		t.Fatalf("SetWidth on circle should set radius, got %v", c.Radius())
	}
	txt := NewText(Attrs{"text": "abcd", "fontSize": 13})
	if txt.Width() != 28 || txt.Height() != 13 {
		t.Fatalf("auto text size = %vx%v, want 28x13", txt.Width(), txt.Height())
	}
	txt.SetWidth(100)
	if txt.Width() != 100 {
		t.Fatalf("explicit width ignored")
	}
	ln := NewLine(Attrs{"points": []any{10.0, 20.0, 210.0, 20.0}})
	if ln.Width() != 200 || ln.Height() != 0 {
		t.Fatalf("line span = %vx%v", ln.Width(), ln.Height())
	}
}

func TestLayerDirtyAndDraw(t *testing.T) {
	st := NewStage(800, 1000)
	layer := NewLayer()
	st.Add(layer)
	r := NewRect(Attrs{"width": 10, "height": 10})
	layer.Add(r)
	layer.Draw()
	if layer.Dirty() {
		t.Fatalf("layer should be clean after draw")
	}
	r.SetFill("#fff")
	if !layer.Dirty() {
		t.Fatalf("attribute change should dirty the layer")
	}
	r.Draw()
	if layer.Dirty() || layer.Draws() != 2 {
		t.Fatalf("draw through child failed: dirty=%v draws=%d", layer.Dirty(), layer.Draws())
	}
	if r.Stage() != st {
		t.Fatalf("Stage() should resolve the root stage")
	}
}

func TestMoveToTopAndDestroy(t *testing.T) {
	layer := NewLayer()
	a, b, c := NewRect(nil), NewRect(nil), NewRect(nil)
	layer.Add(a, b, c)
	a.MoveToTop()
	if a.ZIndex() != 2 || b.ZIndex() != 0 {
		t.Fatalf("unexpected order after MoveToTop")
	}
	a.On("click", func(*Event) {})
	a.Destroy()
	if a.Parent() != nil || len(layer.Children()) != 2 || a.HandlerCount("click") != 0 {
		t.Fatalf("destroy should detach and drop handlers")
	}
}

func TestEventsBubbleAndOff(t *testing.T) {
	layer := NewLayer()
	g := NewGroup(nil)
	star := NewText(Attrs{"text": "*"})
	g.Add(star)
	layer.Add(g)

	var order []string
	g.On("click tap", func(e *Event) { order = append(order, "group") })
	layer.On("click", func(e *Event) { order = append(order, "layer") })
	star.Fire("click", nil)
	if len(order) != 2 || order[0] != "group" || order[1] != "layer" {
		t.Fatalf("unexpected bubbling order: %v", order)
	}

	order = nil
	g.Off("click")
	g.On("click", func(e *Event) {
		order = append(order, "group2")
		e.CancelBubble = true
	})
	e := star.Fire("click", nil)
	if len(order) != 1 || e.Target != star {
		t.Fatalf("cancelled event should stop at group: %v", order)
	}
	if g.HandlerCount("tap") != 1 {
		t.Fatalf("Off(click) must not touch tap")
	}
}
