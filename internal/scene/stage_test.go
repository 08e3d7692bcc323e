/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"math"
	"testing"
)

func newTestStage() (*Stage, *Node) {
	st := NewStage(800, 1000)
	layer := NewLayer()
	st.Add(layer)
	return st, layer
}

func TestIntersectionHonorsTransformsAndListening(t *testing.T) {
	st, layer := newTestStage()
	g := NewGroup(Attrs{"x": 100, "y": 100})
	r := NewRect(Attrs{"width": 50, "height": 50})
	label := NewText(Attrs{"text": "x", "listening": false, "x": 10, "y": 10})
	g.Add(r, label)
	layer.Add(g)

	if st.Intersection(Pt{110, 110}) != r {
		t.Fatalf("expected rect under non-listening label")
	}
	st.SetScale(2, 2)
	if st.Intersection(Pt{110, 110}) != nil {
		t.Fatalf("zoomed stage should move the rect to 200..300")
	}
	if st.Intersection(Pt{220, 220}) != r {
		t.Fatalf("expected hit in zoomed space")
	}
}

func TestLineHitUsesHitStrokeWidth(t *testing.T) {
	st, layer := newTestStage()
	ln := NewLine(Attrs{"points": []float64{0, 100, 200, 100}, "strokeWidth": 2, "hitStrokeWidth": 15})
	layer.Add(ln)
	if st.Intersection(Pt{100, 107}) != ln {
		t.Fatalf("expected hit within hit stroke")
	}
	if st.Intersection(Pt{100, 110}) != nil {
		t.Fatalf("expected miss outside hit stroke")
	}
}

func TestClickWithoutHitTargetsStage(t *testing.T) {
	st, _ := newTestStage()
	var target *Node
	st.On("click", func(e *Event) { target = e.Target })
	st.Click(Pt{5, 5})
	if target != st.Node {
		t.Fatalf("empty click should target the stage")
	}
}

func TestDragFollowsPointerUnderZoom(t *testing.T) {
	st, layer := newTestStage()
	st.SetScale(2, 2)
	r := NewRect(Attrs{"x": 10, "y": 10, "width": 50, "height": 50, "draggable": true})
	layer.Add(r)

	var seq []string
	r.On("dragstart dragmove dragend click", func(e *Event) { seq = append(seq, e.Type) })
	st.Drag(Pt{40, 40}, Pt{50, 40}, Pt{60, 50})
	// 20px right, 10px down on screen is 10,5 in stage space at zoom 2
	if r.X() != 20 || r.Y() != 15 {
		t.Fatalf("dragged position = %v,%v want 20,15", r.X(), r.Y())
	}
	want := []string{"dragstart", "dragmove", "dragmove", "dragend"}
	if len(seq) != len(want) {
		t.Fatalf("events = %v, want %v", seq, want)
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("events = %v, want %v", seq, want)
		}
	}
}

func TestDragOfChildMovesDraggableAncestor(t *testing.T) {
	st, layer := newTestStage()
	g := NewGroup(Attrs{"x": 0, "y": 0, "draggable": true})
	star := NewText(Attrs{"text": "*", "fontSize": 20})
	g.Add(star)
	layer.Add(g)
	st.Drag(Pt{3, 3}, Pt{13, 23})
	if g.X() != 10 || g.Y() != 20 || star.X() != 0 {
		t.Fatalf("group should move, not the star: g=%v,%v star=%v", g.X(), g.Y(), star.X())
	}
}

func TestRelativePointerPosition(t *testing.T) {
	st, layer := newTestStage()
	st.SetScale(2, 2)
	st.SetPosition(Pt{10, 0})
	g := NewGroup(Attrs{"x": 100, "y": 50})
	layer.Add(g)
	st.SetPointer(Pt{10 + 2*130, 2 * 60})
	p, ok := g.RelativePointerPosition()
	if !ok || math.Abs(p.X-30) > 1e-9 || math.Abs(p.Y-10) > 1e-9 {
		t.Fatalf("relative pointer = %+v", p)
	}
}

func TestTransformerResizeAndAnchors(t *testing.T) {
	st, layer := newTestStage()
	r := NewRect(Attrs{"x": 100, "y": 100, "width": 100, "height": 50})
	layer.Add(r)
	tr := NewTransformer(TransformerConfig{})
	layer.Add(tr.Node())
	tr.SetNodes(r)

	var seq []string
	r.On("transformstart transform transformend", func(e *Event) { seq = append(seq, e.Type) })
	if !tr.Resize(MiddleLeft, 2, 3) {
		t.Fatalf("middle-left should be enabled by default")
	}
	if r.ScaleX() != 2 || r.ScaleY() != 1 {
		t.Fatalf("side anchor must only scale x: %v,%v", r.ScaleX(), r.ScaleY())
	}
	if r.X() != 0 {
		t.Fatalf("left anchor keeps right edge: x=%v", r.X())
	}
	tr.End()
	if len(seq) != 3 {
		t.Fatalf("events = %v", seq)
	}

	tr.SetEnabledAnchors([]string{MiddleLeft, MiddleRight})
	if tr.Resize(BottomRight, 2, 2) {
		t.Fatalf("disabled anchor must be rejected")
	}
	tr.SetNodes()
	if len(tr.Nodes()) != 0 || tr.Resize(MiddleRight, 2, 1) {
		t.Fatalf("detached transformer must not resize")
	}
	if st.Intersection(Pt{150, 120}) != r {
		t.Fatalf("transformer must not intercept hits")
	}
}

func TestToJSONCreateRoundTrip(t *testing.T) {
	_, layer := newTestStage()
	g := NewGroup(Attrs{"id": "a", "x": 5, "name": "cv-element rating-element"})
	g.Add(NewText(Attrs{"text": "★", "name": "star-0"}), NewLine(Attrs{"points": []float64{0, 0, 10, 0}, "dash": []float64{10, 5}}))
	layer.Add(g)
	tr := NewTransformer(TransformerConfig{})
	layer.Add(tr.Node())

	data := layer.ToJSON()
	if kids := data["children"].([]any); len(kids) != 1 {
		t.Fatalf("transformer must not be serialized: %d children", len(kids))
	}
	b, err := layer.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := CreateJSON(b)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	bg := back.FindOne("#a")
	if bg == nil || !bg.HasName("rating-element") || bg.X() != 5 {
		t.Fatalf("group not restored: %+v", bg)
	}
	ln := bg.FindOne("Line")
	if d := ln.Dash(); len(d) != 2 || d[0] != 10 {
		t.Fatalf("dash not normalized: %v", d)
	}
	if _, err := Create(map[string]any{"className": "Star"}); err == nil {
		t.Fatalf("unknown class must fail")
	}
}
