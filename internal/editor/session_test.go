/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cvcanvas/internal/config"
	"cvcanvas/internal/document"
	"cvcanvas/internal/element"
	"cvcanvas/internal/history"
	"cvcanvas/internal/scene"
)

type watcher struct {
	element.NopNotifier
	counts []int
	zooms  []string
}

func (w *watcher) ElementCountChanged(n int)         { w.counts = append(w.counts, n) }
func (w *watcher) ZoomChanged(_ float64, l string) { w.zooms = append(w.zooms, l) }

type clock struct{ t time.Time }

func (c *clock) now() time.Time            { return c.t }
func (c *clock) advance(d time.Duration)  { c.t = c.t.Add(d) }

func newSession(t *testing.T) (*Session, *clock, *watcher) {
	t.Helper()
	c := &clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	w := &watcher{}
	seq := 0
	s := New(config.Defaults().Canvas,
		WithClock(c.now),
		WithNotifier(w),
		WithIDSource(func() string { seq++; return fmt.Sprintf("e%d", seq) }))
	return s, c, w
}

func TestZoomStepsAndSettles(t *testing.T) {
	s, c, w := newSession(t)
	require.Equal(t, ZoomIdle, s.ZoomState())

	require.NoError(t, s.ZoomIn())
	require.Equal(t, 1.1, s.Zoom())
	require.Equal(t, ZoomSettling, s.ZoomState())
	require.ErrorIs(t, s.ZoomIn(), ErrZoomSettling)
	require.Equal(t, 1.1, s.Zoom())

	c.advance(100 * time.Millisecond)
	require.NoError(t, s.ZoomOut())
	require.Equal(t, 1.0, s.Zoom())
	require.Equal(t, []string{"110%", "100%"}, w.zooms)

	var fired []any
	s.Stage().On("scaleChange", func(e *scene.Event) { fired = append(fired, e.Attrs["scale"]) })
	s.SetZoom(9)
	require.Equal(t, 5.0, s.Zoom())
	s.SetZoom(0.01)
	require.Equal(t, 0.1, s.Zoom())
	require.Equal(t, []any{5.0, 0.1}, fired)
}

func TestZoomClampsAtBounds(t *testing.T) {
	s, c, _ := newSession(t)
	s.SetZoom(4.95)
	require.NoError(t, s.ZoomIn())
	require.Equal(t, 5.0, s.Zoom())
	c.advance(time.Second)
	require.NoError(t, s.ZoomIn())
	require.Equal(t, 5.0, s.Zoom())
}

func TestResetAndFit(t *testing.T) {
	s, _, w := newSession(t)
	s.Stage().SetPosition(scene.Pt{X: 40, Y: 12})
	s.FitToScreen(900, 500)
	// 500*0.9/1000 beats 900*0.9/800
	require.InDelta(t, 0.45, s.Zoom(), 1e-9)
	require.Equal(t, scene.Pt{}, s.Stage().Position())
	require.Equal(t, "45%", w.zooms[len(w.zooms)-1])

	s.ResetZoom()
	require.Equal(t, 1.0, s.Zoom())
	require.Equal(t, "100%", ZoomLabel(s.Zoom()))
}

func TestGridSnapping(t *testing.T) {
	s, _, _ := newSession(t)
	require.Equal(t, 27.0, s.SnapToGrid(27))
	s.EnableGridSnapping(true)
	require.Equal(t, 20.0, s.SnapToGrid(27))
	require.Equal(t, 40.0, s.SnapToGrid(31))

	el, err := s.CreateAt(element.Rectangle, &scene.Pt{X: 0, Y: 0})
	require.NoError(t, err)
	s.Stage().Drag(scene.Pt{X: 5, Y: 5}, scene.Pt{X: 36, Y: 18})
	require.Equal(t, scene.Pt{X: 40, Y: 20}, el.Node.Position())
}

func TestCreateUnknownType(t *testing.T) {
	s, _, _ := newSession(t)
	_, err := s.Create(element.Type("table"))
	require.ErrorIs(t, err, element.ErrUnknownType)
	require.Zero(t, s.ElementCount())
}

func TestUpdatePropertyRecordsHistory(t *testing.T) {
	s, _, _ := newSession(t)
	require.ErrorIs(t, s.UpdateProperty("fill", "#000"), ErrNoSelection)

	el, err := s.Create(element.Avatar)
	require.NoError(t, err)
	require.NoError(t, s.UpdateProperty("radius", 80.0))
	require.Equal(t, 160.0, el.Node.Width())

	last, ok := s.History().Last()
	require.True(t, ok)
	require.Equal(t, history.ActionProperty, last.Action)
	require.Equal(t, "radius", last.Data.Property)
	require.Equal(t, 50.0, last.Data.Before["radius"])
	require.Equal(t, 80.0, last.Data.After["radius"])
}

func TestDeleteCopyPaste(t *testing.T) {
	s, _, w := newSession(t)
	a, err := s.CreateAt(element.Rating, &scene.Pt{X: 100, Y: 100})
	require.NoError(t, err)
	require.NoError(t, s.UpdateProperty("ratingValue", 2.0))
	require.True(t, s.Copy())

	b, err := s.Paste()
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, scene.Pt{X: 120, Y: 120}, b.Node.Position())
	require.Equal(t, element.StarEmpty, b.Parts.Stars[2].Text())
	require.Same(t, b, s.Selected())
	require.Equal(t, 2, s.ElementCount())

	require.True(t, s.DeleteSelected())
	require.Equal(t, 1, s.ElementCount())
	require.Nil(t, s.Selected())
	require.False(t, s.DeleteSelected())
	require.Equal(t, []int{1, 2, 1}, w.counts)

	last, _ := s.History().Last()
	require.Equal(t, history.ActionRemove, last.Action)
	require.Equal(t, b.ID, last.Data.ElementID)
}

func TestSampleTemplates(t *testing.T) {
	s, _, _ := newSession(t)
	require.NoError(t, s.LoadSampleTemplate("modern"))
	require.Equal(t, 10, s.ElementCount())
	require.NoError(t, s.LoadSampleTemplate("creative"))
	require.Equal(t, 15, s.ElementCount())
	require.ErrorIs(t, s.LoadSampleTemplate("retro"), ErrUnknownTemplate)

	types := []element.Type{}
	for _, el := range s.Manager().Elements()[10:] {
		types = append(types, el.Type)
	}
	require.Equal(t, []element.Type{element.Rectangle, element.Heading, element.Icon, element.ProgressBar, element.Rating}, types)
}

func TestExportLoadRoundTrip(t *testing.T) {
	s, _, _ := newSession(t)
	for _, typ := range element.Types {
		_, err := s.Create(typ)
		require.NoError(t, err)
	}
	require.NoError(t, s.UpdateProperty("ratingValue", 1.0))
	s.Manager().Select(s.Manager().Elements()[3])
	require.NoError(t, s.UpdateProperty("bulletStyle", "-"))

	b, err := s.ExportJSON()
	require.NoError(t, err)
	before := s.Export()

	other, _, _ := newSession(t)
	rep, err := other.Load(b)
	require.NoError(t, err)
	require.Equal(t, document.FormatElements, rep.Format)
	require.Equal(t, len(element.Types), rep.Loaded)
	require.Zero(t, rep.Skipped)
	require.Nil(t, other.Selected())

	after := other.Export()
	require.Len(t, after.Elements, len(before.Elements))
	for i := range before.Elements {
		require.Equal(t, before.Elements[i].ID, after.Elements[i].ID)
		require.Equal(t, before.Elements[i].Type, after.Elements[i].Type)
		require.Equal(t, before.Elements[i].Properties.Map(), after.Elements[i].Properties.Map(), before.Elements[i].Type)
	}

	for _, el := range other.Manager().Elements() {
		other.Manager().Select(el)
		require.Same(t, el, other.Selected())
		require.Equal(t, 1, el.Node.HandlerCount("dragend"))
	}
	list := other.Manager().Elements()[3]
	require.Equal(t, "- Mục 1\n- Mục 2\n- Mục 3", list.Node.Text())
}

func TestLoadStageTree(t *testing.T) {
	s, _, _ := newSession(t)
	_, err := s.Create(element.Heading)
	require.NoError(t, err)
	_, err = s.Create(element.Avatar)
	require.NoError(t, err)

	tree, err := json.Marshal(s.Stage().ToJSON())
	require.NoError(t, err)

	other, _, _ := newSession(t)
	rep, err := other.Load(tree)
	require.NoError(t, err)
	require.Equal(t, document.FormatStage, rep.Format)
	require.Equal(t, 2, rep.Loaded)

	els := other.Manager().Elements()
	require.Equal(t, element.Heading, els[0].Type)
	require.Equal(t, element.Avatar, els[1].Type)
	r, _ := els[1].Properties.Get("radius")
	require.Equal(t, 50.0, r)
	x, _ := els[0].Properties.Get("x")
	require.Equal(t, 70.0, x)
}

func TestLoadSkipsBadEntries(t *testing.T) {
	s, _, _ := newSession(t)
	_, err := s.Create(element.Text)
	require.NoError(t, err)

	payload := `{"elements":[
		{"type":"rectangle","attrs":{"x":5,"y":6}},
		{"attrs":{"x":1}},
		{"type":"hexagon","attrs":{}},
		{"type":"circle","attrs":{"x":40,"y":40,"id":"c1"}}
	]}`
	rep, err := s.Load([]byte(payload))
	require.NoError(t, err)
	require.Equal(t, 2, rep.Loaded)
	require.Equal(t, 2, rep.Skipped)
	require.Equal(t, 2, s.ElementCount())
	_, ok := s.Manager().Get("c1")
	require.True(t, ok)

	_, err = s.Load([]byte(`{"nothing":true}`))
	require.ErrorIs(t, err, document.ErrUnknownFormat)
	require.Equal(t, 2, s.ElementCount())
}

func TestLoadSingleNodeAndUntaggedGroup(t *testing.T) {
	s, _, _ := newSession(t)
	rep, err := s.Load([]byte(`{"className":"Rect","attrs":{"x":3,"y":4,"width":10,"height":10}}`))
	require.NoError(t, err)
	require.Equal(t, document.FormatNode, rep.Format)
	require.Equal(t, 1, rep.Loaded)
	el := s.Manager().Elements()[0]
	require.Equal(t, element.Rectangle, el.Type)
	require.NotEmpty(t, el.ID)
	require.True(t, el.Node.HasName(element.EditableTag))

	rep, err = s.Load([]byte(`{"className":"Group","attrs":{}}`))
	require.NoError(t, err)
	require.Equal(t, 1, rep.Skipped)
	require.Zero(t, s.ElementCount())
}
