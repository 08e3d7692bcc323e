//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"errors"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"cvcanvas/internal/editor"
	"cvcanvas/internal/export"
	"cvcanvas/internal/gesture"
	"cvcanvas/internal/scene"
)

// CanvasView shows the session's page as a raster and feeds pointer and
// keyboard input to the stage. View coordinates are stage screen
// coordinates: the page is drawn at the stage position, scaled by the zoom.
type CanvasView struct {
	widget.BaseWidget
	sess *editor.Session
	img  *canvas.Image

	dragging bool
	last     scene.Pt
	shift    bool
	cursor   cursorKind

	// OnEditText is called when a double click opens an inline text edit.
	OnEditText func(*gesture.TextEdit)
	OnError    func(error)
}

func NewCanvasView(sess *editor.Session) *CanvasView {
	v := &CanvasView{sess: sess, img: &canvas.Image{FillMode: canvas.ImageFillStretch}}
	v.ExtendBaseWidget(v)
	return v
}

func (v *CanvasView) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	r := &canvasViewRenderer{v: v, bg: bg, objects: []fyne.CanvasObject{bg, v.img}}
	v.Redraw()
	return r
}

// Redraw rasterizes the page at the current zoom.
func (v *CanvasView) Redraw() {
	z := v.sess.Zoom()
	img, err := export.Raster(v.sess.Page(""), export.Options{PixelRatio: z})
	if err != nil {
		v.fail(err)
		return
	}
	v.img.Image = img
	cfg := v.sess.Config()
	pos := v.sess.Stage().Position()
	v.img.Move(fyne.NewPos(float32(pos.X), float32(pos.Y)))
	v.img.Resize(fyne.NewSize(float32(cfg.Width*z), float32(cfg.Height*z)))
	v.img.Refresh()
}

func (v *CanvasView) fail(err error) {
	if v.OnError != nil {
		v.OnError(err)
	}
}

func toStage(p fyne.Position) scene.Pt { return scene.Pt{X: float64(p.X), Y: float64(p.Y)} }

func (v *CanvasView) focus() {
	if c := fyne.CurrentApp().Driver().CanvasForObject(v); c != nil {
		c.Focus(v)
	}
}

func (v *CanvasView) Tapped(e *fyne.PointEvent) {
	v.focus()
	v.sess.Stage().Click(toStage(e.Position))
	v.Redraw()
}

func (v *CanvasView) DoubleTapped(e *fyne.PointEvent) {
	v.sess.Stage().DblClick(toStage(e.Position))
	if ed := v.sess.Bridge().Editing(); ed != nil && v.OnEditText != nil {
		v.OnEditText(ed)
	}
	v.Redraw()
}

func (v *CanvasView) TappedSecondary(e *fyne.PointEvent) {
	v.sess.Stage().ContextMenu(toStage(e.Position), float64(e.AbsolutePosition.X), float64(e.AbsolutePosition.Y))
	v.Redraw()
}

func (v *CanvasView) Dragged(e *fyne.DragEvent) {
	p := toStage(e.Position)
	st := v.sess.Stage()
	if !v.dragging {
		v.dragging = true
		st.PointerDown(scene.Pt{X: p.X - float64(e.Dragged.DX), Y: p.Y - float64(e.Dragged.DY)})
	}
	st.PointerMove(p)
	v.last = p
	v.Redraw()
}

func (v *CanvasView) DragEnd() {
	if !v.dragging {
		return
	}
	v.dragging = false
	v.sess.Stage().PointerUp(v.last)
	v.Redraw()
}

// Scrolled zooms; steps arriving inside the settle window are dropped.
func (v *CanvasView) Scrolled(e *fyne.ScrollEvent) {
	var err error
	if e.Scrolled.DY > 0 {
		err = v.sess.ZoomIn()
	} else if e.Scrolled.DY < 0 {
		err = v.sess.ZoomOut()
	}
	if err != nil && !errors.Is(err, editor.ErrZoomSettling) {
		v.fail(err)
	}
	v.Redraw()
}

func (v *CanvasView) FocusGained()    {}
func (v *CanvasView) FocusLost()      {}
func (v *CanvasView) TypedRune(rune) {}

func (v *CanvasView) TypedKey(e *fyne.KeyEvent) {
	v.sess.Stage().KeyDown(domKey(string(e.Name)), v.shift)
	v.Redraw()
}

func (v *CanvasView) KeyDown(e *fyne.KeyEvent) {
	if isShift(string(e.Name)) {
		v.shift = true
	}
}

func (v *CanvasView) KeyUp(e *fyne.KeyEvent) {
	if isShift(string(e.Name)) {
		v.shift = false
	}
}

// SetCursor records the hint given by the gesture bridge.
func (v *CanvasView) SetCursor(css string) { v.cursor = cursorFor(css) }

func (v *CanvasView) Cursor() desktop.Cursor {
	switch v.cursor {
	case cursorPointer:
		return desktop.PointerCursor
	case cursorText:
		return desktop.TextCursor
	}
	return desktop.DefaultCursor
}

func (v *CanvasView) MinSize() fyne.Size { return fyne.NewSize(400, 300) }

type canvasViewRenderer struct {
	v       *CanvasView
	bg      *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *canvasViewRenderer) Destroy()                     {}
func (r *canvasViewRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *canvasViewRenderer) MinSize() fyne.Size           { return r.v.MinSize() }
func (r *canvasViewRenderer) Refresh()                     { r.Layout(r.v.Size()); canvas.Refresh(r.v) }

func (r *canvasViewRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
}
