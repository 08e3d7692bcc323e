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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"cvcanvas/internal/config"
	"cvcanvas/internal/crash"
	"cvcanvas/internal/document"
	"cvcanvas/internal/editor"
	"cvcanvas/internal/element"
	"cvcanvas/internal/export"
	"cvcanvas/internal/gesture"
	applog "cvcanvas/internal/log"
	"cvcanvas/internal/panel"
	"cvcanvas/internal/scene"
	"cvcanvas/internal/storage"
	"cvcanvas/internal/version"
)

// editorWindow owns one session and the widgets reflecting it. It is the
// session's notifier and gesture feedback sink.
type editorWindow struct {
	w    fyne.Window
	sess *editor.Session
	view *CanvasView
	log  *slog.Logger

	panelBox  *fyne.Container
	info      *widget.Label
	count     *widget.Label
	zoom      *widget.Label
	position  *widget.Label
	status    *widget.Label
	docPath   string
	snapCheck *widget.Check
}

func (ew *editorWindow) ElementCountChanged(n int) { ew.count.SetText(fmt.Sprintf("Elements: %d", n)) }
func (ew *editorWindow) ElementInfo(text string)   { ew.info.SetText(text) }

func (ew *editorWindow) PropertiesPanelRefresh(el *element.Element) {
	ew.panelBox.Objects = []fyne.CanvasObject{buildPanel(panel.Build(el), panelActions{
		update: ew.updateProperty,
		toggle: ew.toggleStyle,
	})}
	ew.panelBox.Refresh()
}

func (ew *editorWindow) ZoomChanged(_ float64, label string) { ew.zoom.SetText(label) }

func (ew *editorWindow) ShowPosition(label string, _ scene.Pt) { ew.position.SetText(label) }
func (ew *editorWindow) HidePosition()                        { ew.position.SetText("") }
func (ew *editorWindow) SetCursor(cursor string) {
	if ew.view != nil {
		ew.view.SetCursor(cursor)
	}
}

// MirrorPosition is covered by the panel refresh that follows every move.
func (ew *editorWindow) MirrorPosition(float64, float64) {}

func (ew *editorWindow) ContextMenu(_ *element.Element, x, y float64) {
	menu := fyne.NewMenu("",
		fyne.NewMenuItem("Copy", func() { ew.sess.Copy() }),
		fyne.NewMenuItem("Paste", ew.paste),
		fyne.NewMenuItem("Delete", ew.deleteSelected),
	)
	widget.ShowPopUpMenuAtPosition(menu, ew.w.Canvas(), fyne.NewPos(float32(x), float32(y)))
}

func (ew *editorWindow) fail(err error) {
	ew.log.Warn("editor action failed", slog.Any("err", err))
	dialog.ShowError(err, ew.w)
}

func (ew *editorWindow) redraw() {
	if ew.view != nil {
		ew.view.Redraw()
	}
}

func (ew *editorWindow) updateProperty(name string, v any) {
	if err := ew.sess.UpdateProperty(name, v); err != nil {
		ew.fail(err)
	}
	ew.redraw()
}

func (ew *editorWindow) toggleStyle(style string) {
	if err := ew.sess.ToggleFontStyle(style); err != nil {
		ew.fail(err)
	}
	ew.redraw()
}

func (ew *editorWindow) create(t element.Type) {
	if _, err := ew.sess.Create(t); err != nil {
		ew.fail(err)
	}
	ew.redraw()
}

func (ew *editorWindow) paste() {
	if _, err := ew.sess.Paste(); err != nil {
		ew.fail(err)
	}
	ew.redraw()
}

func (ew *editorWindow) deleteSelected() {
	if ew.sess.DeleteSelected() {
		ew.redraw()
	}
}

// editText shows the inline edit as a dialog; confirming commits through
// the editor, dismissing keeps the original text.
func (ew *editorWindow) editText(ed *gesture.TextEdit) {
	entry := widget.NewMultiLineEntry()
	entry.SetText(ed.Value)
	entry.SetMinRowsVisible(4)
	dialog.ShowCustomConfirm("Edit text", "Apply", "Cancel", entry, func(ok bool) {
		if ok {
			ed.SetValue(entry.Text)
		}
		ed.Commit()
		ew.redraw()
	}, ew.w)
}

func (ew *editorWindow) open(path string) error {
	doc, err := storage.OpenDocument(path)
	if err != nil {
		return err
	}
	rep, err := ew.sess.LoadDocument(doc)
	if err != nil {
		return err
	}
	ew.docPath = path
	ew.w.SetTitle("CV Canvas - " + filepath.Base(path))
	ew.status.SetText(fmt.Sprintf("Loaded %d elements, skipped %d", rep.Loaded, rep.Skipped))
	ew.redraw()
	return nil
}

func (ew *editorWindow) save(path string) error {
	if err := storage.SaveDocument(path, ew.sess.Export()); err != nil {
		return err
	}
	ew.docPath = path
	ew.w.SetTitle("CV Canvas - " + filepath.Base(path))
	ew.status.SetText("Saved " + path)
	return nil
}

func (ew *editorWindow) saveDialog(ext string, onPath func(string) error) {
	save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, ew.w)
			return
		}
		if uc == nil {
			return
		}
		outPath := uc.URI().Path()
		_ = uc.Close()
		if !strings.HasSuffix(strings.ToLower(outPath), ext) {
			outPath += ext
		}
		if err := onPath(outPath); err != nil {
			ew.fail(err)
		}
	}, ew.w)
	save.SetFilter(fstorage.NewExtensionFileFilter([]string{ext}))
	save.Show()
}

func (ew *editorWindow) exportTo(f export.Format) {
	ew.saveDialog("."+string(f), func(path string) error {
		if err := export.WriteFile(path, f, ew.sess.Page(filepath.Base(ew.docPath)), export.Options{}); err != nil {
			return err
		}
		dialog.ShowInformation("Export", "Exported to "+path, ew.w)
		return nil
	})
}

func (ew *editorWindow) mainMenu() *fyne.MainMenu {
	newItem := fyne.NewMenuItem("New", func() {
		if _, err := ew.sess.LoadDocument(document.Document{}); err != nil {
			ew.fail(err)
		}
		ew.docPath = ""
		ew.w.SetTitle("CV Canvas")
		ew.redraw()
	})
	openItem := fyne.NewMenuItem("Open...", func() {
		open := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, ew.w)
				return
			}
			if ur == nil {
				return
			}
			path := ur.URI().Path()
			_ = ur.Close()
			if err := ew.open(path); err != nil {
				ew.fail(err)
			}
		}, ew.w)
		open.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
		open.Show()
	})
	saveAsItem := fyne.NewMenuItem("Save As...", func() { ew.saveDialog(".json", ew.save) })
	saveItem := fyne.NewMenuItem("Save", func() {
		if ew.docPath == "" {
			ew.saveDialog(".json", ew.save)
			return
		}
		if err := ew.save(ew.docPath); err != nil {
			ew.fail(err)
		}
	})
	newItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyN, Modifier: fyne.KeyModifierControl}
	openItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierControl}
	saveItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierControl}

	fileMenu := fyne.NewMenu("File", newItem, openItem, saveItem, saveAsItem, fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export PDF...", func() { ew.exportTo(export.FormatPDF) }),
		fyne.NewMenuItem("Export PNG...", func() { ew.exportTo(export.FormatPNG) }),
		fyne.NewMenuItem("Export SVG...", func() { ew.exportTo(export.FormatSVG) }),
	)
	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Copy", func() { ew.sess.Copy() }),
		fyne.NewMenuItem("Paste", ew.paste),
		fyne.NewMenuItem("Delete", ew.deleteSelected),
	)
	zoomStep := func(fn func() error) func() {
		return func() {
			if err := fn(); err != nil && !errors.Is(err, editor.ErrZoomSettling) {
				ew.fail(err)
			}
			ew.redraw()
		}
	}
	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", zoomStep(ew.sess.ZoomIn)),
		fyne.NewMenuItem("Zoom Out", zoomStep(ew.sess.ZoomOut)),
		fyne.NewMenuItem("Reset Zoom", func() { ew.sess.ResetZoom(); ew.redraw() }),
		fyne.NewMenuItem("Fit to Window", func() {
			sz := ew.view.Size()
			ew.sess.FitToScreen(float64(sz.Width), float64(sz.Height))
			ew.redraw()
		}),
	)
	var tplItems []*fyne.MenuItem
	for _, name := range editor.TemplateNames() {
		tplItems = append(tplItems, fyne.NewMenuItem(strings.ToUpper(name[:1])+name[1:], func() {
			if err := ew.sess.LoadSampleTemplate(name); err != nil {
				ew.fail(err)
			}
			ew.redraw()
		}))
	}
	return fyne.NewMainMenu(fileMenu, editMenu, viewMenu, fyne.NewMenu("Templates", tplItems...))
}

func (ew *editorWindow) toolbar() fyne.CanvasObject {
	box := container.NewVBox(widget.NewLabelWithStyle("Add element", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))
	for _, t := range element.Types {
		box.Add(widget.NewButton(string(t), func() { ew.create(t) }))
	}
	ew.snapCheck = widget.NewCheck("Snap to grid", func(on bool) { ew.sess.EnableGridSnapping(on) })
	ew.snapCheck.Checked = ew.sess.GridSnapping()
	box.Add(widget.NewSeparator())
	box.Add(ew.snapCheck)
	return container.NewVScroll(box)
}

// Run starts the desktop editor. docPath, when set, is opened immediately.
func Run(docPath string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	cfg, _, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
	}

	ew := &editorWindow{
		log:      l,
		panelBox: container.NewStack(),
		info:     widget.NewLabel(""),
		count:    widget.NewLabel("Elements: 0"),
		zoom:     widget.NewLabel(editor.ZoomLabel(1)),
		position: widget.NewLabel(""),
		status:   widget.NewLabel("Ready"),
	}
	ew.sess = editor.New(cfg.Canvas, editor.WithFeedback(ew), editor.WithNotifier(ew))

	rescueDir := os.TempDir()
	if docPath != "" {
		rescueDir = filepath.Dir(docPath)
	}
	defer crash.Recover(&crash.Rescue{Dir: rescueDir, Name: "canvas", Snapshot: ew.sess.Export})

	fyneApp := app.NewWithID("cvcanvas")
	ew.w = fyneApp.NewWindow("CV Canvas")
	prefs := fyneApp.Preferences()
	ew.w.Resize(fyne.NewSize(float32(max(prefs.IntWithFallback("window.width", 1280), 800)),
		float32(max(prefs.IntWithFallback("window.height", 860), 600))))

	ew.view = NewCanvasView(ew.sess)
	ew.view.OnEditText = ew.editText
	ew.view.OnError = ew.fail
	ew.PropertiesPanelRefresh(nil)

	statusBar := container.NewHBox(ew.status, widget.NewSeparator(), ew.count, widget.NewSeparator(),
		ew.info, widget.NewSeparator(), ew.position, widget.NewSeparator(), ew.zoom)
	split := container.NewHSplit(ew.view, ew.panelBox)
	split.Offset = 0.75
	ew.w.SetContent(container.NewBorder(nil, statusBar, ew.toolbar(), nil, split))
	ew.w.SetMainMenu(ew.mainMenu())

	if docPath != "" {
		if err := ew.open(docPath); err != nil {
			l.Error("open document failed", slog.String("path", docPath), slog.Any("err", err))
			ew.status.SetText("Could not open " + docPath)
		}
	}

	// hides the position readout once its delay has passed
	stop := make(chan struct{})
	go func() {
		t := time.NewTicker(250 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				fyne.Do(ew.sess.Tick)
			}
		}
	}()
	ew.w.SetOnClosed(func() {
		close(stop)
		sz := ew.w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
	})
	ew.w.ShowAndRun()
	return nil
}
