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
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"cvcanvas/internal/panel"
)

// panelActions are the callbacks the properties panel drives.
type panelActions struct {
	update func(property string, value any)
	toggle func(style string)
}

func display(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// buildPanel renders a form model as fyne widgets.
func buildPanel(f panel.Form, act panelActions) fyne.CanvasObject {
	if f.ElementID == "" {
		return container.NewVBox(widget.NewLabel(f.Hint))
	}
	box := container.NewVBox(widget.NewLabelWithStyle(string(f.Type), fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))
	for _, g := range f.Groups {
		var items []*widget.FormItem
		for _, fd := range g.Fields {
			items = append(items, widget.NewFormItem(fd.Label, fieldWidget(fd, act)))
		}
		box.Add(widget.NewCard(g.Label, "", widget.NewForm(items...)))
	}
	return container.NewVScroll(box)
}

func fieldWidget(fd panel.Field, act panelActions) fyne.CanvasObject {
	switch fd.Kind {
	case panel.Toggle:
		c := widget.NewCheck("", func(bool) { act.toggle(fd.Property) })
		c.Checked = fd.Active
		return c
	case panel.Select:
		opts := make([]string, 0, len(fd.Options))
		labels := map[string]string{}
		for _, o := range fd.Options {
			opts = append(opts, o.Label)
			labels[o.Label] = o.Value
		}
		s := widget.NewSelect(opts, nil)
		for _, o := range fd.Options {
			if o.Value == display(fd.Value) {
				s.Selected = o.Label
			}
		}
		s.OnChanged = func(label string) {
			if v, ok := fd.Parse(labels[label]); ok {
				act.update(fd.Property, v)
			}
		}
		return s
	case panel.TextArea:
		e := widget.NewMultiLineEntry()
		e.SetText(display(fd.Value))
		// applied on demand; every keystroke would rebuild the panel
		apply := widget.NewButton("Apply", func() { act.update(fd.Property, e.Text) })
		return container.NewBorder(nil, apply, nil, nil, e)
	}
	e := widget.NewEntry()
	e.SetText(display(fd.Value))
	if fd.Disabled {
		e.Disable()
	}
	e.OnSubmitted = func(s string) {
		if v, ok := fd.Parse(s); ok {
			act.update(fd.Property, v)
		}
	}
	return e
}
