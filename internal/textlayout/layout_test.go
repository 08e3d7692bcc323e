/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"math"
	"testing"
)

func TestWordWrap_BreaksAtWidth(t *testing.T) {
	spec := FontSpec{Size: 13}
	box := Layout(BasicProvider{}, spec, "Hello world from Go", Options{Width: 50})
	if len(box.Lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %d", len(box.Lines))
	}
	for _, ln := range box.Lines {
		if ln.Width > 50 {
			t.Fatalf("line %q wider than box: %v", ln.Text, ln.Width)
		}
	}
	if box.Width != 50 {
		t.Fatalf("fixed width box should keep width 50, got %v", box.Width)
	}
}

func TestAutoWidthUsesWidestLine(t *testing.T) {
	spec := FontSpec{Size: 13}
	box := Layout(nil, spec, "ab\nabcd", Options{})
	// Face7x13 advances 7px per glyph
	if box.Width != 28 {
		t.Fatalf("auto width = %v, want 28", box.Width)
	}
	if box.Height != 26 {
		t.Fatalf("height = %v, want 2 lines * 13", box.Height)
	}
}

func TestLineHeightAndPadding(t *testing.T) {
	box := Layout(BasicProvider{}, FontSpec{Size: 14}, "a\nb\nc", Options{LineHeight: 1.5, Padding: 5})
	if want := 3*14*1.5 + 10; math.Abs(box.Height-want) > 1e-9 {
		t.Fatalf("height = %v, want %v", box.Height, want)
	}
}

func TestMeasure_ScalesWithSize(t *testing.T) {
	w13 := Measure(BasicProvider{}, FontSpec{Size: 13}, "ABC")
	w26 := Measure(BasicProvider{}, FontSpec{Size: 26}, "ABC")
	if w13 != 21 || w26 != 42 {
		t.Fatalf("expected 21/42, got %v/%v", w13, w26)
	}
}

func TestGoFontProvider_CachesFaces(t *testing.T) {
	p, err := NewGoFontProvider()
	if err != nil {
		t.Fatalf("NewGoFontProvider: %v", err)
	}
	f1, _ := p.Resolve(FontSpec{Size: 24, Bold: true})
	f2, _ := p.Resolve(FontSpec{Size: 24, Bold: true})
	if f1 != f2 {
		t.Fatalf("expected cached face")
	}
	if Measure(p, FontSpec{Size: 24}, "Hello") <= Measure(p, FontSpec{Size: 12}, "Hello") {
		t.Fatalf("larger size should measure wider")
	}
	if len(Source(FontSpec{Italic: true})) == 0 {
		t.Fatalf("missing font source")
	}
}
