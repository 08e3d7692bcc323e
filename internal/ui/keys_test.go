/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import "testing"

func TestDomKey(t *testing.T) {
	for in, want := range map[string]string{"Left": "ArrowLeft", "Down": "ArrowDown", "Return": "Enter", "A": "A"} {
		if got := domKey(in); got != want {
			t.Fatalf("domKey(%q) = %q, want %q", in, got, want)
		}
	}
	if !isShift("LeftShift") || isShift("LeftControl") {
		t.Fatalf("shift detection wrong")
	}
}

func TestCursorFor(t *testing.T) {
	if cursorFor("move") != cursorPointer || cursorFor("text") != cursorText || cursorFor("default") != cursorDefault {
		t.Fatalf("cursor mapping wrong")
	}
}
