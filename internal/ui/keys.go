/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

// domKeys maps desktop key names to the names the gesture bridge and the
// text editor understand.
var domKeys = map[string]string{
	"Left":   "ArrowLeft",
	"Right":  "ArrowRight",
	"Up":     "ArrowUp",
	"Down":   "ArrowDown",
	"Return": "Enter",
	"Enter":  "Enter",
	"Escape": "Escape",
	"Delete": "Delete",
}

// domKey translates a desktop key name; unknown names pass through.
func domKey(name string) string {
	if k, ok := domKeys[name]; ok {
		return k
	}
	return name
}

// isShift reports whether a key name is one of the shift keys.
func isShift(name string) bool { return name == "LeftShift" || name == "RightShift" }

// cursorKind is the coarse cursor family a CSS cursor name falls into.
type cursorKind int

const (
	cursorDefault cursorKind = iota
	cursorPointer
	cursorText
)

func cursorFor(css string) cursorKind {
	switch css {
	case "move", "pointer", "grab", "grabbing":
		return cursorPointer
	case "text":
		return cursorText
	}
	return cursorDefault
}
