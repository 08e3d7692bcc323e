/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package element turns scene nodes into typed, editable CV elements: the
// factory that builds them, the registry and selection controller that own
// them, and the per-type property dispatch that keeps their property bag and
// their rendered attributes in agreement.
package element

import (
	"errors"
	"slices"
)

// Type is the closed set of element kinds.
type Type string

const (
	Text        Type = "text"
	Heading     Type = "heading"
	Paragraph   Type = "paragraph"
	List        Type = "list"
	Image       Type = "image"
	Rectangle   Type = "rectangle"
	Line        Type = "line"
	Avatar      Type = "avatar"
	Circle      Type = "circle"
	Icon        Type = "icon"
	ProgressBar Type = "progress-bar"
	Rating      Type = "rating"
)

// Types lists every element type in palette order.
var Types = []Type{Text, Heading, Paragraph, List, Image, Rectangle, Line, Avatar, Circle, Icon, ProgressBar, Rating}

// EditableTag marks every registered element's node.
const EditableTag = "cv-element"

var (
	ErrUnknownType     = errors.New("element: unknown type")
	ErrMissingArgument = errors.New("element: missing element, property or value")
	ErrNotRegistered   = errors.New("element: not registered")
	ErrInvalidValue    = errors.New("element: invalid property value")
)

// ParseType validates s against the closed set.
func ParseType(s string) (Type, bool) {
	t := Type(s)
	return t, slices.Contains(Types, t)
}

// Tag is the per-type name tag, e.g. "avatar-element".
func (t Type) Tag() string { return string(t) + "-element" }

// IsText reports whether the element is a single Text node.
func (t Type) IsText() bool {
	switch t {
	case Text, Heading, Paragraph, List:
		return true
	}
	return false
}

// IsComposite reports whether the element is a group of role-named parts.
func (t Type) IsComposite() bool {
	switch t {
	case Image, Avatar, Icon, ProgressBar, Rating:
		return true
	}
	return false
}
