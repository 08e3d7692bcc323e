/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import "strings"

// Event is passed to handlers. Target is the node the gesture hit;
// CurrentTarget is the node whose handler is running while the event bubbles.
type Event struct {
	Type          string
	Target        *Node
	CurrentTarget *Node

	// Pointer is the pointer in container pixels at the time of the event.
	Pointer Pt
	// ClientX/ClientY are page coordinates for overlays such as context menus.
	ClientX, ClientY float64

	Key   string
	Shift bool

	// Attrs carries event-specific payload (e.g. the new scale on "scaleChange").
	Attrs Attrs

	CancelBubble     bool
	DefaultPrevented bool
}

// PreventDefault marks the native default action as suppressed.
func (e *Event) PreventDefault() { e.DefaultPrevented = true }

// Handler reacts to an event.
type Handler func(e *Event)

// On registers h for each space-separated event type.
func (n *Node) On(types string, h Handler) {
	if n.handlers == nil {
		n.handlers = make(map[string][]Handler)
	}
	for _, t := range strings.Fields(types) {
		n.handlers[t] = append(n.handlers[t], h)
	}
}

// Off removes all handlers for the space-separated event types.
// An empty string removes every handler.
func (n *Node) Off(types string) {
	if strings.TrimSpace(types) == "" {
		n.handlers = nil
		return
	}
	for _, t := range strings.Fields(types) {
		delete(n.handlers, t)
	}
}

// HandlerCount is the number of handlers bound for one event type.
func (n *Node) HandlerCount(typ string) int { return len(n.handlers[typ]) }

// Fire dispatches e to n and then to its ancestors until a handler sets
// CancelBubble. A nil e is allowed.
func (n *Node) Fire(typ string, e *Event) *Event {
	if e == nil {
		e = &Event{}
	}
	e.Type = typ
	if e.Target == nil {
		e.Target = n
	}
	for cur := n; cur != nil; cur = cur.parent {
		e.CurrentTarget = cur
		// copy: handlers may call On/Off while running
		hs := append([]Handler(nil), cur.handlers[typ]...)
		for _, h := range hs {
			h(e)
		}
		if e.CancelBubble {
			break
		}
	}
	return e
}
