/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"sync"

	"cvcanvas/internal/element"
)

// ZoomObserver is implemented by subscribers that display the zoom level.
type ZoomObserver interface {
	ZoomChanged(scale float64, label string)
}

// fanout forwards element notifications to every subscriber. Subscribers
// may come and go from other goroutines (websocket clients), so the set is
// guarded; the calls themselves happen on the session's goroutine.
type fanout struct {
	mu   sync.Mutex
	next int
	subs map[int]element.Notifier
}

func newFanout() *fanout { return &fanout{subs: make(map[int]element.Notifier)} }

func (f *fanout) add(n element.Notifier) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.subs[id] = n
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *fanout) snapshot() []element.Notifier {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]element.Notifier, 0, len(f.subs))
	for i := 0; i < f.next; i++ {
		if n, ok := f.subs[i]; ok {
			out = append(out, n)
		}
	}
	return out
}

func (f *fanout) ElementCountChanged(n int) {
	for _, s := range f.snapshot() {
		s.ElementCountChanged(n)
	}
}

func (f *fanout) PropertiesPanelRefresh(el *element.Element) {
	for _, s := range f.snapshot() {
		s.PropertiesPanelRefresh(el)
	}
}

func (f *fanout) ElementInfo(text string) {
	for _, s := range f.snapshot() {
		s.ElementInfo(text)
	}
}

func (f *fanout) ZoomChanged(scale float64, label string) {
	for _, s := range f.snapshot() {
		if z, ok := s.(ZoomObserver); ok {
			z.ZoomChanged(scale, label)
		}
	}
}
