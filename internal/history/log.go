/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package history keeps the bounded audit trail of editing actions.
// Entries are recorded but never replayed; Index marks the logical current
// position so a later undo can build on the same shape.
package history

import (
	"slices"
	"sync"
	"time"
)

// DefaultCapacity is the number of most recent entries kept.
const DefaultCapacity = 50

// Action tags.
const (
	ActionMove      = "move"
	ActionTransform = "transform"
	ActionProperty  = "property"
	ActionAdd       = "add"
	ActionRemove    = "remove"
)

// Data is the payload of an entry. Before and After hold whatever
// attributes are needed to describe the change (a position for moves,
// an attribute snapshot for transforms, a single value for property edits).
type Data struct {
	ElementID string         `json:"elementId"`
	Property  string         `json:"property,omitempty"`
	Before    map[string]any `json:"before,omitempty"`
	After     map[string]any `json:"after,omitempty"`
}

// Entry is one recorded action.
type Entry struct {
	Action    string    `json:"action"`
	Data      Data      `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Config controls the log. Zero values pick the defaults.
type Config struct {
	Capacity int
	Now      func() time.Time
}

// Log is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	cfg     Config
	entries []Entry
	index   int
}

func New(cfg Config) *Log {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Log{cfg: cfg, index: -1}
}

// Record drops anything past the current index, appends the entry and
// evicts the oldest one once the log is over capacity.
func (l *Log) Record(action string, data Data) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := Entry{Action: action, Data: data, Timestamp: l.cfg.Now()}
	l.entries = append(l.entries[:l.index+1], e)
	l.index++
	if over := len(l.entries) - l.cfg.Capacity; over > 0 {
		l.entries = slices.Delete(l.entries, 0, over)
		l.index -= over
	}
	return e
}

// Index is the position of the current entry, -1 when empty.
func (l *Log) Index() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.index
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns a copy, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

// Last returns the newest entry.
func (l *Log) Last() (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Clear empties the log.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.index = -1
}
