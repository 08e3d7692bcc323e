/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"log/slog"

	"cvcanvas/internal/document"
	"cvcanvas/internal/element"
	"cvcanvas/internal/scene"
)

// LoadReport summarizes a load.
type LoadReport struct {
	Format  document.Format
	Loaded  int
	Skipped int
}

// Load replaces the canvas content with a serialized scene in any of the
// accepted shapes. Malformed entries are logged and skipped; only an
// undecodable payload is an error, in which case the canvas is untouched.
func (s *Session) Load(data []byte) (LoadReport, error) {
	p, err := document.Decode(data)
	if err != nil {
		return LoadReport{}, fmt.Errorf("load canvas: %w", err)
	}
	s.m.Clear()
	rep := LoadReport{Format: p.Format}
	switch p.Format {
	case document.FormatElements:
		for _, e := range p.Entries {
			if s.loadRecord(e) {
				rep.Loaded++
			} else {
				rep.Skipped++
			}
		}
	default:
		for i, n := range p.Nodes {
			if s.loadNode(i, n) {
				rep.Loaded++
			} else {
				rep.Skipped++
			}
		}
	}
	s.m.Deselect()
	s.layer.Draw()
	s.log.Info("canvas loaded",
		slog.String("format", rep.Format.String()),
		slog.Int("loaded", rep.Loaded),
		slog.Int("skipped", rep.Skipped))
	return rep, nil
}

// LoadDocument loads an already decoded save payload.
func (s *Session) LoadDocument(doc document.Document) (LoadReport, error) {
	b, err := doc.Marshal()
	if err != nil {
		return LoadReport{}, err
	}
	return s.Load(b)
}

// freshID keeps ids unique when a payload repeats one.
func (s *Session) freshID(n *scene.Node) {
	if id := n.ID(); id != "" {
		if _, dup := s.m.Get(id); !dup {
			return
		}
	}
	n.SetID(s.factory.NewID())
}

// loadNode rebuilds a serialized scene node and infers its element type
// from its tags.
func (s *Session) loadNode(i int, data map[string]any) bool {
	n, err := scene.Create(data)
	if err != nil {
		s.log.Error("node reconstruction failed", slog.Int("index", i), slog.Any("err", err))
		return false
	}
	t, ok := element.TypeFromNode(n)
	if !ok {
		s.log.Warn("skipping untyped node", slog.Int("index", i), slog.String("class", n.ClassName()))
		return false
	}
	s.freshID(n)
	el, err := s.m.Add(n, t, nil)
	if err != nil {
		s.log.Error("node registration failed", slog.Int("index", i), slog.String("type", string(t)), slog.Any("err", err))
		return false
	}
	el.Properties = element.Derive(el)
	s.bridge.Bind(el)
	return true
}

// loadRecord builds an element from a save record: the factory provides
// the structure, the record's attrs and properties override it.
func (s *Session) loadRecord(e document.Entry) bool {
	if e.Err != nil {
		s.log.Warn("skipping invalid element", slog.Int("index", e.Index), slog.Any("err", e.Err))
		return false
	}
	r := e.Record
	t, ok := element.ParseType(r.Type)
	if !ok {
		s.log.Warn("skipping unknown element type", slog.Int("index", e.Index), slog.String("type", r.Type))
		return false
	}
	x, _ := scene.Num(r.Attrs["x"])
	y, _ := scene.Num(r.Attrs["y"])
	n, err := s.factory.Create(t, &scene.Pt{X: x, Y: y})
	if err != nil {
		s.log.Error("element reconstruction failed", slog.Int("index", e.Index), slog.Any("err", err))
		return false
	}
	n.SetAttrs(scene.Attrs(r.Attrs))
	n.SetDraggable(true)
	s.freshID(n)
	props := r.Properties
	if props == nil {
		props = element.DefaultProperties(t)
	}
	el, err := s.m.Add(n, t, props)
	if err != nil {
		s.log.Error("element registration failed", slog.Int("index", e.Index), slog.Any("err", err))
		return false
	}
	s.m.Rehydrate(el)
	s.bridge.Bind(el)
	return true
}
