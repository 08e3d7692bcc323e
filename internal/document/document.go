/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package document defines the canonical save payload of a canvas,
// {"elements":[{id,type,attrs,properties}]}, and decodes the three shapes
// accepted on load: a serialized stage tree, an element list, or a single
// serialized node.
package document

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

// Record is one element in the save payload.
type Record struct {
	ID         string         `json:"id,omitempty"`
	Type       string         `json:"type"`
	Attrs      map[string]any `json:"attrs"`
	Properties *Properties    `json:"properties,omitempty"`
}

// Document is the canonical save payload.
type Document struct {
	Elements []Record `json:"elements"`
}

// Marshal renders the document as indented JSON.
func (d Document) Marshal() ([]byte, error) {
	if d.Elements == nil {
		d.Elements = []Record{}
	}
	return json.MarshalIndent(d, "", "  ")
}

// Format identifies which load shape a payload uses.
type Format int

const (
	FormatUnknown  Format = iota
	FormatStage           // {"children":[layer{"children":[node...]}...]}
	FormatElements        // {"elements":[record...]}
	FormatNode            // {"attrs":{...}, "className":"..."}
)

func (f Format) String() string {
	switch f {
	case FormatStage:
		return "stage"
	case FormatElements:
		return "elements"
	case FormatNode:
		return "node"
	default:
		return "unknown"
	}
}

// ErrUnknownFormat is returned when a payload matches none of the load shapes.
var ErrUnknownFormat = errors.New("document: unrecognized payload shape")

// Entry is one decoded element candidate. Err is set when the entry is
// malformed; callers skip such entries and keep loading the rest.
type Entry struct {
	Index  int
	Record Record
	Err    error
}

// Payload is a decoded load input.
type Payload struct {
	Format Format
	// Nodes holds serialized scene nodes (stage and node formats), one per
	// top-level element, in draw order.
	Nodes []map[string]any
	// Entries holds element records (elements format).
	Entries []Entry
}

//go:embed schema/element.schema.json
var elementSchema []byte

var elementSchemaLoader = gojsonschema.NewBytesLoader(elementSchema)

// Decode sniffs the payload shape in the same priority the editor always
// used: children first, then elements, then a single node.
func Decode(data []byte) (*Payload, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if kids, ok := raw["children"].([]any); ok {
		p := &Payload{Format: FormatStage}
		for _, l := range kids {
			layer, _ := l.(map[string]any)
			nodes, _ := layer["children"].([]any)
			for _, n := range nodes {
				if m, ok := n.(map[string]any); ok {
					p.Nodes = append(p.Nodes, m)
				}
			}
		}
		return p, nil
	}
	if els, ok := raw["elements"].([]any); ok {
		p := &Payload{Format: FormatElements}
		for i, e := range els {
			p.Entries = append(p.Entries, decodeEntry(i, e))
		}
		return p, nil
	}
	if _, ok := raw["attrs"]; ok {
		return &Payload{Format: FormatNode, Nodes: []map[string]any{raw}}, nil
	}
	if _, ok := raw["className"]; ok {
		return &Payload{Format: FormatNode, Nodes: []map[string]any{raw}}, nil
	}
	return nil, ErrUnknownFormat
}

func decodeEntry(i int, v any) Entry {
	e := Entry{Index: i}
	res, err := gojsonschema.Validate(elementSchemaLoader, gojsonschema.NewGoLoader(v))
	if err != nil {
		e.Err = fmt.Errorf("element %d: validate: %w", i, err)
		return e
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, re := range res.Errors() {
			msgs = append(msgs, re.String())
		}
		e.Err = fmt.Errorf("element %d: %s", i, strings.Join(msgs, "; "))
		return e
	}
	b, err := json.Marshal(v)
	if err != nil {
		e.Err = fmt.Errorf("element %d: %w", i, err)
		return e
	}
	if err := json.Unmarshal(b, &e.Record); err != nil {
		e.Err = fmt.Errorf("element %d: %w", i, err)
	}
	return e
}

// Parse decodes an elements-format payload into a Document, dropping
// invalid entries. It returns the skipped entries' errors joined.
func Parse(data []byte) (Document, error) {
	p, err := Decode(data)
	if err != nil {
		return Document{}, err
	}
	if p.Format != FormatElements {
		return Document{}, fmt.Errorf("document: expected elements payload, got %s", p.Format)
	}
	var doc Document
	var errs []error
	for _, e := range p.Entries {
		if e.Err != nil {
			errs = append(errs, e.Err)
			continue
		}
		doc.Elements = append(doc.Elements, e.Record)
	}
	return doc, errors.Join(errs...)
}
