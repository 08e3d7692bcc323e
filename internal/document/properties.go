/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Properties is an insertion-ordered name -> value map. Values are the
// JSON-compatible scalars and slices used by the editor. The zero value is
// ready to use.
type Properties struct {
	keys []string
	vals map[string]any
}

// NewProperties builds a bag from alternating key, value pairs.
func NewProperties(kv ...any) *Properties {
	p := &Properties{}
	for i := 0; i+1 < len(kv); i += 2 {
		k, _ := kv[i].(string)
		p.Set(k, kv[i+1])
	}
	return p
}

// Set stores v under k, keeping the first-insertion position.
func (p *Properties) Set(k string, v any) {
	if p.vals == nil {
		p.vals = make(map[string]any)
	}
	if _, ok := p.vals[k]; !ok {
		p.keys = append(p.keys, k)
	}
	p.vals[k] = v
}

func (p *Properties) Get(k string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.vals[k]
	return v, ok
}

func (p *Properties) Delete(k string) {
	if _, ok := p.vals[k]; !ok {
		return
	}
	delete(p.vals, k)
	p.keys = slices.DeleteFunc(p.keys, func(s string) bool { return s == k })
}

// Keys returns names in insertion order.
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	return slices.Clone(p.keys)
}

func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Clone copies the bag; slice values are copied too.
func (p *Properties) Clone() *Properties {
	out := &Properties{}
	if p == nil {
		return out
	}
	for _, k := range p.keys {
		v := p.vals[k]
		if f, ok := v.([]float64); ok {
			v = slices.Clone(f)
		}
		out.Set(k, v)
	}
	return out
}

// Merge copies every entry of o into p.
func (p *Properties) Merge(o *Properties) {
	for _, k := range o.Keys() {
		v, _ := o.Get(k)
		p.Set(k, v)
	}
}

// String returns the value of k formatted as text.
func (p *Properties) String(k string) string {
	v, ok := p.Get(k)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Map returns an unordered copy.
func (p *Properties) Map() map[string]any {
	out := make(map[string]any, p.Len())
	for _, k := range p.Keys() {
		out[k], _ = p.Get(k)
	}
	return out
}

// MarshalJSON writes keys in insertion order.
func (p *Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(p.vals[k])
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object, preserving the key order of the input.
func (p *Properties) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("properties: expected object, got %v", tok)
	}
	*p = Properties{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		k, _ := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("property %q: %w", k, err)
		}
		p.Set(k, v)
	}
	_, err = dec.Token()
	return err
}
