/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownClass is returned by Create for a className it cannot build.
var ErrUnknownClass = errors.New("scene: unknown className")

// ToJSON serializes n and its subtree as {attrs, className, children}.
// Transformer overlays are editor chrome and are left out.
func (n *Node) ToJSON() map[string]any {
	out := map[string]any{
		"attrs":     map[string]any(n.Attrs()),
		"className": string(n.kind),
	}
	var kids []any
	for _, c := range n.children {
		if c.kind == KindTransformer {
			continue
		}
		kids = append(kids, c.ToJSON())
	}
	if len(kids) > 0 {
		out["children"] = kids
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (n *Node) MarshalJSON() ([]byte, error) { return json.Marshal(n.ToJSON()) }

// Create rebuilds a node tree from the map form produced by ToJSON
// (or decoded from JSON). Stages cannot be created this way; use their layers.
func Create(data map[string]any) (*Node, error) {
	cls, _ := data["className"].(string)
	var k Kind
	switch Kind(cls) {
	case KindLayer, KindGroup, KindText, KindRect, KindCircle, KindLine:
		k = Kind(cls)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, cls)
	}
	attrs, _ := data["attrs"].(map[string]any)
	n := newNode(k, attrs)
	kids, _ := data["children"].([]any)
	if len(kids) > 0 && !n.IsContainer() {
		return nil, fmt.Errorf("scene: %s cannot have children", cls)
	}
	for i, raw := range kids {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("scene: child %d of %s is not an object", i, cls)
		}
		if c, _ := m["className"].(string); c == string(KindTransformer) {
			continue
		}
		child, err := Create(m)
		if err != nil {
			return nil, fmt.Errorf("child %d of %s: %w", i, cls, err)
		}
		n.Add(child)
	}
	return n, nil
}

// CreateJSON decodes a serialized node and rebuilds it.
func CreateJSON(b []byte) (*Node, error) {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode node: %w", err)
	}
	return Create(m)
}
