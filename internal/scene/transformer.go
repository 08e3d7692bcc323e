/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"slices"
	"strings"
)

// Anchor names of the resize handles.
const (
	TopLeft      = "top-left"
	TopCenter    = "top-center"
	TopRight     = "top-right"
	MiddleLeft   = "middle-left"
	MiddleRight  = "middle-right"
	BottomLeft   = "bottom-left"
	BottomCenter = "bottom-center"
	BottomRight  = "bottom-right"
)

// AllAnchors is the full handle set.
var AllAnchors = []string{TopLeft, TopCenter, TopRight, MiddleRight, MiddleLeft, BottomLeft, BottomCenter, BottomRight}

// Transformer is the resize handle overlay. It lives in a layer like any
// node and is attached to a set of target nodes.
type Transformer struct {
	node *Node

	nodes         []*Node
	anchors       []string // nil means all
	keepRatio     bool
	rotateEnabled bool

	active bool
}

// TransformerConfig holds the style and behavior knobs.
type TransformerConfig struct {
	KeepRatio     bool
	RotateEnabled bool
	BorderDash    []float64
	BorderStroke  string
	AnchorStroke  string
	AnchorFill    string
	AnchorSize    float64
}

// NewTransformer builds an overlay with no targets.
func NewTransformer(cfg TransformerConfig) *Transformer {
	n := newNode(KindTransformer, Attrs{
		"keepRatio":     cfg.KeepRatio,
		"rotateEnabled": cfg.RotateEnabled,
		"borderDash":    cfg.BorderDash,
		"borderStroke":  cfg.BorderStroke,
		"anchorStroke":  cfg.AnchorStroke,
		"anchorFill":    cfg.AnchorFill,
		"anchorSize":    cfg.AnchorSize,
	})
	t := &Transformer{node: n, keepRatio: cfg.KeepRatio, rotateEnabled: cfg.RotateEnabled}
	n.tr = t
	return t
}

// Node returns the overlay's own scene node.
func (t *Transformer) Node() *Node { return t.node }

func (t *Transformer) Nodes() []*Node { return slices.Clone(t.nodes) }

// SetNodes attaches the overlay to targets; no arguments detaches it.
func (t *Transformer) SetNodes(nodes ...*Node) {
	t.nodes = slices.DeleteFunc(slices.Clone(nodes), func(n *Node) bool { return n == nil })
	t.active = false
	t.node.markDirty()
}

// Attached reports whether n is one of the overlay's targets.
func (t *Transformer) Attached(n *Node) bool { return slices.Contains(t.nodes, n) }

// EnabledAnchors returns the usable handles; nil means all of them.
func (t *Transformer) EnabledAnchors() []string {
	if t.anchors == nil {
		return slices.Clone(AllAnchors)
	}
	return slices.Clone(t.anchors)
}

// SetEnabledAnchors restricts the handles; nil enables all.
func (t *Transformer) SetEnabledAnchors(a []string) {
	if a == nil {
		t.anchors = nil
	} else {
		t.anchors = slices.Clone(a)
	}
	t.node.SetAttr("enabledAnchors", strings.Join(t.EnabledAnchors(), " "))
}

func (t *Transformer) KeepRatio() bool { return t.keepRatio }
func (t *Transformer) SetKeepRatio(v bool) {
	t.keepRatio = v
	t.node.SetAttr("keepRatio", v)
}

func (t *Transformer) RotateEnabled() bool { return t.rotateEnabled }
func (t *Transformer) SetRotateEnabled(v bool) {
	t.rotateEnabled = v
	t.node.SetAttr("rotateEnabled", v)
}

// MoveToTop raises the overlay above every sibling.
func (t *Transformer) MoveToTop() { t.node.MoveToTop() }

// Box is the union of the targets' client rects.
func (t *Transformer) Box() Rect {
	var out Rect
	for i, n := range t.nodes {
		if i == 0 {
			out = n.ClientRect()
			continue
		}
		out = out.Union(n.ClientRect())
	}
	return out
}

// Active reports whether a resize gesture is in progress.
func (t *Transformer) Active() bool { return t.active }

// Resize moves anchor by one pointer step, multiplying each target's
// current scale by (fx, fy). Side anchors only affect one axis; left/top
// anchors keep the opposite edge in place. The first step of a gesture fires
// "transformstart"; every step fires "transform".
// It returns false when the anchor is disabled or nothing is attached.
func (t *Transformer) Resize(anchor string, fx, fy float64) bool {
	if len(t.nodes) == 0 || !slices.Contains(t.EnabledAnchors(), anchor) {
		return false
	}
	switch anchor {
	case MiddleLeft, MiddleRight:
		fy = 1
	case TopCenter, BottomCenter:
		fx = 1
	default:
		if t.keepRatio {
			fy = fx
		}
	}
	if !t.active {
		t.active = true
		for _, n := range t.nodes {
			n.Fire("transformstart", &Event{})
		}
	}
	for _, n := range t.nodes {
		prevW := n.Width() * n.ScaleX()
		prevH := n.Height() * n.ScaleY()
		n.SetScale(n.ScaleX()*fx, n.ScaleY()*fy)
		pos := n.Position()
		if strings.Contains(anchor, "left") {
			pos.X += prevW - prevW*fx
		}
		if strings.HasPrefix(anchor, "top") {
			pos.Y += prevH - prevH*fy
		}
		n.SetPosition(pos)
		n.Fire("transform", &Event{})
	}
	t.node.BatchDraw()
	return true
}

// End finishes the gesture and fires "transformend" on each target.
func (t *Transformer) End() {
	if !t.active {
		return
	}
	t.active = false
	for _, n := range t.nodes {
		n.Fire("transformend", &Event{})
	}
}
