/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import "math"

// Transform is the node's local matrix:
// translate(x,y) * rotate(rotation) * scale(scaleX,scaleY) * translate(-offsetX,-offsetY).
func (n *Node) Transform() Affine {
	m := Translate(n.X(), n.Y())
	if r := n.Float("rotation"); r != 0 {
		m = m.Mul(Rotate(r))
	}
	m = m.Mul(Scale(n.ScaleX(), n.ScaleY()))
	if ox, oy := n.Float("offsetX"), n.Float("offsetY"); ox != 0 || oy != 0 {
		m = m.Mul(Translate(-ox, -oy))
	}
	return m
}

// AbsoluteTransform maps local coordinates to stage container pixels,
// including the stage's own zoom and pan.
func (n *Node) AbsoluteTransform() Affine {
	m := n.Transform()
	for p := n.parent; p != nil; p = p.parent {
		m = p.Transform().Mul(m)
	}
	return m
}

// AbsolutePosition is the node origin in container pixels.
func (n *Node) AbsolutePosition() Pt {
	return n.AbsoluteTransform().Apply(Pt{})
}

// RelativePointerPosition maps the stage pointer into n's local space.
func (n *Node) RelativePointerPosition() (Pt, bool) {
	st := n.Stage()
	if st == nil {
		return Pt{}, false
	}
	p, ok := st.PointerPosition()
	if !ok {
		return Pt{}, false
	}
	return n.AbsoluteTransform().Invert().Apply(p), true
}

// selfRect is the untransformed geometry of a single node.
func (n *Node) selfRect() Rect {
	switch n.kind {
	case KindCircle:
		r := n.Radius()
		return Rect{X: -r, Y: -r, W: 2 * r, H: 2 * r}
	case KindLine:
		pts := n.Points()
		if len(pts) < 2 {
			return Rect{}
		}
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for i := 0; i+1 < len(pts); i += 2 {
			minX, maxX = math.Min(minX, pts[i]), math.Max(maxX, pts[i])
			minY, maxY = math.Min(minY, pts[i+1]), math.Max(maxY, pts[i+1])
		}
		return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
	default:
		return Rect{W: n.Width(), H: n.Height()}
	}
}

// ClientRect is the axis-aligned bounding box in container pixels. Containers
// report the union of their visible children.
func (n *Node) ClientRect() Rect {
	if n.IsContainer() {
		var out Rect
		first := true
		for _, c := range n.children {
			if c.kind == KindTransformer || !c.Visible() {
				continue
			}
			cr := c.ClientRect()
			if first {
				out, first = cr, false
			} else {
				out = out.Union(cr)
			}
		}
		if first {
			return n.AbsoluteTransform().Bounds(n.selfRect())
		}
		return out
	}
	return n.AbsoluteTransform().Bounds(n.selfRect())
}

// hitLocal tests a point already mapped into n's local space.
func (n *Node) hitLocal(q Pt) bool {
	switch n.kind {
	case KindRect, KindText:
		return n.selfRect().Contains(q)
	case KindCircle:
		r := n.Radius()
		return q.X*q.X+q.Y*q.Y <= r*r
	case KindLine:
		tol := math.Max(n.Float("hitStrokeWidth"), n.StrokeWidth()) / 2
		pts := n.Points()
		for i := 0; i+3 < len(pts); i += 2 {
			if segDist(q, Pt{pts[i], pts[i+1]}, Pt{pts[i+2], pts[i+3]}) <= tol {
				return true
			}
		}
	}
	return false
}

func segDist(p, a, b Pt) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	t := 0.0
	if l2 > 0 {
		t = math.Max(0, math.Min(1, ((p.X-a.X)*dx+(p.Y-a.Y)*dy)/l2))
	}
	cx, cy := a.X+t*dx-p.X, a.Y+t*dy-p.Y
	return math.Hypot(cx, cy)
}

// Hit reports whether container point p lands on n or, for containers, on
// one of its listening descendants. It returns the top-most shape hit.
func (n *Node) Hit(p Pt) *Node {
	if !n.Visible() || !n.Listening() || n.kind == KindTransformer {
		return nil
	}
	if n.IsContainer() {
		for i := len(n.children) - 1; i >= 0; i-- { // top-most first
			if h := n.children[i].Hit(p); h != nil {
				return h
			}
		}
		return nil
	}
	if n.hitLocal(n.AbsoluteTransform().Invert().Apply(p)) {
		return n
	}
	return nil
}
