/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package element

import (
	"fmt"
	"strconv"
	"strings"

	"cvcanvas/internal/scene"
)

// Role names the sub-nodes of a composite element. They double as the
// sub-node name tags so serialized trees can be re-bound after a load.
type Role string

const (
	RolePlaceholderRect    Role = "image-placeholder-rect"
	RolePlaceholderText    Role = "image-placeholder-text"
	RoleAvatarCircle       Role = "avatar-placeholder-circle"
	RoleAvatarText         Role = "avatar-placeholder-text"
	RoleIconText           Role = "icon-text"
	RoleProgressBackground Role = "progress-background"
	RoleProgressFill       Role = "progress-fill"
	RoleProgressText       Role = "progress-text"
)

var requiredRoles = map[Type][]Role{
	Image:       {RolePlaceholderRect, RolePlaceholderText},
	Avatar:      {RoleAvatarCircle, RoleAvatarText},
	Icon:        {RoleIconText},
	ProgressBar: {RoleProgressBackground, RoleProgressFill, RoleProgressText},
}

// Parts is the owned decomposition of an element's node.
type Parts struct {
	Container *scene.Node
	roles     map[Role]*scene.Node
	// Stars holds a rating's star glyphs in index order.
	Stars []*scene.Node
}

// Part returns the sub-node for r, or nil.
func (p Parts) Part(r Role) *scene.Node { return p.roles[r] }

func starName(i int) string { return "star-" + strconv.Itoa(i) }

func starIndex(n *scene.Node) (int, bool) {
	for _, tag := range strings.Fields(n.Name()) {
		if s, ok := strings.CutPrefix(tag, "star-"); ok {
			if i, err := strconv.Atoi(s); err == nil {
				return i, true
			}
		}
	}
	return 0, false
}

// bindParts resolves the role map of a freshly built or freshly loaded node.
func bindParts(t Type, n *scene.Node) (Parts, error) {
	p := Parts{Container: n}
	if !t.IsComposite() {
		return p, nil
	}
	if n.Kind() != scene.KindGroup {
		return p, fmt.Errorf("%s element must be a group, got %s", t, n.Kind())
	}
	if t == Rating {
		byIndex := map[int]*scene.Node{}
		for _, c := range n.Children() {
			if c.Kind() != scene.KindText {
				continue
			}
			if i, ok := starIndex(c); ok {
				byIndex[i] = c
			}
		}
		for i := 0; i < len(byIndex); i++ {
			s, ok := byIndex[i]
			if !ok {
				return p, fmt.Errorf("rating element: missing %s", starName(i))
			}
			p.Stars = append(p.Stars, s)
		}
		return p, nil
	}
	p.roles = make(map[Role]*scene.Node)
	for _, r := range requiredRoles[t] {
		c := n.FindOne("." + string(r))
		if c == nil {
			return p, fmt.Errorf("%s element: missing part %s", t, r)
		}
		p.roles[r] = c
	}
	return p, nil
}
