/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package element

import (
	"regexp"
	"strconv"
	"strings"
)

// NumberedBullet selects "1. 2. 3." numbering instead of a glyph prefix.
const NumberedBullet = "1."

// BulletStyles are the list styles the panel offers.
var BulletStyles = []string{"•", "-", NumberedBullet}

var (
	bulletPrefix  = regexp.MustCompile(`^[•\-*+]|^\d+\.\s*`)
	numericPrefix = regexp.MustCompile(`^(\d+)\.\s*`)
)

// FormatList strips one existing bullet or "N. " prefix from every line,
// drops empty lines and re-applies style. Numbered lists are renumbered 1..n.
func FormatList(text, style string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimLeft(line, " \t\r")
		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	for i, line := range out {
		if style == NumberedBullet {
			out[i] = strconv.Itoa(i+1) + ". " + line
		} else {
			out[i] = style + " " + line
		}
	}
	return strings.Join(out, "\n")
}

// NextPrefix is the prefix a new line inserted after before (the text up to
// the cursor) gets. Numbered lists continue from the number of the line the
// cursor is on; following lines are left as they are.
func NextPrefix(before, style string) string {
	if style != NumberedBullet {
		return style + " "
	}
	cur := before
	if i := strings.LastIndex(before, "\n"); i >= 0 {
		cur = before[i+1:]
	}
	n := 1
	if m := numericPrefix.FindStringSubmatch(strings.TrimLeft(cur, " \t")); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			n = v + 1
		}
	}
	return strconv.Itoa(n) + ". "
}
