/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls a multi-format export of one page.
//
// Files are written as <OutDir>/<Name>.<ext>; raster files rendered at a pixel
// ratio above one get an @<n>x suffix.
type BatchOptions struct {
	Preset     PresetName
	Formats    []string // allowed: pdf, png, svg; empty means preset defaults
	PixelRatio float64  // when > 0 overrides the preset's raster ratio
	Background string
	OutDir     string
	Name       string // base file name; empty means "cv"
}

// BatchExport renders page in every requested format and returns the paths written.
func BatchExport(page Page, opt BatchOptions) ([]string, error) {
	names := opt.Formats
	if len(names) == 0 {
		names = presetDefaultFormats(opt.Preset)
	}
	base := opt.Name
	if base == "" {
		base = "cv"
	}
	ratio := presetPixelRatio(opt.Preset)
	if opt.PixelRatio > 0 {
		ratio = opt.PixelRatio
	}

	var written []string
	for _, name := range names {
		f, err := ParseFormat(name)
		if err != nil {
			return written, err
		}
		file := base
		ro := Options{Background: opt.Background}
		if f == FormatPNG {
			ro.PixelRatio = ratio
			if ratio > 1 {
				file += fmt.Sprintf("@%gx", ratio)
			}
		}
		out := filepath.Join(opt.OutDir, file+"."+string(f))
		if err := WriteFile(out, f, page, ro); err != nil {
			return written, fmt.Errorf("%s: %w", strings.ToUpper(string(f)), err)
		}
		written = append(written, out)
	}
	return written, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "svg"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"pdf"}
	}
}

func presetPixelRatio(p PresetName) float64 {
	if p == PresetPrint {
		return 2
	}
	return 1
}
