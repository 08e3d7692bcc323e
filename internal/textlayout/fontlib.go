/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// GoFontProvider resolves every family to the bundled Go fonts, picking the
// bold/italic cut from the FontSpec. Faces are cached per (style, size).
// The families offered by the editor (Arial, Helvetica, Times New Roman) have
// no bundled outlines; Go Regular is metrically close enough for exports.
type GoFontProvider struct {
	mu    sync.Mutex
	fonts map[style]*opentype.Font
	faces map[faceKey]font.Face
}

type style struct{ bold, italic bool }

type faceKey struct {
	st   style
	size float64
}

// NewGoFontProvider parses the embedded Go fonts.
func NewGoFontProvider() (*GoFontProvider, error) {
	src := map[style][]byte{
		{false, false}: goregular.TTF,
		{true, false}:  gobold.TTF,
		{false, true}:  goitalic.TTF,
		{true, true}:   gobolditalic.TTF,
	}
	p := &GoFontProvider{fonts: make(map[style]*opentype.Font, len(src)), faces: make(map[faceKey]font.Face)}
	for st, data := range src {
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse go font: %w", err)
		}
		p.fonts[st] = f
	}
	return p, nil
}

func (p *GoFontProvider) Resolve(spec FontSpec) (font.Face, float64) {
	size := spec.Size
	if size <= 0 {
		size = 12
	}
	key := faceKey{st: style{spec.Bold, spec.Italic}, size: size}
	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.faces[key]; ok {
		return f, 1
	}
	face, err := opentype.NewFace(p.fonts[key.st], &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return BasicProvider{}.Resolve(spec)
	}
	p.faces[key] = face
	return face, 1
}

// Source returns the TTF bytes backing a spec, for renderers that rasterize themselves.
func Source(spec FontSpec) []byte {
	switch {
	case spec.Bold && spec.Italic:
		return gobolditalic.TTF
	case spec.Bold:
		return gobold.TTF
	case spec.Italic:
		return goitalic.TTF
	default:
		return goregular.TTF
	}
}
