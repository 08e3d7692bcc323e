/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package element

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cvcanvas/internal/scene"
)

func TestAvatarRadiusRecomputesParts(t *testing.T) {
	fx := newFixture(t)
	el := fx.add(t, Avatar, nil)
	draws := fx.layer.Draws()
	require.NoError(t, fx.m.SetProperty(el, "radius", 80))

	c, label := el.Parts.Part(RoleAvatarCircle), el.Parts.Part(RoleAvatarText)
	require.Equal(t, 80.0, c.Radius())
	require.Equal(t, scene.Pt{X: 80, Y: 80}, c.Position())
	require.Equal(t, 160.0, el.Node.Width())
	require.Equal(t, 160.0, el.Node.Height())
	require.Equal(t, 20.0, label.FontSize())
	require.Equal(t, scene.Pt{X: 80, Y: 80}, label.Position())
	require.InDelta(t, label.Width()/2, label.Float("offsetX"), 1e-9)
	require.Equal(t, 80.0, el.Properties.Map()["radius"])
	require.Greater(t, fx.layer.Draws(), draws)

	require.NoError(t, fx.m.SetProperty(el, "radius", "20"))
	require.Equal(t, 10.0, label.FontSize(), "label size floors at 10")
}

func TestAvatarRejectsInvalidInput(t *testing.T) {
	fx := newFixture(t)
	el := fx.add(t, Avatar, nil)
	require.ErrorIs(t, fx.m.SetProperty(el, "radius", "abc"), ErrInvalidValue)
	require.ErrorIs(t, fx.m.SetProperty(el, "radius", -5), ErrInvalidValue)
	require.ErrorIs(t, fx.m.SetProperty(el, "width", 300), ErrInvalidValue)
	require.Equal(t, 100.0, el.Node.Width())
	require.NoError(t, fx.m.SetProperty(el, "x", 33))
	require.Equal(t, 33.0, el.Node.X())
}

func TestMissingArguments(t *testing.T) {
	fx := newFixture(t)
	el := fx.add(t, Text, nil)
	require.ErrorIs(t, fx.m.SetProperty(nil, "x", 1), ErrMissingArgument)
	require.ErrorIs(t, fx.m.SetProperty(el, "", 1), ErrMissingArgument)
	require.ErrorIs(t, fx.m.SetProperty(el, "x", nil), ErrMissingArgument)

	stray := &Element{ID: "stray", Type: Text, Node: scene.NewText(nil), Properties: DefaultProperties(Text)}
	require.ErrorIs(t, fx.m.SetProperty(stray, "x", 1), ErrNotRegistered)
}

func TestListBulletStyleIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	el := fx.add(t, List, nil)
	require.Equal(t, "• Mục 1\n• Mục 2\n• Mục 3", el.Node.Text())

	require.NoError(t, fx.m.SetProperty(el, "bulletStyle", "1."))
	once := el.Node.Text()
	require.Equal(t, "1. Mục 1\n2. Mục 2\n3. Mục 3", once)
	require.NoError(t, fx.m.SetProperty(el, "bulletStyle", "1."))
	require.Equal(t, once, el.Node.Text())

	require.NoError(t, fx.m.SetProperty(el, "bulletStyle", "-"))
	require.Equal(t, "- Mục 1\n- Mục 2\n- Mục 3", el.Node.Text())
	require.Equal(t, "-", el.Properties.String("bulletStyle"))
}

func TestListTextIsReformatted(t *testing.T) {
	fx := newFixture(t)
	el := fx.add(t, List, nil)
	require.NoError(t, fx.m.SetProperty(el, "text", "alpha\n\n  * beta\n3. gamma"))
	require.Equal(t, "• alpha\n• beta\n• gamma", el.Node.Text())
	require.Equal(t, el.Node.Text(), el.Properties.String("text"))
}

func TestLineStyleMapsToDash(t *testing.T) {
	fx := newFixture(t)
	el := fx.add(t, Line, nil)
	for style, dash := range map[string][]float64{"dashed": {10, 5}, "dotted": {2, 5}, "solid": {}} {
		require.NoError(t, fx.m.SetProperty(el, "lineStyle", style))
		require.Equal(t, dash, el.Node.Dash())
		require.Equal(t, dash, el.Properties.Map()["dashArray"])
	}
	require.ErrorIs(t, fx.m.SetProperty(el, "lineStyle", "wavy"), ErrInvalidValue)

	require.NoError(t, fx.m.SetProperty(el, "strokeWidth", "6"))
	require.Equal(t, 6.0, el.Node.StrokeWidth())
	require.Equal(t, 6.0, el.Properties.Map()["strokeWidth"])
}

func TestProgressValue(t *testing.T) {
	fx := newFixture(t)
	el := fx.add(t, ProgressBar, nil)
	fill, text := el.Parts.Part(RoleProgressFill), el.Parts.Part(RoleProgressText)
	require.Equal(t, 150.0, fill.Width())
	require.Equal(t, "75%", text.Text())

	require.NoError(t, fx.m.SetProperty(el, "progressValue", "40"))
	require.Equal(t, 80.0, fill.Width())
	require.Equal(t, "40%", text.Text())
	require.Equal(t, 40.0, el.Properties.Map()["value"])

	require.NoError(t, fx.m.SetProperty(el, "progressValue", 150))
	require.Equal(t, 200.0, fill.Width())
	require.Equal(t, "100%", text.Text())

	require.NoError(t, fx.m.SetProperty(el, "width", 300))
	require.Equal(t, 300.0, fill.Width())
	require.Equal(t, 150.0, text.X())

	require.NoError(t, fx.m.SetProperty(el, "fillColor", "#ff0000"))
	require.Equal(t, "#ff0000", fill.Fill())
}

func TestRatingDispatch(t *testing.T) {
	fx := newFixture(t)
	el := fx.add(t, Rating, nil)
	require.NoError(t, fx.m.SetProperty(el, "ratingValue", "2"))
	glyphs := func() (s string) {
		for _, st := range el.Parts.Stars {
			s += st.Text()
		}
		return s
	}
	require.Equal(t, "★★☆☆☆", glyphs())
	require.Equal(t, "#ffd700", el.Parts.Stars[1].Fill())
	require.Equal(t, "#e9ecef", el.Parts.Stars[2].Fill())

	require.NoError(t, fx.m.SetProperty(el, "filledColor", "#ff8800"))
	require.Equal(t, "#ff8800", el.Parts.Stars[0].Fill())
	require.Equal(t, "#e9ecef", el.Parts.Stars[4].Fill())

	require.NoError(t, fx.m.SetProperty(el, "totalStars", 7))
	require.Len(t, el.Parts.Stars, 7)
	require.Equal(t, "★★☆☆☆☆☆", glyphs())
	require.Equal(t, 175.0, el.Node.Width())
	require.Equal(t, "#ff8800", el.Parts.Stars[1].Fill())

	require.NoError(t, fx.m.SetProperty(el, "totalStars", 1))
	require.Equal(t, "★", glyphs())
	require.Equal(t, 1.0, el.Properties.Map()["rating"])

	require.NoError(t, fx.m.SetProperty(el, "ratingValue", 9))
	require.Equal(t, 1.0, el.Properties.Map()["rating"])
}

func TestIconAliases(t *testing.T) {
	fx := newFixture(t)
	el := fx.add(t, Icon, nil)
	require.NoError(t, fx.m.SetProperty(el, "iconType", "♥"))
	text := el.Parts.Part(RoleIconText)
	require.Equal(t, "♥", text.Text())
	require.Equal(t, "♥", el.Properties.String("iconChar"))
	v, ok := el.Value("iconType")
	require.True(t, ok)
	require.Equal(t, "♥", v)
}

func TestCircleWidthDrivesRadius(t *testing.T) {
	fx := newFixture(t)
	el := fx.add(t, Circle, nil)
	require.NoError(t, fx.m.SetProperty(el, "width", 40))
	require.Equal(t, 20.0, el.Node.Radius())
	require.Equal(t, 20.0, el.Properties.Map()["radius"])
}

func TestToggleFontStyle(t *testing.T) {
	fx := newFixture(t)
	el := fx.add(t, Heading, nil)
	require.True(t, FontStyleActive(el, StyleBold))
	require.NoError(t, fx.m.ToggleFontStyle(el, StyleItalic))
	require.Equal(t, "bold italic", el.Node.FontStyle())
	require.NoError(t, fx.m.ToggleFontStyle(el, StyleBold))
	require.Equal(t, "italic", el.Node.FontStyle())
	require.NoError(t, fx.m.ToggleFontStyle(el, StyleItalic))
	require.Equal(t, "normal", el.Node.FontStyle())
	require.NoError(t, fx.m.ToggleFontStyle(el, StyleUnderline))
	require.True(t, FontStyleActive(el, StyleUnderline))
	require.Equal(t, "underline", el.Properties.String("textDecoration"))

	rect := fx.add(t, Rectangle, nil)
	require.ErrorIs(t, fx.m.ToggleFontStyle(rect, StyleBold), ErrInvalidValue)
}

// Every rule-backed bag entry must read back from the nodes after a set.
func TestBagMatchesVisualAfterDispatch(t *testing.T) {
	cases := map[Type]map[string]any{
		List:        {"bulletStyle": "1."},
		Image:       {"placeholderText": "Photo", "placeholderFill": "#abcdef", "width": 220.0, "height": 90.0},
		Avatar:      {"radius": 64.0, "placeholderText": "Me", "placeholderFill": "#111111", "stroke": "#222222"},
		Line:        {"stroke": "#ff0000", "strokeWidth": 4.0, "lineStyle": "dotted"},
		Icon:        {"iconChar": "✓", "iconSize": 44.0, "iconColor": "#00ff00"},
		ProgressBar: {"value": 30.0, "fillColor": "#010101", "backgroundColor": "#020202", "textColor": "#030303"},
		Rating:      {"rating": 3.0, "filledColor": "#aa0000", "emptyColor": "#00aa00", "totalStars": 6.0},
		Rectangle:   {"fill": "#444444", "width": 120.0, "x": 15.0},
		Circle:      {"radius": 12.0, "fill": "#555555"},
		Text:        {"text": "Hello", "fontSize": 18.0, "fontFamily": "Helvetica"},
	}
	fx := newFixture(t)
	for typ, props := range cases {
		el := fx.add(t, typ, nil)
		for k, v := range props {
			require.NoError(t, fx.m.SetProperty(el, k, v), "%s.%s", typ, k)
		}
		for _, k := range el.Properties.Keys() {
			if _, ok := readers[typ][k]; !ok {
				if _, ok := props[k]; !ok {
					continue
				}
			}
			want, _ := el.Properties.Get(k)
			got, ok := el.Value(k)
			require.True(t, ok, "%s.%s readable", typ, k)
			require.Equal(t, want, got, "%s.%s", typ, k)
		}
	}
}

func requireBagMatchesVisual(t *testing.T, el *Element, step string) {
	t.Helper()
	for _, k := range el.Properties.Keys() {
		got, ok := el.Value(k)
		if !ok {
			continue
		}
		want, _ := el.Properties.Get(k)
		require.Equal(t, got, want, "%s after %s: %s", el.Type, step, k)
	}
}

// Setting one key of a linked pair refreshes the other cached key.
func TestBagFollowsLinkedKeys(t *testing.T) {
	type step struct {
		key   string
		value any
	}
	cases := []struct {
		typ   Type
		steps []step
	}{
		{Image, []step{{"fill", "#ff0000"}, {"stroke", "#00ff00"}, {"placeholderFill", "#0000ff"}, {"width", 180.0}}},
		{Circle, []step{{"width", 40.0}, {"radius", 35.0}, {"height", 90.0}}},
		{List, []step{{"text", "a\nb"}, {"bulletStyle", NumberedBullet}, {"text", "x\ny\nz"}, {"bulletStyle", "•"}}},
		{Icon, []step{{"width", 60.0}, {"size", 30.0}, {"height", 48.0}}},
		{Line, []step{{"lineStyle", "dashed"}, {"dashArray", []float64{2, 5}}, {"lineStyle", "solid"}}},
		{Avatar, []step{{"placeholderFill", "#123456"}, {"radius", 70.0}, {"stroke", "#654321"}}},
	}
	fx := newFixture(t)
	for _, tc := range cases {
		el := fx.add(t, tc.typ, nil)
		for _, s := range tc.steps {
			require.NoError(t, fx.m.SetProperty(el, s.key, s.value), "%s.%s", tc.typ, s.key)
			requireBagMatchesVisual(t, el, s.key)
		}
	}
}

func TestLinkedKeyValues(t *testing.T) {
	fx := newFixture(t)

	img := fx.add(t, Image, nil)
	require.NoError(t, fx.m.SetProperty(img, "fill", "#ff0000"))
	require.NoError(t, fx.m.SetProperty(img, "stroke", "#00ff00"))
	rect := img.Parts.Part(RolePlaceholderRect)
	require.Equal(t, "#ff0000", rect.Fill())
	require.Equal(t, "#00ff00", rect.Stroke())
	_, painted := img.Node.Attr("fill")
	require.False(t, painted, "group must stay unpainted")
	_, stroked := img.Node.Attr("stroke")
	require.False(t, stroked)

	c := fx.add(t, Circle, nil)
	require.NoError(t, fx.m.SetProperty(c, "width", 40.0))
	require.NoError(t, fx.m.SetProperty(c, "radius", 35.0))
	require.Equal(t, 70.0, c.Properties.Map()["width"])
	require.Equal(t, 35.0, c.Properties.Map()["radius"])

	list := fx.add(t, List, nil)
	require.NoError(t, fx.m.SetProperty(list, "text", "a\nb"))
	require.NoError(t, fx.m.SetProperty(list, "bulletStyle", NumberedBullet))
	require.Equal(t, "1. a\n2. b", list.Node.Text())
	require.Equal(t, "1. a\n2. b", list.Properties.String("text"))

	icon := fx.add(t, Icon, nil)
	require.NoError(t, fx.m.SetProperty(icon, "width", 60.0))
	require.Equal(t, 60.0, icon.Properties.Map()["size"])
	require.Equal(t, 60.0, icon.Node.Height())

	line := fx.add(t, Line, nil)
	require.NoError(t, fx.m.SetProperty(line, "dashArray", []any{10.0, 5.0}))
	require.Equal(t, "dashed", line.Properties.String("lineStyle"))
	require.NoError(t, fx.m.SetProperty(line, "lineStyle", "solid"))
	require.Equal(t, []float64{}, line.Properties.Map()["dashArray"])
}

func TestCompositesRejectLookKeys(t *testing.T) {
	fx := newFixture(t)
	img := fx.add(t, Image, nil)
	require.ErrorIs(t, fx.m.SetProperty(img, "text", "x"), ErrInvalidValue)
	require.ErrorIs(t, fx.m.SetProperty(img, "fontSize", 20.0), ErrInvalidValue)
	require.NoError(t, fx.m.SetProperty(img, "x", 40.0))
	_, cached := img.Properties.Get("text")
	require.False(t, cached)

	icon := fx.add(t, Icon, nil)
	require.ErrorIs(t, fx.m.SetProperty(icon, "fill", "#000000"), ErrInvalidValue)
	require.NoError(t, fx.m.SetProperty(icon, "rotation", 15.0))
}

func TestImageFillSurvivesRehydrate(t *testing.T) {
	fx := newFixture(t)
	el := fx.add(t, Image, nil)
	require.NoError(t, fx.m.SetProperty(el, "fill", "#ff8800"))
	saved := el.Properties.Clone()

	n, err := fx.factory.Create(Image, nil)
	require.NoError(t, err)
	again, err := fx.m.Add(n, Image, saved)
	require.NoError(t, err)
	require.Equal(t, "#f8f9fa", again.Parts.Part(RolePlaceholderRect).Fill())

	fx.m.Rehydrate(again)
	require.Equal(t, "#ff8800", again.Parts.Part(RolePlaceholderRect).Fill())
	_, painted := again.Node.Attr("fill")
	require.False(t, painted)
	require.Equal(t, "#ff8800", again.Properties.String("fill"))
	requireBagMatchesVisual(t, again, "rehydrate")
}

func TestRehydrateAppliesSavedBag(t *testing.T) {
	fx := newFixture(t)
	n, err := fx.factory.Create(Avatar, nil)
	require.NoError(t, err)
	props := DefaultProperties(Avatar)
	props.Set("radius", 80.0)
	props.Set("placeholderText", "JD")
	el, err := fx.m.Add(n, Avatar, props)
	require.NoError(t, err)
	require.Equal(t, 50.0, el.Parts.Part(RoleAvatarCircle).Radius())

	fx.m.Rehydrate(el)
	require.Equal(t, 80.0, el.Parts.Part(RoleAvatarCircle).Radius())
	require.Equal(t, "JD", el.Parts.Part(RoleAvatarText).Text())
	require.Equal(t, 160.0, el.Node.Width())
}

func TestDeriveReadsNode(t *testing.T) {
	fx := newFixture(t)
	n := scene.NewRect(scene.Attrs{"id": "r1", "x": 5.0, "y": 6.0, "width": 30.0, "height": 40.0, "fill": "#fff"})
	typ, ok := TypeFromNode(n)
	require.True(t, ok)
	el, err := fx.m.Add(n, typ, DefaultProperties(typ))
	require.NoError(t, err)
	p := Derive(el)
	m := p.Map()
	require.Equal(t, 5.0, m["x"])
	require.Equal(t, 30.0, m["width"])
	require.Equal(t, "#fff", m["fill"])
}

func TestTypeFromNodeUntaggedGroup(t *testing.T) {
	_, ok := TypeFromNode(scene.NewGroup(nil))
	require.False(t, ok)
	typ, ok := TypeFromNode(scene.NewText(scene.Attrs{"name": "cv-element paragraph-element"}))
	require.True(t, ok)
	require.Equal(t, Paragraph, typ)
}
