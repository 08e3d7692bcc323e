/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"cvcanvas/internal/scene"
)

// ErrZoomSettling is returned by ZoomIn/ZoomOut while the previous step
// is still settling.
var ErrZoomSettling = errors.New("editor: zoom settling")

// ZoomState is the zoom controller state. A step moves Idle -> Settling;
// the settle window elapsing moves it back.
type ZoomState int

const (
	ZoomIdle ZoomState = iota
	ZoomSettling
)

func (s ZoomState) String() string {
	if s == ZoomSettling {
		return "settling"
	}
	return "idle"
}

// FitPadding is the share of the container the page occupies after a fit.
const FitPadding = 0.9

// ZoomState reports the controller state at the session clock.
func (s *Session) ZoomState() ZoomState {
	if s.now().Before(s.settleUntil) {
		return ZoomSettling
	}
	return ZoomIdle
}

// Zoom is the current stage scale.
func (s *Session) Zoom() float64 { return s.stage.Zoom() }

// ZoomLabel formats a scale as a rounded percentage, e.g. "110%".
func ZoomLabel(scale float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(scale*100)))
}

func (s *Session) ZoomIn() error  { return s.step(+1) }
func (s *Session) ZoomOut() error { return s.step(-1) }

func (s *Session) step(dir float64) error {
	if s.ZoomState() == ZoomSettling {
		return ErrZoomSettling
	}
	s.settleUntil = s.now().Add(s.cfg.ZoomSettle())
	s.SetZoom(s.Zoom() + dir*s.cfg.ZoomStep)
	return nil
}

// SetZoom clamps scale to the configured range and applies it.
func (s *Session) SetZoom(scale float64) {
	scale = math.Max(s.cfg.MinZoom, math.Min(s.cfg.MaxZoom, scene.Round(scale, 4)))
	s.applyZoom(scale)
}

// ResetZoom restores scale 1 and removes any pan.
func (s *Session) ResetZoom() {
	s.stage.SetPosition(scene.Pt{})
	s.applyZoom(1)
}

// FitToScreen scales the page to fit a container of the given size with
// padding and removes any pan.
func (s *Session) FitToScreen(containerW, containerH float64) {
	if containerW <= 0 || containerH <= 0 {
		return
	}
	scale := math.Min(containerW*FitPadding/s.cfg.Width, containerH*FitPadding/s.cfg.Height)
	s.stage.SetPosition(scene.Pt{})
	s.applyZoom(math.Max(s.cfg.MinZoom, math.Min(s.cfg.MaxZoom, scale)))
}

func (s *Session) applyZoom(scale float64) {
	s.stage.SetScale(scale, scale)
	s.stage.Draw()
	s.stage.Fire("scaleChange", &scene.Event{Attrs: scene.Attrs{"scale": scale}})
	s.notify.ZoomChanged(scale, ZoomLabel(scale))
	s.log.Debug("zoom", slog.Float64("scale", scale))
}

// EnableGridSnapping toggles snapping of dragged positions to the grid.
func (s *Session) EnableGridSnapping(on bool) { s.snap = on }

func (s *Session) GridSnapping() bool { return s.snap }

// SnapToGrid rounds v to the nearest grid line when snapping is enabled.
func (s *Session) SnapToGrid(v float64) float64 {
	if !s.snap || s.cfg.GridSize <= 0 {
		return v
	}
	return math.Round(v/s.cfg.GridSize) * s.cfg.GridSize
}
