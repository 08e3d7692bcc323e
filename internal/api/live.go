/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"cvcanvas/internal/crash"
	"cvcanvas/internal/editor"
	"cvcanvas/internal/element"
	applog "cvcanvas/internal/log"
	"cvcanvas/internal/panel"
	"cvcanvas/internal/scene"
)

const (
	sendBuffer   = 256
	writeTimeout = 10 * time.Second
	maxMessage   = 1 << 20
	// tickEvery paces expiry of transient feedback while the client is idle.
	tickEvery = 200 * time.Millisecond
)

// Point is a stage coordinate on the wire.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) pt() scene.Pt { return scene.Pt{X: p.X, Y: p.Y} }

// Command is one client request on the live channel.
type Command struct {
	Op     string          `json:"op"`
	Type   string          `json:"type,omitempty"`
	ID     string          `json:"id,omitempty"`
	Name   string          `json:"name,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
	At     *Point          `json:"at,omitempty"`
	Path   []Point         `json:"path,omitempty"`
	Width  float64         `json:"width,omitempty"`
	Height float64         `json:"height,omitempty"`
	Key    string          `json:"key,omitempty"`
	Shift  bool            `json:"shift,omitempty"`
}

// Message is one server push on the live channel.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// liveClient is one websocket peer. It receives the session's
// notifications and queues them for the writer goroutine.
type liveClient struct {
	cvID string
	send chan Message
	log  *slog.Logger
	ctx  context.Context
}

func (lc *liveClient) emit(event string, data any) {
	select {
	case lc.send <- Message{Event: event, Data: data}:
	default:
		lc.log.WarnContext(lc.ctx, "live client too slow, dropping event", slog.String("event", event))
	}
}

func (lc *liveClient) ElementCountChanged(n int) { lc.emit("count", gin.H{"count": n}) }

func (lc *liveClient) PropertiesPanelRefresh(el *element.Element) {
	if el == nil {
		lc.emit("panel", panel.Empty())
		return
	}
	lc.emit("panel", panel.Build(el))
}

func (lc *liveClient) ElementInfo(text string) { lc.emit("info", gin.H{"text": text}) }

func (lc *liveClient) ZoomChanged(scale float64, label string) {
	lc.emit("zoom", gin.H{"scale": scale, "label": label})
}

func (lc *liveClient) ShowPosition(label string, screen scene.Pt) {
	lc.emit("position", gin.H{"label": label, "x": screen.X, "y": screen.Y})
}

func (lc *liveClient) HidePosition()           { lc.emit("position-hidden", nil) }
func (lc *liveClient) SetCursor(cursor string) { lc.emit("cursor", gin.H{"cursor": cursor}) }
func (lc *liveClient) MirrorPosition(x, y float64) {
	lc.emit("mirror", gin.H{"x": x, "y": y})
}

func (lc *liveClient) ContextMenu(el *element.Element, clientX, clientY float64) {
	lc.emit("contextmenu", gin.H{"id": el.ID, "x": clientX, "y": clientY})
}

// live upgrades to a websocket and runs one editor session over the CV.
// Only the command loop touches the session; readLoop feeds it decoded
// commands and a ticker lets pending feedback expire between them.
func (s *Server) live(c *gin.Context) {
	id := c.Param("id")
	cv, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", slog.Any("err", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(applog.WithSession(applog.WithCV(context.Background(), id), ulid.Make().String()))
	defer cancel()
	lc := &liveClient{cvID: id, send: make(chan Message, sendBuffer), log: s.log, ctx: ctx}

	sess, rep, err := s.newSession(cv.Content, editor.WithFeedback(lc), editor.WithNotifier(lc))
	if err != nil {
		_ = conn.WriteJSON(Message{Event: "error", Data: gin.H{"error": err.Error()}})
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writeLoop(ctx, conn, lc.send)
	}()

	lc.emit("ready", gin.H{
		"cv": id, "title": cv.Title, "format": rep.Format.String(),
		"loaded": rep.Loaded, "skipped": rep.Skipped, "count": sess.ElementCount(),
		"zoom": editor.ZoomLabel(sess.Zoom()), "templates": editor.TemplateNames(),
	})
	s.log.InfoContext(ctx, "live session opened", slog.Int("elements", sess.ElementCount()))

	rescue := &crash.Rescue{Dir: s.rescueDir, Name: id, Snapshot: sess.Export}
	cmds := make(chan Command)
	go s.readLoop(ctx, conn, cmds)
	tick := time.NewTicker(tickEvery)
	defer tick.Stop()
loop:
	for {
		select {
		case cmd, ok := <-cmds:
			if !ok {
				break loop
			}
			var cerr error
			if perr := crash.Contain(rescue, func() { cerr = s.apply(ctx, id, sess, lc, cmd) }); perr != nil {
				cerr = perr
			}
			if cerr != nil {
				lc.emit("error", gin.H{"op": cmd.Op, "error": cerr.Error()})
			}
			sess.Tick()
		case <-tick.C:
			sess.Tick()
		}
	}
	cancel()
	<-done
	s.log.InfoContext(ctx, "live session closed")
}

// readLoop decodes client commands until the connection fails, then closes
// cmds.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, cmds chan<- Command) {
	defer close(cmds)
	conn.SetReadLimit(maxMessage)
	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.WarnContext(ctx, "live read failed", slog.Any("err", err))
			}
			return
		}
		select {
		case cmds <- cmd:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, send <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		case m := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(m); err != nil {
				s.log.WarnContext(ctx, "live write failed", slog.Any("err", err))
				return
			}
		}
	}
}

var errUnknownOp = errors.New("api: unknown live command")

func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, element.ErrMissingArgument
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}

// apply executes one command against the session.
func (s *Server) apply(ctx context.Context, cvID string, sess *editor.Session, lc *liveClient, cmd Command) error {
	switch cmd.Op {
	case "create":
		var at *scene.Pt
		if cmd.At != nil {
			p := cmd.At.pt()
			at = &p
		}
		el, err := sess.CreateAt(element.Type(cmd.Type), at)
		if err != nil {
			return err
		}
		lc.emit("created", gin.H{"id": el.ID, "type": el.Type})
	case "select":
		if !sess.Select(cmd.ID) {
			return fmt.Errorf("%w: %s", element.ErrNotRegistered, cmd.ID)
		}
	case "deselect":
		sess.Deselect()
	case "update":
		v, err := decodeValue(cmd.Value)
		if err != nil {
			return err
		}
		return sess.UpdateProperty(cmd.Name, v)
	case "toggle":
		return sess.ToggleFontStyle(cmd.Name)
	case "delete":
		if !sess.DeleteSelected() {
			return editor.ErrNoSelection
		}
	case "copy":
		if !sess.Copy() {
			return editor.ErrNoSelection
		}
	case "paste":
		el, err := sess.Paste()
		if err != nil {
			return err
		}
		lc.emit("created", gin.H{"id": el.ID, "type": el.Type})
	case "zoom-in":
		return sess.ZoomIn()
	case "zoom-out":
		return sess.ZoomOut()
	case "zoom-reset":
		sess.ResetZoom()
	case "zoom-fit":
		sess.FitToScreen(cmd.Width, cmd.Height)
	case "grid":
		var on bool
		if err := json.Unmarshal(cmd.Value, &on); err != nil {
			return fmt.Errorf("decode value: %w", err)
		}
		sess.EnableGridSnapping(on)
	case "template":
		return sess.LoadSampleTemplate(cmd.Name)
	case "click", "dblclick", "contextmenu":
		if cmd.At == nil {
			return element.ErrMissingArgument
		}
		st := sess.Stage()
		switch cmd.Op {
		case "click":
			st.Click(cmd.At.pt())
		case "dblclick":
			st.DblClick(cmd.At.pt())
			if ed := sess.Bridge().Editing(); ed != nil {
				lc.emit("edit", gin.H{"id": ed.Element().ID, "value": ed.Value, "rect": ed.Rect})
			}
		default:
			st.ContextMenu(cmd.At.pt(), cmd.At.X, cmd.At.Y)
		}
	case "drag":
		if len(cmd.Path) < 2 {
			return element.ErrMissingArgument
		}
		path := make([]scene.Pt, 0, len(cmd.Path)-1)
		for _, p := range cmd.Path[1:] {
			path = append(path, p.pt())
		}
		sess.Stage().Drag(cmd.Path[0].pt(), path...)
	case "key":
		if ed := sess.Bridge().Editing(); ed != nil {
			ed.KeyDown(cmd.Key, cmd.Shift)
			return nil
		}
		sess.Stage().KeyDown(cmd.Key, cmd.Shift)
	case "edit-text":
		ed := sess.Bridge().Editing()
		if ed == nil {
			return errors.New("api: no text edit open")
		}
		var text string
		if err := json.Unmarshal(cmd.Value, &text); err != nil {
			return fmt.Errorf("decode value: %w", err)
		}
		ed.SetValue(text)
		ed.Commit()
	case "load":
		if _, err := sess.Load(cmd.Value); err != nil {
			return errors.Join(errBadPayload, err)
		}
	case "document":
		lc.emit("document", sess.Export())
	case "save":
		doc := sess.Export()
		if err := s.store.SaveCanvas(ctx, cvID, doc); err != nil {
			return err
		}
		lc.emit("saved", gin.H{"elements": len(doc.Elements)})
	default:
		return fmt.Errorf("%w: %q", errUnknownOp, cmd.Op)
	}
	return nil
}
