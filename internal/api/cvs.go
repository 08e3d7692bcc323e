/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cvcanvas/internal/export"
	applog "cvcanvas/internal/log"
	"cvcanvas/internal/storage"
)

// CreateCVRequest is the body of POST /api/cvs.
type CreateCVRequest struct {
	Title      string          `json:"title"`
	TemplateID string          `json:"template_id"`
	Content    json.RawMessage `json:"content"`
}

// RenameCVRequest is the body of PATCH /api/cvs/:id.
type RenameCVRequest struct {
	Title string `json:"title" binding:"required"`
}

// cvView is a CV as returned to clients; list responses leave Content out.
type cvView struct {
	storage.CV
	TemplateName string `json:"template_name"`
}

func view(c storage.CV, withContent bool) cvView {
	if !withContent {
		c.Content = nil
	}
	return cvView{CV: c, TemplateName: c.TemplateName()}
}

func (s *Server) listCVs(c *gin.Context) {
	list, err := s.store.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]cvView, 0, len(list))
	for _, cv := range list {
		out = append(out, view(cv, false))
	}
	c.JSON(http.StatusOK, gin.H{"cvs": out, "count": len(out)})
}

func (s *Server) createCV(c *gin.Context) {
	var req CreateCVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	cv := storage.CV{Title: req.Title, TemplateID: req.TemplateID}
	if len(req.Content) > 0 && !bytes.Equal(req.Content, []byte("null")) {
		sess, _, err := s.newSession(req.Content)
		if err != nil {
			s.fail(c, err)
			return
		}
		b, err := sess.ExportJSON()
		if err != nil {
			s.fail(c, err)
			return
		}
		cv.Content, cv.IsCanvasEditor = b, true
	}
	created, err := s.store.Create(c.Request.Context(), cv)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view(created, true))
}

// getCV counts a view, as opening a CV always did.
func (s *Server) getCV(c *gin.Context) {
	ctx := applog.WithCV(c.Request.Context(), c.Param("id"))
	if err := s.store.IncrementViews(ctx, c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	cv, err := s.store.Get(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view(cv, true))
}

func (s *Server) renameCV(c *gin.Context) {
	var req RenameCVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if err := s.store.Rename(c.Request.Context(), c.Param("id"), req.Title); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteCV(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// getCanvas returns the stored canvas normalized to the elements format.
func (s *Server) getCanvas(c *gin.Context) {
	cv, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	sess, _, err := s.newSession(cv.Content)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Export())
}

// saveCanvas accepts any of the load shapes, rebuilds the scene and stores
// the result as an elements payload.
func (s *Server) saveCanvas(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty canvas payload"})
		return
	}
	sess, rep, err := s.newSession(body)
	if err != nil {
		s.fail(c, err)
		return
	}
	ctx := applog.WithCV(c.Request.Context(), c.Param("id"))
	if err := s.store.SaveCanvas(ctx, c.Param("id"), sess.Export()); err != nil {
		s.fail(c, err)
		return
	}
	s.log.InfoContext(ctx, "canvas saved", slog.Int("loaded", rep.Loaded), slog.Int("skipped", rep.Skipped))
	c.JSON(http.StatusOK, gin.H{"format": rep.Format.String(), "loaded": rep.Loaded, "skipped": rep.Skipped})
}

var contentTypes = map[export.Format]string{
	export.FormatPDF: "application/pdf",
	export.FormatPNG: "image/png",
	export.FormatSVG: "image/svg+xml",
}

// exportCV renders the stored canvas and counts a download.
func (s *Server) exportCV(c *gin.Context) {
	f, err := export.ParseFormat(c.Param("format"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ctx := applog.WithCV(c.Request.Context(), c.Param("id"))
	cv, err := s.store.Get(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	sess, _, err := s.newSession(cv.Content)
	if err != nil {
		s.fail(c, err)
		return
	}
	opt := export.Options{Background: c.Query("background")}
	if r, err := strconv.ParseFloat(c.DefaultQuery("ratio", "1"), 64); err == nil {
		opt.PixelRatio = r
	}
	var buf bytes.Buffer
	if err := export.Render(&buf, f, sess.Page(cv.Title), opt); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.IncrementDownloads(ctx, cv.ID); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="cv-`+cv.ID+`.`+string(f)+`"`)
	c.Data(http.StatusOK, contentTypes[f], buf.Bytes())
}
