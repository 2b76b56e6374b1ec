// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dbvis-ukon/LLMSurver/internal/corpus"
	"github.com/dbvis-ukon/LLMSurver/internal/export"
	"github.com/dbvis-ukon/LLMSurver/internal/orchestrate"
	"github.com/dbvis-ukon/LLMSurver/internal/review"
	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

func (s *Server) register(g *echo.Group) {
	g.GET("/papers", s.listPapers)
	g.POST("/papers", s.importPapers)

	g.GET("/models", s.listModels)
	g.POST("/models", s.saveModel)
	g.GET("/models/:id/parameters", s.modelParameters)

	g.GET("/prompt", s.defaultPrompt)

	g.GET("/runs", s.listRuns)
	g.POST("/runs", s.startRun)
	g.POST("/runs/cancel", s.cancelRun)
	g.GET("/runs/progress", s.progress)
	g.GET("/runs/:id", s.loadRun)
	g.DELETE("/runs/:id", s.deleteRun)

	g.POST("/consensus", s.setConsensus)
	g.GET("/view", s.view)
	g.POST("/classify", s.classify)
	g.GET("/export", s.export)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid id %q", c.Param("id")))
	}
	return id, nil
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	return nil
}

func (s *Server) listPapers(c echo.Context) error {
	papers, err := s.catalog.ListPapers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, papers)
}

// importPapers accepts a JSON or YAML paper list. The format follows the
// Content-Type and is sniffed when it names neither.
func (s *Server) importPapers(c echo.Context) error {
	format := ""
	ct := c.Request().Header.Get(echo.HeaderContentType)
	switch {
	case strings.Contains(ct, "json"):
		format = corpus.FormatJSON
	case strings.Contains(ct, "yaml"):
		format = corpus.FormatYAML
	}

	papers, err := corpus.Decode(c.Request().Body, format)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(papers) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no papers in request")
	}
	ids, err := s.catalog.InsertPapers(c.Request().Context(), papers)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"inserted": len(ids), "paper_ids": ids})
}

func (s *Server) listModels(c echo.Context) error {
	models, err := s.catalog.ListModels(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models)
}

type modelRequest struct {
	types.Model
	// Edit updates the registered model of the same name.
	Edit bool `json:"edit"`
}

func (s *Server) saveModel(c echo.Context) error {
	var req modelRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	switch {
	case strings.TrimSpace(req.Name) == "":
		return &orchestrate.ValidationError{Field: "name", Message: "model name is required"}
	case strings.TrimSpace(req.Host) == "":
		return &orchestrate.ValidationError{Field: "host", Message: "host is required"}
	}
	m, err := s.catalog.SaveModel(c.Request().Context(), req.Model, req.Edit)
	if err != nil {
		return err
	}
	status := http.StatusCreated
	if req.Edit {
		status = http.StatusOK
	}
	return c.JSON(status, m)
}

func (s *Server) modelParameters(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	params, err := s.catalog.Parameters(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, params)
}

func (s *Server) defaultPrompt(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"prompt": review.DefaultPrompt})
}

func (s *Server) listRuns(c echo.Context) error {
	runs, err := s.catalog.ListRuns(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, runs)
}

func (s *Server) startRun(c echo.Context) error {
	var req review.StartRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := s.session.StartRun(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]int64{"run_id": id})
}

func (s *Server) cancelRun(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"cancelled": s.session.CancelRun()})
}

func (s *Server) progress(c echo.Context) error {
	return c.JSON(http.StatusOK, s.session.Progress())
}

func (s *Server) loadRun(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	v, err := s.session.LoadRun(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (s *Server) deleteRun(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ok, err := s.session.DeleteRun(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"deleted": ok})
}

type consensusRequest struct {
	Models []string `json:"models"`
}

func (s *Server) setConsensus(c echo.Context) error {
	var req consensusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	v, err := s.session.SetConsensus(c.Request().Context(), req.Models)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (s *Server) view(c echo.Context) error {
	v, err := s.session.View(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

type classifyRequest struct {
	Agent   string `json:"agent"`
	Prompt  string `json:"prompt"`
	PaperID int64  `json:"paper_id"`
	RunID   int64  `json:"run_id"`
}

func (s *Server) classify(c echo.Context) error {
	var req classifyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	switch {
	case strings.TrimSpace(req.Agent) == "":
		return &orchestrate.ValidationError{Field: "agent", Message: "select a model"}
	case strings.TrimSpace(req.Prompt) == "":
		return &orchestrate.ValidationError{Field: "prompt", Message: "prompt is required"}
	}
	resp, err := s.session.ClassifyOne(c.Request().Context(), req.Agent, req.Prompt, req.PaperID, req.RunID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// export streams the corpus, or a run when run_id is set, as a download.
func (s *Server) export(c echo.Context) error {
	var runID int64
	if raw := c.QueryParam("run_id"); raw != "" && raw != "-1" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid run_id %q", raw))
		}
		runID = id
	}
	format, err := export.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	doc, err := s.session.Export(c.Request().Context(), runID)
	if err != nil {
		return err
	}
	alias := ""
	if doc.Run != nil {
		alias = doc.Run.Alias
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, format.ContentType())
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename(alias, format)))
	res.WriteHeader(http.StatusOK)
	return export.Write(res, format, doc)
}
