package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/foldkit/internal/controller"
	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/logging"
	"github.com/fyrsmithlabs/foldkit/internal/services"
)

func describe(s *services.Session) DocumentResponse {
	return DocumentResponse{
		ID:         s.ID,
		URI:        s.Doc.URI(),
		LanguageID: s.Doc.LanguageID(),
		Version:    s.Doc.VersionID(),
		Lines:      s.Doc.LineCount(),
		State:      string(s.Ctrl.State()),
		Provider:   s.Ctrl.ProviderID(),
	}
}

// session resolves the :id parameter and adds its document to the request
// context.
func (s *Server) session(c echo.Context) (*services.Session, error) {
	sess, err := s.workspace.Get(c.Param("id"))
	if err != nil {
		return nil, httpError(err)
	}
	withDocument(c, sess)
	return sess, nil
}

func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok"}
	if tel := s.config.Telemetry; tel != nil {
		health := tel.Health()
		resp.Telemetry = &health
		if tel.IsEnabled() && health.Degraded {
			resp.Status = "degraded"
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleStatus(c echo.Context) error {
	resp := StatusResponse{
		Status:   "ok",
		Version:  s.config.Version,
		Commands: controller.Commands(),
	}
	for _, sess := range s.workspace.List() {
		resp.Counts.Documents++
		if sess.Ctrl.State().HasModel() {
			resp.Counts.Active++
		}
		for _, r := range sess.Ctrl.Regions() {
			resp.Counts.Regions++
			if r.Collapsed {
				resp.Counts.Collapsed++
			}
		}
		if sess.Ctrl.LimitReporter().Limited() > 0 {
			resp.Counts.Limited++
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleList(c echo.Context) error {
	sessions := s.workspace.List()
	out := make([]DocumentResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, describe(sess))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleOpen(c echo.Context) error {
	ctx := c.Request().Context()
	var req OpenRequest
	if err := c.Bind(&req); err != nil {
		logging.FromContext(ctx).Warn(ctx, "invalid open request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.URI == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "uri field is required")
	}

	sess, err := s.workspace.Open(ctx, req.URI, req.LanguageID, req.Text)
	if err != nil {
		return httpError(err)
	}
	ctx = withDocument(c, sess)
	logging.FromContext(ctx).Info(ctx, "document opened",
		zap.String("id", sess.ID),
		zap.String("provider", sess.Ctrl.ProviderID()))
	c.Response().Header().Set(echo.HeaderLocation, "/api/v1/documents/"+sess.ID)
	return c.JSON(http.StatusCreated, describe(sess))
}

func (s *Server) handleGet(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, describe(sess))
}

func (s *Server) handleUpdate(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sess, err := s.workspace.Update(c.Request().Context(), c.Param("id"), req.Text)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, describe(sess))
}

func (s *Server) handleClose(c echo.Context) error {
	id := c.Param("id")
	if err := s.workspace.Close(id); err != nil {
		return httpError(err)
	}
	s.dropLimiter(id)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleRegions(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	limit := sess.Ctrl.LimitReporter()
	resp := RegionsResponse{
		DocumentResponse: describe(sess),
		Regions:          sess.Ctrl.Regions(),
		Markers:          sess.Ctrl.GutterMarkers(),
		Limit: LimitInfo{
			Max:      limit.Limit(),
			Computed: limit.Computed(),
			Limited:  limit.Limited(),
		},
	}
	if resp.Regions == nil {
		resp.Regions = []folding.FoldRange{}
	}
	if resp.Markers == nil {
		resp.Markers = []folding.LineMarker{}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHidden(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, HiddenResponse{
		ID:      sess.ID,
		Version: sess.Doc.VersionID(),
		Hidden:  hidden(sess),
	})
}

func hidden(sess *services.Session) []folding.LineRange {
	h := sess.Ctrl.HiddenRanges()
	if h == nil {
		return []folding.LineRange{}
	}
	return h
}

func (s *Server) handleCommand(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	if !s.limiter(sess.ID).Allow() {
		return httpError(ErrRateLimited)
	}
	var req CommandRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Command == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "command field is required")
	}

	ctx := c.Request().Context()
	res, err := sess.Ctrl.Execute(ctx, req.Command, req.Args)
	if err != nil {
		return httpError(err)
	}
	if res.Toggled > 0 || res.Ranges > 0 {
		if err := s.workspace.Save(sess.ID); err != nil {
			logging.FromContext(ctx).Warn(ctx, "saving view state failed", zap.String("id", sess.ID), zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, CommandResponse{Result: res, Hidden: hidden(sess)})
}

func (s *Server) handleGetState(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	m := sess.Ctrl.SaveViewState()
	if m == nil {
		return httpError(controller.ErrNotActive)
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) handlePutState(c echo.Context) error {
	var m folding.Memento
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sess, err := s.workspace.Restore(c.Param("id"), &m)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, HiddenResponse{
		ID:      sess.ID,
		Version: sess.Doc.VersionID(),
		Hidden:  hidden(sess),
	})
}
