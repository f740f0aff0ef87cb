package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/foldkit/internal/logging"
	"github.com/fyrsmithlabs/foldkit/internal/services"
)

// requestContext stores the request ID and a route-scoped logger on the
// request context. It must run after middleware.RequestID.
func (s *Server) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctx := logging.WithRequestID(req.Context(), c.Response().Header().Get(echo.HeaderXRequestID))
		ctx = logging.WithLogger(ctx, s.logger.With(zap.String("route", c.Path())))
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

// requestLogger logs every request with the correlation fields of its
// context. Health and metrics scrapes log at trace level.
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			c.Error(err)
		}
		ctx := c.Request().Context()
		logger := logging.FromContext(ctx)
		fields := []zap.Field{
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		}
		switch {
		case c.Response().Status >= http.StatusInternalServerError:
			logger.Error(ctx, "http request", fields...)
		case c.Path() == "/health" || c.Path() == "/metrics":
			logger.Trace(ctx, "http request", fields...)
		default:
			logger.Debug(ctx, "http request", fields...)
		}
		return nil
	}
}

// withDocument adds the session's document to the request context and
// returns the new context.
func withDocument(c echo.Context, sess *services.Session) context.Context {
	ctx := logging.WithDocument(c.Request().Context(), sess.Doc.URI(), sess.Doc.VersionID())
	c.SetRequest(c.Request().WithContext(ctx))
	return ctx
}
