package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jaimehuang168/VoxParaguay2026/internal/platform/version"
)

func (s *Server) handleHealth(c echo.Context) error {
	info := version.Get()
	return jsonResponse(c, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": info.Version,
		"commit":  info.Commit,
	})
}
