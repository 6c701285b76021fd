package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jaimehuang168/VoxParaguay2026/internal/domain"
	apperrors "github.com/jaimehuang168/VoxParaguay2026/internal/errors"
)

type loginRequest struct {
	AgentID string   `json:"agent_id"`
	Name    string   `json:"name"`
	Region  string   `json:"region"`
	Skills  []string `json:"skills"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	agent, err := s.registry.Login(c.Request().Context(), req.AgentID, req.Name, req.Region, req.Skills)
	if err != nil {
		return err
	}

	return jsonResponse(c, http.StatusCreated, agent)
}

func (s *Server) handleLogout(c echo.Context) error {
	agentID := c.Param("id")

	ok, err := s.registry.Logout(c.Request().Context(), agentID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFoundError("agent not found").WithField("agent_id", agentID)
	}

	return jsonResponse(c, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleSetStatus(c echo.Context) error {
	agentID := c.Param("id")

	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	ok, err := s.registry.SetStatus(c.Request().Context(), agentID, domain.AgentStatus(req.Status))
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFoundError("agent not found").WithField("agent_id", agentID)
	}

	return jsonResponse(c, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHeartbeat(c echo.Context) error {
	agentID := c.Param("id")

	ok, err := s.registry.Heartbeat(c.Request().Context(), agentID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFoundError("agent not found").WithField("agent_id", agentID)
	}

	return jsonResponse(c, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetAgent(c echo.Context) error {
	agentID := c.Param("id")

	agent, err := s.registry.GetStatus(c.Request().Context(), agentID)
	if err != nil {
		if errors.Is(err, domain.ErrAgentNotFound) {
			return apperrors.NotFoundError("agent not found").WithField("agent_id", agentID)
		}
		return err
	}

	return jsonResponse(c, http.StatusOK, agent)
}

func (s *Server) handleListOnline(c echo.Context) error {
	agents, err := s.registry.ListOnline(c.Request().Context())
	if err != nil {
		return err
	}

	return jsonResponse(c, http.StatusOK, map[string]any{
		"agents": agents,
		"count":  len(agents),
	})
}

func (s *Server) handleLoadDistribution(c echo.Context) error {
	loads, err := s.registry.LoadDistribution(c.Request().Context())
	if err != nil {
		return err
	}

	return jsonResponse(c, http.StatusOK, loads)
}

func (s *Server) handleRegionStats(c echo.Context) error {
	stats, err := s.registry.RegionStatsAll(c.Request().Context())
	if err != nil {
		return err
	}

	return jsonResponse(c, http.StatusOK, stats)
}

func (s *Server) handleReap(c echo.Context) error {
	reaped, err := s.registry.ReapStale(c.Request().Context(), s.config.AgentStaleTimeout)
	if err != nil {
		return err
	}

	return jsonResponse(c, http.StatusOK, map[string]int{"reaped": reaped})
}

func jsonResponse(c echo.Context, status int, body any) error {
	if err := c.JSON(status, body); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
