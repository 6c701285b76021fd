package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jaimehuang168/VoxParaguay2026/internal/domain"
	apperrors "github.com/jaimehuang168/VoxParaguay2026/internal/errors"
)

type assignRequest struct {
	ConversationID string   `json:"conversation_id"`
	Channel        string   `json:"channel"`
	Region         string   `json:"region"`
	RequiredSkills []string `json:"required_skills"`
}

func (s *Server) handleAssign(c echo.Context) error {
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	agent, err := s.engine.Assign(c.Request().Context(), req.ConversationID, req.Channel, req.Region, req.RequiredSkills)
	if err != nil {
		if errors.Is(err, domain.ErrNoAgentAvailable) {
			return apperrors.UnavailableError("no agent available").
				WithField("conversation_id", req.ConversationID).
				WithField("region", req.Region)
		}
		return err
	}

	return jsonResponse(c, http.StatusOK, map[string]any{
		"conversation_id": req.ConversationID,
		"agent":           agent,
	})
}

type releaseRequest struct {
	AgentID string `json:"agent_id"`
}

func (s *Server) handleRelease(c echo.Context) error {
	conversationID := c.Param("id")

	var req releaseRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	ctx := c.Request().Context()

	// The assigned agent is recorded on the conversation; the caller only
	// needs to name it when releasing on the agent's behalf.
	agentID := req.AgentID
	if agentID == "" {
		assignment, err := s.engine.GetAssignment(ctx, conversationID)
		if err != nil {
			if errors.Is(err, domain.ErrConversationNotFound) {
				return apperrors.NotFoundError("conversation not found").WithField("conversation_id", conversationID)
			}
			return err
		}
		agentID = assignment.AgentID
	}

	ok, err := s.engine.Release(ctx, conversationID, agentID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFoundError("conversation not found").WithField("conversation_id", conversationID)
	}

	return jsonResponse(c, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetAssignment(c echo.Context) error {
	conversationID := c.Param("id")

	assignment, err := s.engine.GetAssignment(c.Request().Context(), conversationID)
	if err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			return apperrors.NotFoundError("conversation not found").WithField("conversation_id", conversationID)
		}
		return err
	}

	return jsonResponse(c, http.StatusOK, assignment)
}
