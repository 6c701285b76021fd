package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jaimehuang168/VoxParaguay2026/internal/broadcast"
	apperrors "github.com/jaimehuang168/VoxParaguay2026/internal/errors"
)

type sentimentRequest struct {
	RegionID string         `json:"region_id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) handleRecordSentiment(c echo.Context) error {
	var req sentimentRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	snapshot, err := s.aggregator.Record(c.Request().Context(), req.RegionID, req.Score, req.Metadata)
	if err != nil {
		return err
	}

	return jsonResponse(c, http.StatusCreated, snapshot)
}

func (s *Server) handleAllSentiment(c echo.Context) error {
	averages, err := s.aggregator.GetAll(c.Request().Context())
	if err != nil {
		return err
	}

	return jsonResponse(c, http.StatusOK, map[string]any{"averages": averages})
}

func (s *Server) handleRegionSentiment(c echo.Context) error {
	snapshot, err := s.aggregator.GetRegion(c.Request().Context(), c.Param("region"))
	if err != nil {
		return err
	}

	return jsonResponse(c, http.StatusOK, snapshot)
}

func (s *Server) handleRegionHistory(c echo.Context) error {
	var limit int64
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			return apperrors.ValidationError("limit must be a non-negative integer").WithField("limit", raw)
		}
		limit = parsed
	}

	samples, err := s.aggregator.GetHistory(c.Request().Context(), c.Param("region"), limit)
	if err != nil {
		return err
	}

	return jsonResponse(c, http.StatusOK, map[string]any{
		"region_id": c.Param("region"),
		"samples":   samples,
		"count":     len(samples),
	})
}

func (s *Server) handleSentimentStats(c echo.Context) error {
	stats, err := s.aggregator.Stats(c.Request().Context())
	if err != nil {
		return err
	}

	return jsonResponse(c, http.StatusOK, map[string]any{
		"total_responses":   stats.TotalResponses,
		"regions_total":     stats.RegionsTotal,
		"regions_with_data": stats.RegionsWithData,
		"connected_clients": s.hub.ClientCount(broadcast.StreamSentiment),
	})
}

func (s *Server) handleResetRegion(c echo.Context) error {
	if err := s.aggregator.ResetRegion(c.Request().Context(), c.Param("region")); err != nil {
		return err
	}

	return jsonResponse(c, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResetAll(c echo.Context) error {
	if err := s.aggregator.ResetAll(c.Request().Context()); err != nil {
		return err
	}

	return jsonResponse(c, http.StatusOK, map[string]string{"status": "ok"})
}
