package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Agent presence
	s.echo.POST("/api/agents/login", s.handleLogin)
	s.echo.POST("/api/agents/:id/logout", s.handleLogout)
	s.echo.PUT("/api/agents/:id/status", s.handleSetStatus)
	s.echo.POST("/api/agents/:id/heartbeat", s.handleHeartbeat)
	s.echo.GET("/api/agents/load", s.handleLoadDistribution)
	s.echo.GET("/api/agents/regions", s.handleRegionStats)
	s.echo.GET("/api/agents/:id", s.handleGetAgent)
	s.echo.GET("/api/agents", s.handleListOnline)
	s.echo.POST("/api/agents/reap", s.handleReap)

	// Conversation routing
	s.echo.POST("/api/conversations/assign", s.handleAssign)
	s.echo.POST("/api/conversations/:id/release", s.handleRelease)
	s.echo.GET("/api/conversations/:id", s.handleGetAssignment)

	// Sentiment
	s.echo.POST("/api/sentiment", s.handleRecordSentiment)
	s.echo.GET("/api/sentiment", s.handleAllSentiment)
	s.echo.GET("/api/sentiment/stats", s.handleSentimentStats)
	s.echo.GET("/api/sentiment/:region", s.handleRegionSentiment)
	s.echo.GET("/api/sentiment/:region/history", s.handleRegionHistory)
	s.echo.DELETE("/api/sentiment/:region", s.handleResetRegion)
	s.echo.DELETE("/api/sentiment", s.handleResetAll)

	// WebSocket streams
	s.echo.GET("/ws/agents", s.handleAgentsStream)
	s.echo.GET("/ws/sentiment", s.handleSentimentStream)
}
