package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/concordhq/concord/internal/store"
)

// Server is the survey API server.
type Server struct {
	store  *store.Store
	router *gin.Engine
	limit  int
}

// NewServer creates a server over the given store. limit caps the batch
// size handed out per session request.
func NewServer(st *store.Store, limit int) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		store:  st,
		router: router,
		limit:  limit,
	}

	api := router.Group("/api")
	{
		api.GET("/items", s.handleSelectItems)
		api.POST("/items/:id/increment-usage", s.handleIncrementUsage)
		api.POST("/judgments", s.handleCreateJudgment)
		api.GET("/judgments", s.handleListJudgments)
		api.GET("/stats", s.handleStats)
	}

	return s
}

// Run starts the server on addr. Blocks until the listener fails.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the router for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.router
}
