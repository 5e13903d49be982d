package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) listCategories(c *gin.Context) {
	categories, err := s.places.ListCategories(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, categories)
}

func (s *Server) searchCategories(c *gin.Context) {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required query parameter 'q'"})
		return
	}

	categories, err := s.places.SearchCategories(c.Request.Context(), term)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, categories)
}

func (s *Server) getCategory(c *gin.Context) {
	category, err := s.places.GetCategory(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}

func (s *Server) getVenue(c *gin.Context) {
	venue, err := s.places.GetVenue(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, venue)
}

func (s *Server) profile(c *gin.Context) {
	profile, err := s.places.Profile(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}
