package server

import (
	"net/http"
	"strconv"

	"github.com/UnknownOlympus/venuemap/internal/models"
	"github.com/gin-gonic/gin"
)

type rejectRequest struct {
	Note string `json:"note"`
}

func (s *Server) submitContribution(c *gin.Context) {
	var submission models.VenueSubmission
	if err := c.ShouldBindJSON(&submission); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid venue submission"})
		return
	}

	sent, err := s.contributions.Submit(c.Request.Context(), submission)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sent)
}

func (s *Server) proposeVenueEdit(c *gin.Context) {
	var edit models.VenueSubmission
	if err := c.ShouldBindJSON(&edit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid venue edit"})
		return
	}

	ctx := c.Request.Context()
	venue, err := s.places.GetVenue(ctx, c.Param("slug"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	sent, err := s.contributions.ProposeEdit(ctx, *venue, edit)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, sent)
}

func (s *Server) pendingContributions(c *gin.Context) {
	contributions, err := s.places.PendingContributions(c.Request.Context(), c.Query("category"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, contributions)
}

func (s *Server) approveContribution(c *gin.Context) {
	id, ok := contributionID(c)
	if !ok {
		return
	}

	if err := s.places.ApproveContribution(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) rejectContribution(c *gin.Context) {
	id, ok := contributionID(c)
	if !ok {
		return
	}

	var req rejectRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rejection note"})
			return
		}
	}

	if err := s.places.RejectContribution(c.Request.Context(), id, req.Note); err != nil {
		s.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func contributionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribution id"})
		return 0, false
	}

	return id, true
}
