package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	participantdomain "github.com/smallbiznis/relaygrid/internal/participant/domain"
)

func (s *Server) ApplyParticipant(c *gin.Context) {
	var req participantdomain.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.participantSvc.Apply(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type participantActionRequest struct {
	ActorID string  `json:"actor_id"`
	Reason  *string `json:"reason"`
}

func (s *Server) actionHandler(action participantdomain.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req participantActionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		resp, err := s.participantSvc.Act(c.Request.Context(), participantdomain.ActionRequest{
			ID:      c.Param("id"),
			Action:  action,
			ActorID: req.ActorID,
			Reason:  req.Reason,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": resp})
	}
}

func (s *Server) GetParticipant(c *gin.Context) {
	resp, err := s.participantSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetParticipantHistory(c *gin.Context) {
	resp, err := s.participantSvc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListParticipants(c *gin.Context) {
	var query struct {
		Type   string `form:"type"`
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.participantSvc.List(c.Request.Context(), participantdomain.ListRequest{
		Type:   query.Type,
		Status: query.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
