package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	settlementdomain "github.com/smallbiznis/relaygrid/internal/settlement/domain"
)

type settlementPeriodRequest struct {
	ParticipantID string `json:"participant_id"`
	PeriodStart   string `json:"period_start"`
	PeriodEnd     string `json:"period_end"`
}

func (r settlementPeriodRequest) toDomain() (settlementdomain.PeriodRequest, error) {
	start, err := time.Parse(time.RFC3339, r.PeriodStart)
	if err != nil {
		return settlementdomain.PeriodRequest{}, settlementdomain.ErrInvalidPeriod
	}
	end, err := time.Parse(time.RFC3339, r.PeriodEnd)
	if err != nil {
		return settlementdomain.PeriodRequest{}, settlementdomain.ErrInvalidPeriod
	}
	return settlementdomain.PeriodRequest{
		ParticipantID: r.ParticipantID,
		PeriodStart:   start.UTC(),
		PeriodEnd:     end.UTC(),
	}, nil
}

func (s *Server) PreviewSettlement(c *gin.Context) {
	var req settlementPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	period, err := req.toDomain()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.settlementSvc.Preview(c.Request.Context(), period)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) FinalizeSettlement(c *gin.Context) {
	var req settlementPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	period, err := req.toDomain()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.settlementSvc.Finalize(c.Request.Context(), period)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSettlement(c *gin.Context) {
	resp, err := s.settlementSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSettlements(c *gin.Context) {
	resp, err := s.settlementSvc.List(c.Request.Context(), c.Query("participant_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
