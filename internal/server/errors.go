package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	commissiondomain "github.com/smallbiznis/relaygrid/internal/commission/domain"
	"github.com/smallbiznis/relaygrid/internal/extension"
	offerdomain "github.com/smallbiznis/relaygrid/internal/offer/domain"
	orderdomain "github.com/smallbiznis/relaygrid/internal/orderrelay/domain"
	participantdomain "github.com/smallbiznis/relaygrid/internal/participant/domain"
	settlementdomain "github.com/smallbiznis/relaygrid/internal/settlement/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

// ErrorHandlingMiddleware renders the last error a handler recorded into the
// shared error envelope. Internal errors stay opaque to the caller.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: err.Error(),
		}
	case errors.Is(err, participantdomain.ErrNotEnabled):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "not_enabled",
			Message: "authorization workflow is not enabled",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, participantdomain.ErrInvalidOrganization),
		errors.Is(err, participantdomain.ErrInvalidType),
		errors.Is(err, participantdomain.ErrInvalidName),
		errors.Is(err, participantdomain.ErrInvalidID),
		errors.Is(err, participantdomain.ErrInvalidActor),
		errors.Is(err, participantdomain.ErrInvalidStatus),
		errors.Is(err, offerdomain.ErrInvalidOrganization),
		errors.Is(err, offerdomain.ErrInvalidSupplier),
		errors.Is(err, offerdomain.ErrInvalidSeller),
		errors.Is(err, offerdomain.ErrInvalidSKU),
		errors.Is(err, offerdomain.ErrInvalidName),
		errors.Is(err, offerdomain.ErrInvalidPrice),
		errors.Is(err, offerdomain.ErrInvalidID),
		errors.Is(err, commissiondomain.ErrInvalidOrganization),
		errors.Is(err, commissiondomain.ErrInvalidPolicyType),
		errors.Is(err, commissiondomain.ErrInvalidScope),
		errors.Is(err, commissiondomain.ErrInvalidRate),
		errors.Is(err, commissiondomain.ErrInvalidAmount),
		errors.Is(err, commissiondomain.ErrInvalidID),
		errors.Is(err, orderdomain.ErrInvalidOrganization),
		errors.Is(err, orderdomain.ErrInvalidOrderRef),
		errors.Is(err, orderdomain.ErrInvalidSeller),
		errors.Is(err, orderdomain.ErrInvalidPartner),
		errors.Is(err, orderdomain.ErrInvalidOffer),
		errors.Is(err, orderdomain.ErrInvalidAmount),
		errors.Is(err, orderdomain.ErrInvalidID),
		errors.Is(err, orderdomain.ErrInvalidStatus),
		errors.Is(err, orderdomain.ErrOfferInactive),
		errors.Is(err, settlementdomain.ErrInvalidOrganization),
		errors.Is(err, settlementdomain.ErrInvalidParticipant),
		errors.Is(err, settlementdomain.ErrInvalidPeriod),
		errors.Is(err, settlementdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, participantdomain.ErrNotFound),
		errors.Is(err, offerdomain.ErrNotFound),
		errors.Is(err, commissiondomain.ErrNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, orderdomain.ErrOfferNotFound),
		errors.Is(err, settlementdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, participantdomain.ErrInvalidTransition),
		errors.Is(err, orderdomain.ErrInvalidTransition),
		errors.Is(err, offerdomain.ErrDuplicateSKU),
		errors.Is(err, commissiondomain.ErrPolicyImmutable),
		errors.Is(err, settlementdomain.ErrConflict):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, extension.ErrVetoed),
		errors.Is(err, participantdomain.ErrNotEligible):
		return true
	default:
		return false
	}
}
