package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/regionscope/models"
)

// Lookuper is the part of lookup.Service the handlers need.
type Lookuper interface {
	Lookup(ctx context.Context, raw string) models.LookupResult
	LookupBatch(ctx context.Context, identifiers []string) ([]models.LookupResult, error)
}

// UserRegion returns a handler for GET /api/user-region?username=<id>.
//
// Flow:
//  1. Reject a missing username with 400.
//  2. Lookup (cache-aware); X-Cache reports HIT or MISS.
//  3. Map the result to a status: 200, 400, 503 (BUSY) or 500.
func UserRegion(svc Lookuper) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Validate ─────────────────────────────────────────────
		raw := c.Query("username")
		if raw == "" {
			c.JSON(http.StatusBadRequest, models.NewErrorResponse(
				models.NewValidationError("username parameter is required"),
			))
			return
		}

		// ── 2. Lookup ───────────────────────────────────────────────
		result := svc.Lookup(c.Request.Context(), raw)
		if result.Cached {
			c.Header("X-Cache", "HIT")
		} else {
			c.Header("X-Cache", "MISS")
		}

		// ── 3. Respond ──────────────────────────────────────────────
		c.JSON(statusFor(result), result)
	}
}

// BatchRegion returns a handler for POST /api/batch-region.
//
// The body is {"usernames": [...]}. Lookups run one after another and the
// response keeps input order. Oversized batches are rejected before any
// lookup starts.
func BatchRegion(svc Lookuper) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Usernames == nil {
			c.JSON(http.StatusBadRequest, models.NewErrorResponse(
				models.NewValidationError("usernames array is required"),
			))
			return
		}

		results, err := svc.LookupBatch(c.Request.Context(), req.Usernames)
		if err != nil {
			se := models.AsScrapeError(err)
			c.JSON(errorStatus(se), models.NewErrorResponse(se))
			return
		}

		c.JSON(http.StatusOK, models.BatchResponse{
			Success: true,
			Results: results,
		})
	}
}

// statusFor maps a lookup result to its HTTP status code.
func statusFor(r models.LookupResult) int {
	if r.Success {
		return http.StatusOK
	}
	return errorStatus(&models.ScrapeError{Code: r.Code})
}

// errorStatus translates error codes to HTTP status codes.
func errorStatus(e *models.ScrapeError) int {
	switch {
	case e.IsValidation():
		return http.StatusBadRequest // 400
	case e.Code == models.ErrCodeBusy:
		return http.StatusServiceUnavailable // 503
	case e.Code == models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case e.Code == models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
