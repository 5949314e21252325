// Package httpapi exposes the rewards services over HTTP.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"rewards-hub/internal/model"
	"rewards-hub/internal/rewards"
	"rewards-hub/internal/service"
)

// CheckinService claims daily rewards.
type CheckinService interface {
	ClaimDaily(ctx context.Context, userID model.UserID) (*service.ClaimResult, error)
}

// DashboardService loads the dashboard snapshot.
type DashboardService interface {
	GetDashboard(ctx context.Context, id model.Identity) (*service.Dashboard, error)
}

// ReferralService lists, registers and completes referrals.
type ReferralService interface {
	List(ctx context.Context, userID model.UserID) (*service.ReferralList, error)
	Register(ctx context.Context, referrerID, refereeID model.UserID) (*model.ReferralRecord, error)
	Complete(ctx context.Context, id uuid.UUID, points int64) (*model.ReferralRecord, error)
}

// CatalogService classifies the reward catalog for a user.
type CatalogService interface {
	View(ctx context.Context, userID model.UserID, filter rewards.Filter) (*rewards.CatalogView, error)
}

// Handler serves the rewards API.
type Handler struct {
	checkin   CheckinService
	dashboard DashboardService
	referrals ReferralService
	catalog   CatalogService
	health    func(ctx context.Context) error
}

// NewHandler creates a new Handler. health may be nil.
func NewHandler(
	checkin CheckinService,
	dashboard DashboardService,
	referrals ReferralService,
	catalog CatalogService,
	health func(ctx context.Context) error,
) *Handler {
	return &Handler{
		checkin:   checkin,
		dashboard: dashboard,
		referrals: referrals,
		catalog:   catalog,
		health:    health,
	}
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			log.Warn().Err(err).Msg("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Dashboard handles GET /api/v1/dashboard.
func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.dashboard.GetDashboard(c.Request.Context(), identityFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

type claimResponse struct {
	Outcome string `json:"outcome"`
	Claimed bool   `json:"claimed"`
	*service.ClaimResult
}

// Checkin handles POST /api/v1/checkin. A repeat claim on the same day is
// answered with 200 and outcome "already_claimed".
func (h *Handler) Checkin(c *gin.Context) {
	res, err := h.checkin.ClaimDaily(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, claimResponse{
		Outcome:     res.Outcome.String(),
		Claimed:     res.Outcome.Credits(),
		ClaimResult: res,
	})
}

// Referrals handles GET /api/v1/referrals.
func (h *Handler) Referrals(c *gin.Context) {
	list, err := h.referrals.List(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Rewards handles GET /api/v1/rewards?filter=.
func (h *Handler) Rewards(c *gin.Context) {
	filter, err := rewards.ParseFilter(c.Query("filter"))
	if err != nil {
		writeError(c, err)
		return
	}
	view, err := h.catalog.View(c.Request.Context(), identityFrom(c).UserID, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type registerReferralRequest struct {
	ReferrerID string `json:"referrer_id" binding:"required"`
	RefereeID  string `json:"referee_id" binding:"required"`
}

// RegisterReferral handles POST /internal/referrals.
func (h *Handler) RegisterReferral(c *gin.Context) {
	var req registerReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := h.referrals.Register(c.Request.Context(), model.UserID(req.ReferrerID), model.UserID(req.RefereeID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

type completeReferralRequest struct {
	Points int64 `json:"points"`
}

// CompleteReferral handles POST /internal/referrals/:id/complete.
// An empty body awards the configured default.
func (h *Handler) CompleteReferral(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid referral id"})
		return
	}

	var req completeReferralRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Points < 0 {
		writeError(c, service.ErrInvalidPoints)
		return
	}

	rec, err := h.referrals.Complete(c.Request.Context(), id, req.Points)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// writeError maps service errors to HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrReferralNotPending),
		errors.Is(err, service.ErrReferralExists):
		status = http.StatusConflict
	case errors.Is(err, service.ErrReferralNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidUser),
		errors.Is(err, service.ErrInvalidPoints),
		errors.Is(err, service.ErrSelfReferral),
		errors.Is(err, rewards.ErrUnknownFilter):
		status = http.StatusBadRequest
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}

	msg := err.Error()
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
		msg = service.ErrStoreUnavailable.Error()
	} else if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
