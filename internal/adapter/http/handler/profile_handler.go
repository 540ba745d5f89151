package handler

import (
	"time"

	"ghostpass/internal/adapter/http/dto"
	"ghostpass/internal/core/domain"
	"ghostpass/internal/core/ports"
	"ghostpass/pkg/apperror"
	"ghostpass/pkg/response"

	"github.com/gin-gonic/gin"
)

// ProfileHandler handles revenue and tax profile management endpoints.
type ProfileHandler struct {
	profileSvc ports.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileSvc ports.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc}
}

// CreateRevenueProfile handles POST /api/v1/profiles/revenue.
func (h *ProfileHandler) CreateRevenueProfile(c *gin.Context) {
	var req dto.CreateRevenueProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	profile, err := h.profileSvc.CreateRevenueProfile(c.Request.Context(), &domain.RevenueProfile{
		Name:         req.Name,
		ValidPct:     req.ValidPct,
		VendorPct:    req.VendorPct,
		PoolPct:      req.PoolPct,
		PromoterPct:  req.PromoterPct,
		ExecutivePct: req.ExecutivePct,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toRevenueProfileResponse(profile))
}

// ListRevenueProfiles handles GET /api/v1/profiles/revenue.
func (h *ProfileHandler) ListRevenueProfiles(c *gin.Context) {
	profiles, err := h.profileSvc.ListRevenueProfiles(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.RevenueProfileResponse, 0, len(profiles))
	for i := range profiles {
		items = append(items, toRevenueProfileResponse(&profiles[i]))
	}
	response.OK(c, items)
}

// CreateTaxProfile handles POST /api/v1/profiles/tax.
func (h *ProfileHandler) CreateTaxProfile(c *gin.Context) {
	var req dto.CreateTaxProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	profile, err := h.profileSvc.CreateTaxProfile(c.Request.Context(), &domain.TaxProfile{
		Name:          req.Name,
		StateTaxPct:   req.StateTaxPct,
		LocalTaxPct:   req.LocalTaxPct,
		AlcoholTaxPct: req.AlcoholTaxPct,
		FoodTaxPct:    req.FoodTaxPct,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTaxProfileResponse(profile))
}

// ListTaxProfiles handles GET /api/v1/profiles/tax.
func (h *ProfileHandler) ListTaxProfiles(c *gin.Context) {
	profiles, err := h.profileSvc.ListTaxProfiles(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TaxProfileResponse, 0, len(profiles))
	for i := range profiles {
		items = append(items, toTaxProfileResponse(&profiles[i]))
	}
	response.OK(c, items)
}

func toRevenueProfileResponse(p *domain.RevenueProfile) dto.RevenueProfileResponse {
	return dto.RevenueProfileResponse{
		ID:           p.ID.String(),
		Name:         p.Name,
		ValidPct:     p.ValidPct,
		VendorPct:    p.VendorPct,
		PoolPct:      p.PoolPct,
		PromoterPct:  p.PromoterPct,
		ExecutivePct: p.ExecutivePct,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
	}
}

func toTaxProfileResponse(p *domain.TaxProfile) dto.TaxProfileResponse {
	return dto.TaxProfileResponse{
		ID:            p.ID.String(),
		Name:          p.Name,
		StateTaxPct:   p.StateTaxPct,
		LocalTaxPct:   p.LocalTaxPct,
		AlcoholTaxPct: p.AlcoholTaxPct,
		FoodTaxPct:    p.FoodTaxPct,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}
