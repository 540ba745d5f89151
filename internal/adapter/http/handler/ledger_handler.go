package handler

import (
	"math"
	"strconv"

	"ghostpass/internal/adapter/http/dto"
	"ghostpass/internal/core/domain"
	"ghostpass/internal/core/ports"
	"ghostpass/pkg/apperror"
	"ghostpass/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerHandler handles refund and ledger query endpoints.
type LedgerHandler struct {
	ledgerSvc    ports.LedgerService
	reportingSvc ports.ReportingService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService, reportingSvc ports.ReportingService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc, reportingSvc: reportingSvc}
}

// Refund handles POST /api/v1/ledger/refund.
func (h *LedgerHandler) Refund(c *gin.Context) {
	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	originalID, err := uuid.Parse(req.OriginalEntryID)
	if err != nil {
		response.Error(c, apperror.Validation("original_entry_id must be a UUID"))
		return
	}

	entry, err := h.ledgerSvc.Refund(c.Request.Context(), ports.RefundRequest{
		OriginalEntryID: originalID,
		Amount:          req.Amount,
		Reason:          req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toLedgerEntryResponse(entry))
}

// List handles GET /api/v1/ledger.
func (h *LedgerHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	params := ports.LedgerListParams{
		Page:     page,
		PageSize: pageSize,
	}

	if w := c.Query("wallet_id"); w != "" {
		id, err := uuid.Parse(w)
		if err != nil {
			response.Error(c, apperror.Validation("wallet_id must be a UUID"))
			return
		}
		params.WalletID = &id
	}
	if v := c.Query("venue_id"); v != "" {
		params.VenueID = &v
	}
	if s := c.Query("station_id"); s != "" {
		params.StationID = &s
	}
	if t := c.Query("type"); t != "" {
		entryType := domain.EntryType(t)
		params.Type = &entryType
	}
	if f := c.Query("from"); f != "" {
		if v, err := strconv.ParseInt(f, 10, 64); err == nil {
			params.From = &v
		}
	}
	if t := c.Query("to"); t != "" {
		if v, err := strconv.ParseInt(t, 10, 64); err == nil {
			params.To = &v
		}
	}

	entries, total, err := h.reportingSvc.ListEntries(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, toLedgerEntryResponse(&entries[i]))
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))

	response.OK(c, dto.LedgerListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// Stats handles GET /api/v1/ledger/stats.
func (h *LedgerHandler) Stats(c *gin.Context) {
	params := ports.LedgerStatsParams{}

	if v := c.Query("venue_id"); v != "" {
		params.VenueID = &v
	}
	if f := c.Query("from"); f != "" {
		if v, err := strconv.ParseInt(f, 10, 64); err == nil {
			params.From = &v
		}
	}
	if t := c.Query("to"); t != "" {
		if v, err := strconv.ParseInt(t, 10, 64); err == nil {
			params.To = &v
		}
	}

	stats, err := h.reportingSvc.GetStats(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LedgerStatsResponse{
		TotalEntries:     stats.TotalEntries,
		Admissions:       stats.Admissions,
		Purchases:        stats.Purchases,
		Refunds:          stats.Refunds,
		GrossCents:       stats.GrossCents,
		TaxCents:         stats.TaxCents,
		PlatformFeeCents: stats.PlatformFeeCents,
		RefundedCents:    stats.RefundedCents,
	})
}
