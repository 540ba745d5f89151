package handler

import (
	"net/http"
	"time"

	"ghostpass/internal/adapter/http/dto"
	"ghostpass/internal/core/domain"
	"ghostpass/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// ScanHandler handles gateway scan endpoints.
type ScanHandler struct {
	authSvc ports.AuthorizationService
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(authSvc ports.AuthorizationService) *ScanHandler {
	return &ScanHandler{authSvc: authSvc}
}

// Scan handles POST /api/v1/scan. Unlike the management endpoints, the
// decision body is emitted flat, never wrapped in the response envelope:
// gate firmware branches on the body's status field alone. Every
// well-formed scan gets a 200; a malformed request is a 400 that still
// carries a DENIED decision body. An internal fault fails closed as
// DENIED/INTERNAL.
func (h *ScanHandler) Scan(c *gin.Context) {
	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ScanResponse{
			Status:    string(ports.DecisionDenied),
			Reason:    string(ports.DenyReasonInvalidRequest),
			Message:   err.Error(),
			ReceiptID: scanReceiptRef(req.VenueID),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	result, err := h.authSvc.Authorize(c.Request.Context(), ports.ScanRequest{
		PassToken:   req.PassToken,
		GatewayID:   req.GatewayID,
		VenueID:     req.VenueID,
		PayloadTier: req.Tier,
		RequestID:   req.RequestID,
		AmountCents: req.AmountCents,
		Flags: domain.ItemFlags{
			IsAlcohol: req.Flags.IsAlcohol,
			IsFood:    req.Flags.IsFood,
		},
	})
	if err != nil {
		// Fail closed: the gate stays shut when the pipeline breaks
		c.JSON(http.StatusOK, dto.ScanResponse{
			Status:    string(ports.DecisionDenied),
			Reason:    string(ports.DenyReasonInternal),
			Message:   "Authorization unavailable",
			ReceiptID: scanReceiptRef(req.VenueID),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, toScanResponse(result))
}

// scanReceiptRef is the support-log correlation reference carried by every
// handler-level denial: the venue when the request names one.
func scanReceiptRef(venueID string) string {
	if venueID != "" {
		return venueID
	}
	return "unknown"
}

func toScanResponse(r *ports.ScanResult) dto.ScanResponse {
	resp := dto.ScanResponse{
		Status:           string(r.Status),
		Reason:           string(r.Reason),
		Message:          r.Message,
		ReceiptID:        r.ReceiptID,
		VerificationTier: int(r.Tier),
		IdentityVerified: r.IdentityVerified,
		Timestamp:        r.Timestamp.Format(time.RFC3339),
	}
	if r.Entry != nil {
		e := toLedgerEntryResponse(r.Entry)
		resp.Entry = &e
	}
	return resp
}

// toLedgerEntryResponse converts domain.LedgerEntry to DTO.
func toLedgerEntryResponse(e *domain.LedgerEntry) dto.LedgerEntryResponse {
	resp := dto.LedgerEntryResponse{
		ID:               e.ID.String(),
		WalletID:         e.WalletID.String(),
		VenueID:          e.VenueID,
		StationID:        e.StationID,
		Type:             string(e.Type),
		Status:           string(e.Status),
		ItemAmountCents:  e.ItemAmountCents,
		TaxCents:         e.TaxCents,
		PlatformFeeCents: e.PlatformFeeCents,
		Split: dto.SplitResponse{
			ValidCents:     e.Split.ValidCents,
			VendorCents:    e.Split.VendorCents,
			PoolCents:      e.Split.PoolCents,
			PromoterCents:  e.Split.PromoterCents,
			ExecutiveCents: e.Split.ExecutiveCents,
		},
		PreBalanceCents:  e.PreBalanceCents,
		PostBalanceCents: e.PostBalanceCents,
		CreatedAt:        e.CreatedAt.Format(time.RFC3339),
	}
	if e.OriginalEntryID != nil {
		s := e.OriginalEntryID.String()
		resp.OriginalEntryID = &s
	}
	return resp
}
