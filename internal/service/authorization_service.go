package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ghostpass/internal/core/domain"
	"ghostpass/internal/core/ports"
	"ghostpass/pkg/apperror"
	"ghostpass/pkg/metrics"

	"github.com/rs/zerolog"
)

// AuthorizationServiceImpl implements ports.AuthorizationService: the
// linear scan pipeline of pass resolution, tier resolution, identity gating
// and, for monetary scans, settlement. Every business denial produces a
// DENIED result; only unexpected faults surface as errors, which the
// transport layer fails closed.
type AuthorizationServiceImpl struct {
	passes    ports.PassValidator
	tiers     ports.TierResolver
	gate      ports.IdentityGate
	stations  ports.StationRepository
	profiles  ports.ProfileStore
	calc      ports.SplitCalculator
	ledger    ports.LedgerService
	audit     ports.AuditService
	decisions ports.DecisionCache
	replayTTL time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewAuthorizationService creates a new AuthorizationServiceImpl.
func NewAuthorizationService(
	passes ports.PassValidator,
	tiers ports.TierResolver,
	gate ports.IdentityGate,
	stations ports.StationRepository,
	profiles ports.ProfileStore,
	calc ports.SplitCalculator,
	ledger ports.LedgerService,
	audit ports.AuditService,
	decisions ports.DecisionCache,
	replayTTL time.Duration,
	log zerolog.Logger,
) *AuthorizationServiceImpl {
	return &AuthorizationServiceImpl{
		passes:    passes,
		tiers:     tiers,
		gate:      gate,
		stations:  stations,
		profiles:  profiles,
		calc:      calc,
		ledger:    ledger,
		audit:     audit,
		decisions: decisions,
		replayTTL: replayTTL,
		now:       time.Now,
		log:       log,
	}
}

// denyReasonForCode maps application error codes to scan denial reasons.
// Codes absent from the map are internal faults, not denials.
var denyReasonForCode = map[string]ports.DenyReason{
	"REQ_001":  ports.DenyReasonInvalidRequest,
	"PASS_001": ports.DenyReasonNotFound,
	"PASS_002": ports.DenyReasonExpired,
	"IDV_001":  ports.DenyReasonIdentityRequired,
	"LED_001":  ports.DenyReasonInsufficientFunds,
	"LED_002":  ports.DenyReasonConflict,
	"LED_006":  ports.DenyReasonInvalidRequest,
}

// Authorize runs the scan pipeline for a single gateway presentation.
func (s *AuthorizationServiceImpl) Authorize(ctx context.Context, req ports.ScanRequest) (*ports.ScanResult, error) {
	start := s.now()
	defer func() {
		metrics.ScanDuration.Observe(time.Since(start).Seconds())
	}()

	// Non-monetary scans replay through the decision cache; monetary scans
	// are de-duplicated at the ledger by the wallet-scoped idempotency key.
	var replayKey string
	if req.RequestID != "" && !req.Monetary() {
		replayKey = req.GatewayID + ":" + req.RequestID
		cached, err := s.decisions.Get(ctx, replayKey)
		if err != nil {
			s.log.Warn().Err(err).Str("key", replayKey).Msg("decision cache read failed")
		}
		if cached != nil {
			var result ports.ScanResult
			if err := json.Unmarshal(cached, &result); err == nil {
				return &result, nil
			}
			s.log.Warn().Str("key", replayKey).Msg("discarding malformed cached decision")
		}
	}

	session, err := s.passes.Resolve(ctx, req.PassToken)
	if err != nil {
		return s.deny(ctx, req, replayKey, 0, false, err)
	}

	tier := s.tiers.ResolveTier(ctx, req.GatewayID, req.PayloadTier)

	verified, err := s.gate.Check(ctx, session, tier)
	if err != nil {
		return s.deny(ctx, req, replayKey, tier, verified, err)
	}

	result := &ports.ScanResult{
		Status:           ports.DecisionApproved,
		Message:          "Access granted",
		ReceiptID:        receiptRef(req),
		Tier:             tier,
		IdentityVerified: verified,
		Timestamp:        s.now().UTC(),
	}

	if req.Monetary() {
		entry, settleErr := s.settle(ctx, req, session)
		if settleErr != nil {
			return s.deny(ctx, req, replayKey, tier, verified, settleErr)
		}
		result.Entry = entry
		result.ReceiptID = entry.ID.String()
		result.Message = "Entry settled"
	}

	s.recordDecision(ctx, req, result)
	s.storeDecision(ctx, replayKey, result)
	metrics.ScanDecisions.WithLabelValues(string(result.Status), string(result.Reason)).Inc()

	s.log.Info().
		Str("gateway_id", req.GatewayID).
		Str("receipt_id", result.ReceiptID).
		Int("tier", int(result.Tier)).
		Bool("monetary", req.Monetary()).
		Msg("scan approved")

	return result, nil
}

// settle loads station settlement configuration, computes the split and
// commits the charge against the session's wallet.
func (s *AuthorizationServiceImpl) settle(ctx context.Context, req ports.ScanRequest, session *domain.PassSession) (*domain.LedgerEntry, error) {
	station, err := s.stations.GetByID(ctx, req.GatewayID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load station: %w", err))
	}

	var taxProfile *domain.TaxProfile
	var revProfile *domain.RevenueProfile
	var feeCents int64
	venueID := req.VenueID
	entryType := domain.EntryTypeEntry

	if station != nil {
		feeCents = station.PlatformFeeCents
		if venueID == "" {
			venueID = station.VenueID
		}
		if station.Kind != "" && station.Kind != domain.StationKindDoor {
			entryType = domain.EntryTypePurchase
		}
		if station.TaxProfileID != nil {
			taxProfile, err = s.profiles.GetTaxProfile(ctx, *station.TaxProfileID)
			if err != nil {
				return nil, err
			}
		}
		if station.RevenueProfileID != nil {
			revProfile, err = s.profiles.GetRevenueProfile(ctx, *station.RevenueProfileID)
			if err != nil {
				return nil, err
			}
		}
	}

	settlement, err := s.calc.Compute(req.AmountCents, taxProfile, revProfile, req.Flags, feeCents)
	if err != nil {
		return nil, err
	}

	return s.ledger.Commit(ctx, ports.CommitRequest{
		WalletID:   session.WalletID,
		VenueID:    venueID,
		StationID:  req.GatewayID,
		Type:       entryType,
		Amount:     req.AmountCents,
		Settlement: *settlement,
		RequestID:  req.RequestID,
	})
}

// deny terminates the pipeline. Business denials become DENIED results;
// anything unmapped is an internal fault and propagates so the transport
// layer can fail closed.
func (s *AuthorizationServiceImpl) deny(ctx context.Context, req ports.ScanRequest, replayKey string, tier domain.VerificationTier, verified bool, cause error) (*ports.ScanResult, error) {
	var appErr *apperror.AppError
	var reason ports.DenyReason
	var ok bool
	if errors.As(cause, &appErr) {
		reason, ok = denyReasonForCode[appErr.Code]
	}
	if !ok {
		s.audit.Record(ctx, s.auditLog(req, domain.AuditActionScanDeny, receiptRef(req), string(ports.DenyReasonInternal)))
		metrics.ScanDecisions.WithLabelValues(string(ports.DecisionDenied), string(ports.DenyReasonInternal)).Inc()
		s.log.Error().Err(cause).Str("gateway_id", req.GatewayID).Msg("scan failed on internal fault")
		return nil, cause
	}

	result := &ports.ScanResult{
		Status:           ports.DecisionDenied,
		Reason:           reason,
		Message:          appErr.Message,
		ReceiptID:        receiptRef(req),
		Tier:             tier,
		IdentityVerified: verified,
		Timestamp:        s.now().UTC(),
	}

	s.recordDecision(ctx, req, result)
	s.storeDecision(ctx, replayKey, result)
	metrics.ScanDecisions.WithLabelValues(string(result.Status), string(result.Reason)).Inc()

	s.log.Info().
		Str("gateway_id", req.GatewayID).
		Str("reason", string(reason)).
		Msg("scan denied")

	return result, nil
}

// recordDecision writes the decision to the audit trail, fire-and-forget.
func (s *AuthorizationServiceImpl) recordDecision(ctx context.Context, req ports.ScanRequest, result *ports.ScanResult) {
	action := domain.AuditActionScanAdmit
	if !result.Admitted() {
		action = domain.AuditActionScanDeny
	}
	s.audit.Record(ctx, s.auditLog(req, action, result.ReceiptID, string(result.Reason)))
}

func (s *AuthorizationServiceImpl) auditLog(req ports.ScanRequest, action domain.AuditAction, receiptID, reason string) *domain.AuditLog {
	details, _ := json.Marshal(map[string]any{
		"venue_id":     req.VenueID,
		"reason":       reason,
		"amount_cents": req.AmountCents,
	})
	return &domain.AuditLog{
		Action:       action,
		ResourceType: "scan",
		ResourceID:   receiptID,
		GatewayID:    req.GatewayID,
		Details:      string(details),
	}
}

// storeDecision caches the serialized result under the replay key,
// best-effort. SET NX semantics keep the first decision if duplicates race.
func (s *AuthorizationServiceImpl) storeDecision(ctx context.Context, replayKey string, result *ports.ScanResult) {
	if replayKey == "" {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if _, err := s.decisions.PutIfAbsent(ctx, replayKey, payload, s.replayTTL); err != nil {
		s.log.Warn().Err(err).Str("key", replayKey).Msg("decision cache write failed")
	}
}

// receiptRef is the denial-path receipt reference: the venue when known.
func receiptRef(req ports.ScanRequest) string {
	if req.VenueID != "" {
		return req.VenueID
	}
	return "unknown"
}
