package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ghostpass/internal/core/domain"
	"ghostpass/internal/core/ports"
	"ghostpass/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ProfileServiceImpl implements ports.ProfileService. Profiles are
// create-only: an edit is a new row, so cached copies can never go stale,
// only expire. The 100%-sum invariant is enforced here at write time and
// re-checked by the split calculator at spend time.
type ProfileServiceImpl struct {
	repo  ports.ProfileRepository
	cache ports.ProfileCache
	ttl   time.Duration
	audit ports.AuditService
	log   zerolog.Logger
}

// NewProfileService creates a new ProfileServiceImpl.
func NewProfileService(repo ports.ProfileRepository, cache ports.ProfileCache, ttl time.Duration, audit ports.AuditService, log zerolog.Logger) *ProfileServiceImpl {
	return &ProfileServiceImpl{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		audit: audit,
		log:   log,
	}
}

// CreateRevenueProfile validates and persists a new revenue split profile.
func (s *ProfileServiceImpl) CreateRevenueProfile(ctx context.Context, p *domain.RevenueProfile) (*domain.RevenueProfile, error) {
	if err := p.Validate(); err != nil {
		return nil, apperror.ErrSplitInvariant(p.SumPct())
	}

	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	if err := s.repo.CreateRevenueProfile(ctx, p); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create revenue profile: %w", err))
	}

	s.cacheRevenue(ctx, p)
	s.recordCreate(ctx, "revenue_profile", p.ID, p.Name)
	return p, nil
}

// CreateTaxProfile validates and persists a new tax profile.
func (s *ProfileServiceImpl) CreateTaxProfile(ctx context.Context, p *domain.TaxProfile) (*domain.TaxProfile, error) {
	if err := p.Validate(); err != nil {
		return nil, apperror.ErrInvalidTaxProfile(err.Error())
	}

	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	if err := s.repo.CreateTaxProfile(ctx, p); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create tax profile: %w", err))
	}

	s.cacheTax(ctx, p)
	s.recordCreate(ctx, "tax_profile", p.ID, p.Name)
	return p, nil
}

// GetRevenueProfile reads through the cache.
func (s *ProfileServiceImpl) GetRevenueProfile(ctx context.Context, id uuid.UUID) (*domain.RevenueProfile, error) {
	if data, err := s.cache.GetRevenue(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("profile_id", id.String()).Msg("profile cache read failed")
	} else if data != nil {
		p := &domain.RevenueProfile{}
		if err := json.Unmarshal(data, p); err == nil {
			return p, nil
		}
	}

	p, err := s.repo.GetRevenueProfile(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get revenue profile: %w", err))
	}
	if p == nil {
		return nil, apperror.ErrEntryNotFound("revenue profile")
	}

	s.cacheRevenue(ctx, p)
	return p, nil
}

// GetTaxProfile reads through the cache.
func (s *ProfileServiceImpl) GetTaxProfile(ctx context.Context, id uuid.UUID) (*domain.TaxProfile, error) {
	if data, err := s.cache.GetTax(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("profile_id", id.String()).Msg("profile cache read failed")
	} else if data != nil {
		p := &domain.TaxProfile{}
		if err := json.Unmarshal(data, p); err == nil {
			return p, nil
		}
	}

	p, err := s.repo.GetTaxProfile(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get tax profile: %w", err))
	}
	if p == nil {
		return nil, apperror.ErrEntryNotFound("tax profile")
	}

	s.cacheTax(ctx, p)
	return p, nil
}

// ListRevenueProfiles returns every revenue profile, newest first.
func (s *ProfileServiceImpl) ListRevenueProfiles(ctx context.Context) ([]domain.RevenueProfile, error) {
	profiles, err := s.repo.ListRevenueProfiles(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list revenue profiles: %w", err))
	}
	return profiles, nil
}

// ListTaxProfiles returns every tax profile, newest first.
func (s *ProfileServiceImpl) ListTaxProfiles(ctx context.Context) ([]domain.TaxProfile, error) {
	profiles, err := s.repo.ListTaxProfiles(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list tax profiles: %w", err))
	}
	return profiles, nil
}

func (s *ProfileServiceImpl) cacheRevenue(ctx context.Context, p *domain.RevenueProfile) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.cache.SetRevenue(ctx, p.ID, data, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("profile_id", p.ID.String()).Msg("profile cache write failed")
	}
}

func (s *ProfileServiceImpl) cacheTax(ctx context.Context, p *domain.TaxProfile) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.cache.SetTax(ctx, p.ID, data, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("profile_id", p.ID.String()).Msg("profile cache write failed")
	}
}

func (s *ProfileServiceImpl) recordCreate(ctx context.Context, resourceType string, id uuid.UUID, name string) {
	details, _ := json.Marshal(map[string]string{"name": name})
	s.audit.Record(ctx, &domain.AuditLog{
		Action:       domain.AuditActionProfileCreate,
		ResourceType: resourceType,
		ResourceID:   id.String(),
		Details:      string(details),
	})
}
