package service

import (
	"context"

	"ghostpass/internal/core/domain"
	"ghostpass/internal/core/ports"

	"github.com/rs/zerolog"
)

// tierSource is one step of the resolution chain: a named lookup that may
// yield a tier requirement for a gateway.
type tierSource struct {
	name   string
	lookup func(ctx context.Context, gatewayID string) (*domain.VerificationTier, error)
}

// TierResolverImpl implements ports.TierResolver. Sources are consulted in
// order; the first configured tier wins. Resolution never fails: a lookup
// error or missing configuration degrades to the next source, and the chain
// bottoms out at the default tier. A scan must not bounce off a gateway
// because a config row is missing.
type TierResolverImpl struct {
	sources []tierSource
	log     zerolog.Logger
}

// NewTierResolver creates a resolver consulting station configuration first
// and the QR asset provisioning record second.
func NewTierResolver(stations ports.StationRepository, assets ports.QRAssetRepository, log zerolog.Logger) *TierResolverImpl {
	return &TierResolverImpl{
		sources: []tierSource{
			{
				name: "station",
				lookup: func(ctx context.Context, gatewayID string) (*domain.VerificationTier, error) {
					station, err := stations.GetByID(ctx, gatewayID)
					if err != nil {
						return nil, err
					}
					if station == nil {
						return nil, nil
					}
					return station.RequiredTier, nil
				},
			},
			{
				name: "qr_asset",
				lookup: func(ctx context.Context, gatewayID string) (*domain.VerificationTier, error) {
					asset, err := assets.GetByCode(ctx, gatewayID)
					if err != nil {
						return nil, err
					}
					if asset == nil {
						return nil, nil
					}
					return asset.RequiredTier, nil
				},
			},
		},
		log: log,
	}
}

// ResolveTier determines the verification tier required at a gateway. A
// valid non-zero tier claim embedded in the scanned payload takes
// precedence over stored configuration; it was stamped at QR-generation
// time by the same authority that provisions stations.
func (r *TierResolverImpl) ResolveTier(ctx context.Context, gatewayID string, payloadTier int) domain.VerificationTier {
	if payloadTier != 0 {
		if tier := domain.VerificationTier(payloadTier); tier.Valid() {
			return tier
		}
		r.log.Warn().
			Str("gateway_id", gatewayID).
			Int("payload_tier", payloadTier).
			Msg("invalid payload tier claim ignored")
	}

	for _, src := range r.sources {
		tier, err := src.lookup(ctx, gatewayID)
		if err != nil {
			r.log.Warn().Err(err).
				Str("gateway_id", gatewayID).
				Str("source", src.name).
				Msg("tier lookup failed, trying next source")
			continue
		}
		if tier != nil && tier.Valid() {
			return *tier
		}
	}

	return domain.TierManualLog
}
