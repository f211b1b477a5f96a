package geo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"citizenly-registry/internal/domain"
	"citizenly-registry/internal/metrics"
	"citizenly-registry/internal/repository"
	"citizenly-registry/internal/store"

	"go.uber.org/zap"
)

const (
	ancestryKeyPrefix = "psgc:ancestry:"
	ancestryTTL       = 24 * time.Hour
)

// Resolver resolves a barangay code to its full geographic chain.
type Resolver interface {
	Resolve(ctx context.Context, barangayCode string) (*domain.GeoAncestry, error)
}

// ChainResolver walks the reference tables for a barangay's ancestors
// and caches the result, since the data only changes on PSA imports.
// The chain comes from the reference tables alone: a code whose chain
// cannot be walked is an error, never something to derive from the
// code's digits.
type ChainResolver struct {
	psgc   repository.PSGCRepository
	kv     store.KV
	logger *zap.Logger
}

func NewChainResolver(psgc repository.PSGCRepository, kv store.KV, logger *zap.Logger) *ChainResolver {
	return &ChainResolver{psgc: psgc, kv: kv, logger: logger}
}

var _ Resolver = (*ChainResolver)(nil)

func (r *ChainResolver) Resolve(ctx context.Context, barangayCode string) (*domain.GeoAncestry, error) {
	if barangayCode == "" {
		return nil, fmt.Errorf("barangay_code is required")
	}

	key := ancestryKeyPrefix + barangayCode
	cached, err := r.kv.Get(ctx, key)
	if err == nil {
		var ancestry domain.GeoAncestry
		if err := json.Unmarshal([]byte(cached), &ancestry); err == nil {
			return &ancestry, nil
		}
		// corrupt entry: refetch and overwrite below
	} else if !errors.Is(err, store.ErrMiss) {
		r.logger.Warn("Ancestry cache read failed",
			zap.String("barangay_code", barangayCode),
			zap.Error(err),
		)
	}

	ancestry, err := r.psgc.GetAncestry(ctx, barangayCode)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBrokenGeoChain):
			metrics.GeoResolutions.WithLabelValues("broken_chain").Inc()
		case errors.Is(err, sql.ErrNoRows):
			metrics.GeoResolutions.WithLabelValues("unknown").Inc()
		}
		// unknown barangay and broken chain pass through unchanged so
		// the service layer can tell them apart
		return nil, err
	}
	metrics.GeoResolutions.WithLabelValues("ok").Inc()

	if jsonBytes, err := json.Marshal(ancestry); err == nil {
		if err := r.kv.Set(ctx, key, string(jsonBytes), ancestryTTL); err != nil {
			r.logger.Warn("Ancestry cache write failed",
				zap.String("barangay_code", barangayCode),
				zap.Error(err),
			)
		}
	}

	return ancestry, nil
}

// Invalidate drops every cached chain. The import commands call this
// after loading a new PSA publication.
func (r *ChainResolver) Invalidate(ctx context.Context) error {
	keys, err := r.kv.ScanKeys(ctx, ancestryKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to scan ancestry cache keys: %w", err)
	}

	for _, key := range keys {
		if err := r.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete ancestry cache key %s: %w", key, err)
		}
	}

	if len(keys) > 0 {
		r.logger.Info("Invalidated ancestry cache", zap.Int("keys", len(keys)))
	}
	return nil
}
