package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/civic-archive-api/internal/models"
	appErrors "github.com/noah-isme/civic-archive-api/pkg/errors"
	"github.com/noah-isme/civic-archive-api/pkg/geocode"
)

type locationLookup interface {
	FindByNaturalKey(ctx context.Context, city, zipCode, address string) (*models.Location, error)
}

type addressGeocoder interface {
	Geocode(ctx context.Context, query string) (geocode.Coordinates, error)
}

// LocationResolver turns a (city, zip, address) triple into a location with coordinates.
// Known triples are reused without calling the geocoder.
type LocationResolver struct {
	repo     locationLookup
	geocoder addressGeocoder
	cache    *CacheService
	cacheTTL time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewLocationResolver wires the resolver. cache and metrics may be nil.
func NewLocationResolver(repo locationLookup, geocoder addressGeocoder, cache *CacheService, cacheTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *LocationResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &LocationResolver{repo: repo, geocoder: geocoder, cache: cache, cacheTTL: cacheTTL, metrics: metrics, logger: logger}
}

// Resolve returns the stored location for the triple or a new, unsaved one
// carrying freshly geocoded coordinates.
func (r *LocationResolver) Resolve(ctx context.Context, city, zipCode, address string) (models.Location, error) {
	city = strings.TrimSpace(city)
	zipCode = strings.TrimSpace(zipCode)
	address = strings.TrimSpace(address)

	existing, err := r.repo.FindByNaturalKey(ctx, city, zipCode, address)
	if err == nil {
		return *existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Location{}, appErrors.Internal(err, "failed to look up location")
	}

	coords, err := r.coordinates(ctx, geocode.ComposeAddress(address, zipCode, city))
	if err != nil {
		return models.Location{}, err
	}
	return models.Location{
		City:      city,
		ZipCode:   zipCode,
		Address:   address,
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
	}, nil
}

func (r *LocationResolver) coordinates(ctx context.Context, query string) (geocode.Coordinates, error) {
	key := geocodeCacheKey(query)
	var cached geocode.Coordinates
	if hit, _ := r.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	start := time.Now()
	coords, err := r.geocoder.Geocode(ctx, query)
	switch {
	case err == nil:
		r.metrics.ObserveGeocode("found", time.Since(start))
	case errors.Is(err, geocode.ErrNotFound):
		r.metrics.ObserveGeocode("not_found", time.Since(start))
		return geocode.Coordinates{}, appErrors.Wrap(err, appErrors.ErrAddressNotFound.Code, appErrors.ErrAddressNotFound.Status, appErrors.ErrAddressNotFound.Message)
	default:
		r.metrics.ObserveGeocode("error", time.Since(start))
		r.logger.Warn("geocoder failed", zap.String("query", query), zap.Error(err))
		return geocode.Coordinates{}, appErrors.Wrap(err, appErrors.ErrGeocoderUnavailable.Code, appErrors.ErrGeocoderUnavailable.Status, appErrors.ErrGeocoderUnavailable.Message)
	}

	_ = r.cache.Set(ctx, key, coords, r.cacheTTL)
	return coords, nil
}

func geocodeCacheKey(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(query)))
	return cacheKeyGeocodePrefix + hex.EncodeToString(sum[:])
}
