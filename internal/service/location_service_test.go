package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/civic-archive-api/internal/models"
	appErrors "github.com/noah-isme/civic-archive-api/pkg/errors"
	"github.com/noah-isme/civic-archive-api/pkg/geocode"
)

type locationLookupStub struct {
	known *models.Location
	err   error
}

func (l *locationLookupStub) FindByNaturalKey(ctx context.Context, city, zipCode, address string) (*models.Location, error) {
	if l.err != nil {
		return nil, l.err
	}
	if l.known != nil && l.known.City == city && l.known.ZipCode == zipCode && l.known.Address == address {
		return l.known, nil
	}
	return nil, sql.ErrNoRows
}

type geocoderStub struct {
	coords  geocode.Coordinates
	err     error
	queries []string
}

func (g *geocoderStub) Geocode(ctx context.Context, query string) (geocode.Coordinates, error) {
	g.queries = append(g.queries, query)
	return g.coords, g.err
}

type memCacheRepo struct {
	values map[string][]byte
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{values: make(map[string][]byte)}
}

func (m *memCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memCacheRepo) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			delete(m.values, k)
		}
	}
	return nil
}

func TestLocationResolverReusesKnownTriple(t *testing.T) {
	known := &models.Location{ID: "loc-1", City: "Berlin", ZipCode: "10115", Address: "Invalidenstr. 1"}
	geo := &geocoderStub{}
	resolver := NewLocationResolver(&locationLookupStub{known: known}, geo, nil, 0, nil, zap.NewNop())

	loc, err := resolver.Resolve(context.Background(), " Berlin", "10115 ", "Invalidenstr. 1")
	require.NoError(t, err)
	assert.Equal(t, "loc-1", loc.ID)
	assert.Empty(t, geo.queries)
}

func TestLocationResolverGeocodesAndCaches(t *testing.T) {
	geo := &geocoderStub{coords: geocode.Coordinates{Latitude: 53.55, Longitude: 9.99}}
	cache := NewCacheService(newMemCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	resolver := NewLocationResolver(&locationLookupStub{}, geo, cache, time.Hour, nil, zap.NewNop())

	loc, err := resolver.Resolve(context.Background(), "Hamburg", "20095", "")
	require.NoError(t, err)
	assert.Empty(t, loc.ID)
	assert.InDelta(t, 53.55, loc.Latitude, 0.0001)

	_, err = resolver.Resolve(context.Background(), "Hamburg", "20095", "")
	require.NoError(t, err)
	assert.Len(t, geo.queries, 1)
	assert.Equal(t, geocode.ComposeAddress("", "20095", "Hamburg"), geo.queries[0])
}

func TestLocationResolverErrors(t *testing.T) {
	resolver := NewLocationResolver(&locationLookupStub{}, &geocoderStub{err: geocode.ErrNotFound}, nil, 0, nil, nil)
	_, err := resolver.Resolve(context.Background(), "Nowhere", "00000", "")
	assert.ErrorIs(t, err, appErrors.ErrAddressNotFound)

	resolver = NewLocationResolver(&locationLookupStub{}, &geocoderStub{err: errors.New("timeout")}, nil, 0, nil, nil)
	_, err = resolver.Resolve(context.Background(), "Berlin", "10115", "")
	assert.ErrorIs(t, err, appErrors.ErrGeocoderUnavailable)

	resolver = NewLocationResolver(&locationLookupStub{err: errors.New("db down")}, &geocoderStub{}, nil, 0, nil, nil)
	_, err = resolver.Resolve(context.Background(), "Berlin", "10115", "")
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newMemCacheRepo()
	cache := NewCacheService(repo, nil, 0, nil, false)

	require.NoError(t, cache.Set(context.Background(), cacheKeyTags, []string{"a"}, 0))
	var out []string
	hit, err := cache.Get(context.Background(), cacheKeyTags, &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, repo.values)

	var nilCache *CacheService
	hit, _ = nilCache.Get(context.Background(), cacheKeyTags, &out)
	assert.False(t, hit)
	assert.NoError(t, nilCache.Delete(context.Background(), cacheKeyTags))
}

func TestListTagsUsesCache(t *testing.T) {
	f := newArchiveFixture(t, linkStub{})
	f.svc.deps.Cache = NewCacheService(newMemCacheRepo(), NewMetricsService(), time.Minute, zap.NewNop(), true)
	f.tags.tags = []models.Tag{{ID: "t1", Name: "budget", Slug: "budget"}}

	first, hit, err := f.svc.ListTags(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	second, hit, err := f.svc.ListTags(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.tags.calls)

	_, err = f.svc.Upload(context.Background(), validUpload(), pngFile(), &models.JWTClaims{UserID: ownerID})
	require.NoError(t, err)
	_, hit, err = f.svc.ListTags(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
}
