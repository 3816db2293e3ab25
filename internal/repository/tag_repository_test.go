package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagRepositoryCountMatches(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY t.name")).
		WithArgs(pq.Array([]string{"council", "ghost"})).
		WillReturnRows(sqlmock.NewRows([]string{"name", "match_count"}).AddRow("council", 3))

	out, err := NewTagRepository(db).CountMatches(context.Background(), []string{"council", "ghost"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "council", out[0].Name)
	assert.Equal(t, 3, out[0].Count)
}

func TestTagRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM tags ORDER BY name")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "created_at"}).
			AddRow("t1", "budget", "budget", time.Now()).
			AddRow("t2", "council", "council", time.Now()))

	out, err := NewTagRepository(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "budget", out[0].Name)
}

func TestLocationRepositoryFindByNaturalKey(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM locations WHERE city = $1 AND zip_code = $2 AND address = $3")).
		WithArgs("Berlin", "10115", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "city", "zip_code", "address", "latitude", "longitude", "created_at"}).
			AddRow("loc-1", "Berlin", "10115", "", 52.5, 13.4, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM locations WHERE city = $1")).
		WithArgs("Hamburg", "20095", "").
		WillReturnError(sql.ErrNoRows)

	repo := NewLocationRepository(db)
	loc, err := repo.FindByNaturalKey(context.Background(), " Berlin ", "10115", "")
	require.NoError(t, err)
	assert.Equal(t, 52.5, loc.Latitude)

	_, err = repo.FindByNaturalKey(context.Background(), "Hamburg", "20095", "")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
