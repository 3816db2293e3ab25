package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/civic-archive-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var entryColumns = []string{
	"id", "user_id", "file_path", "original_name", "mime_type", "size_bytes", "category",
	"location_id", "link_id", "thumbnail_path", "created_at", "updated_at",
	"loc_city", "loc_zip_code", "loc_address", "loc_latitude", "loc_longitude", "loc_created_at",
	"link_url", "link_created_at",
}

func entryRowValues(id string, created time.Time) []driver.Value {
	return []driver.Value{
		id, "user-1", "document/2024/05/" + id + ".pdf", "minutes.pdf", "application/pdf", int64(2048), "document",
		"loc-1", "link-1", nil, created, created,
		"Berlin", "10115", "Invalidenstr. 1", 52.53, 13.38, created,
		"https://example.org", created,
	}
}

func TestArchiveRepositoryCreateUsesOneTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)INSERT INTO locations .*ON CONFLICT \(city, zip_code, address\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "latitude", "longitude", "created_at"}).AddRow("loc-existing", 52.53, 13.38, now))
	mock.ExpectQuery(`(?s)INSERT INTO links .*ON CONFLICT \(url\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("link-existing", now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO archive_entries")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tags")).
		WithArgs(sqlmock.AnyArg(), "council", "council", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "created_at"}).AddRow("tag-1", "council", "council", now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tags")).
		WithArgs(sqlmock.AnyArg(), "budget 2024", "budget-2024", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "created_at"}).AddRow("tag-2", "budget 2024", "budget-2024", now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO entry_tags")).WithArgs(sqlmock.AnyArg(), "tag-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO entry_tags")).WithArgs(sqlmock.AnyArg(), "tag-2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry := &models.ArchiveEntryDetail{
		ArchiveEntry: models.ArchiveEntry{UserID: "user-1", FilePath: "document/a.pdf", Category: "document"},
		Location:     models.Location{City: "Berlin", ZipCode: "10115", Address: "Invalidenstr. 1", Latitude: 52.53, Longitude: 13.38},
		Link:         models.Link{URL: "https://example.org"},
	}
	repo := NewArchiveRepository(db)
	require.NoError(t, repo.Create(context.Background(), entry, []string{"council", "budget 2024"}))

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "loc-existing", entry.LocationID)
	assert.Equal(t, "link-existing", entry.LinkID)
	require.Len(t, entry.Tags, 2)
	assert.Equal(t, "budget-2024", entry.Tags[1].Slug)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryCreateRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO locations")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "latitude", "longitude", "created_at"}).AddRow("loc-1", 1.0, 2.0, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO links")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	entry := &models.ArchiveEntryDetail{Link: models.Link{URL: "https://example.org"}}
	err := NewArchiveRepository(db).Create(context.Background(), entry, []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert link")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryGetByIDLoadsTags(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM archive_entries e")).
		WithArgs("entry-1").
		WillReturnRows(sqlmock.NewRows(entryColumns).AddRow(entryRowValues("entry-1", now)...))
	mock.ExpectQuery(regexp.QuoteMeta("FROM entry_tags et JOIN tags t")).
		WithArgs(pq.Array([]string{"entry-1"})).
		WillReturnRows(sqlmock.NewRows([]string{"entry_id", "id", "name", "slug", "created_at"}).
			AddRow("entry-1", "tag-1", "council", "council", now))

	found, err := NewArchiveRepository(db).GetByID(context.Background(), "entry-1")
	require.NoError(t, err)
	assert.Equal(t, "Berlin", found.Location.City)
	assert.Equal(t, "loc-1", found.Location.ID)
	assert.Equal(t, "https://example.org", found.Link.URL)
	require.Len(t, found.Tags, 1)
	assert.Equal(t, "council", found.Tags[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM archive_entries e")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := NewArchiveRepository(db).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestArchiveRepositoryListReturnsTotal(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(`ORDER BY e.created_at DESC, e.id LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow(entryRowValues("entry-2", now)...).
			AddRow(entryRowValues("entry-1", now.Add(-time.Hour))...))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM archive_entries")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta("FROM entry_tags et JOIN tags t")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"entry_id", "id", "name", "slug", "created_at"}))

	items, total, err := NewArchiveRepository(db).List(context.Background(), models.EntryFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, items, 2)
	assert.Equal(t, "entry-2", items[0].ID)
	assert.NotNil(t, items[1].Tags)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryUpdateReplacesTags(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO locations")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "latitude", "longitude", "created_at"}).AddRow("loc-1", 1.0, 2.0, now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO links")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("link-1", now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE archive_entries SET location_id")).
		WithArgs("entry-1", "loc-1", "link-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM entry_tags")).
		WithArgs("entry-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tags")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "created_at"}).AddRow("tag-9", "parks", "parks", now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO entry_tags")).WithArgs("entry-1", "tag-9").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry := &models.ArchiveEntryDetail{ArchiveEntry: models.ArchiveEntry{ID: "entry-1"}}
	require.NoError(t, NewArchiveRepository(db).Update(context.Background(), entry, []string{"parks"}))
	require.Len(t, entry.Tags, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryUpdateMissingEntry(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO locations")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "latitude", "longitude", "created_at"}).AddRow("loc-1", 1.0, 2.0, now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO links")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("link-1", now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE archive_entries SET location_id")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	entry := &models.ArchiveEntryDetail{ArchiveEntry: models.ArchiveEntry{ID: "gone"}}
	err := NewArchiveRepository(db).Update(context.Background(), entry, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryDeleteReturnsPaths(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	thumb := "image/2024/05/x.png.thumb.jpg"
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM archive_entries WHERE id = $1 RETURNING")).
		WithArgs("entry-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "file_path", "thumbnail_path"}).
			AddRow("entry-1", "user-1", "image/2024/05/x.png", thumb))
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM archive_entries WHERE id = $1 RETURNING")).
		WithArgs("entry-1").
		WillReturnError(sql.ErrNoRows)

	repo := NewArchiveRepository(db)
	removed, err := repo.Delete(context.Background(), "entry-1")
	require.NoError(t, err)
	assert.Equal(t, "image/2024/05/x.png", removed.FilePath)
	require.NotNil(t, removed.ThumbnailPath)
	assert.Equal(t, thumb, *removed.ThumbnailPath)

	_, err = repo.Delete(context.Background(), "entry-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositorySearchByTags(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE t.name = ANY($1)")).
		WithArgs(pq.Array([]string{"council"})).
		WillReturnRows(sqlmock.NewRows(entryColumns).AddRow(entryRowValues("entry-1", now)...))
	mock.ExpectQuery(regexp.QuoteMeta("FROM entry_tags et JOIN tags t")).
		WillReturnRows(sqlmock.NewRows([]string{"entry_id", "id", "name", "slug", "created_at"}).
			AddRow("entry-1", "tag-1", "council", "council", now))

	repo := NewArchiveRepository(db)
	items, err := repo.SearchByTags(context.Background(), []string{"council"})
	require.NoError(t, err)
	require.Len(t, items, 1)

	empty, err := repo.SearchByTags(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositorySetThumbnailMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE archive_entries SET thumbnail_path")).
		WithArgs("gone", "k.thumb.jpg").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewArchiveRepository(db).SetThumbnail(context.Background(), "gone", "k.thumb.jpg")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
