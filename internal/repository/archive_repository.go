package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/civic-archive-api/internal/models"
)

// ArchiveRepository persists archive entries together with their location, link and tags.
type ArchiveRepository struct {
	db *sqlx.DB
}

// NewArchiveRepository constructs the repository.
func NewArchiveRepository(db *sqlx.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

const selectEntries = `SELECT e.id, e.user_id, e.file_path, e.original_name, e.mime_type, e.size_bytes, e.category,
       e.location_id, e.link_id, e.thumbnail_path, e.created_at, e.updated_at,
       loc.city AS loc_city, loc.zip_code AS loc_zip_code, loc.address AS loc_address,
       loc.latitude AS loc_latitude, loc.longitude AS loc_longitude, loc.created_at AS loc_created_at,
       lk.url AS link_url, lk.created_at AS link_created_at
	FROM archive_entries e
	JOIN locations loc ON loc.id = e.location_id
	JOIN links lk ON lk.id = e.link_id`

type entryRow struct {
	models.ArchiveEntry
	LocCity       string    `db:"loc_city"`
	LocZipCode    string    `db:"loc_zip_code"`
	LocAddress    string    `db:"loc_address"`
	LocLatitude   float64   `db:"loc_latitude"`
	LocLongitude  float64   `db:"loc_longitude"`
	LocCreatedAt  time.Time `db:"loc_created_at"`
	LinkURL       string    `db:"link_url"`
	LinkCreatedAt time.Time `db:"link_created_at"`
}

func (r entryRow) detail() models.ArchiveEntryDetail {
	return models.ArchiveEntryDetail{
		ArchiveEntry: r.ArchiveEntry,
		Location: models.Location{
			ID:        r.LocationID,
			City:      r.LocCity,
			ZipCode:   r.LocZipCode,
			Address:   r.LocAddress,
			Latitude:  r.LocLatitude,
			Longitude: r.LocLongitude,
			CreatedAt: r.LocCreatedAt,
		},
		Link: models.Link{ID: r.LinkID, URL: r.LinkURL, CreatedAt: r.LinkCreatedAt},
		Tags: []models.Tag{},
	}
}

// Create stores a new entry in one transaction: location and link are
// created or reused by natural key, tags are created or reused by name.
func (r *ArchiveRepository) Create(ctx context.Context, entry *models.ArchiveEntryDetail, tagNames []string) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = entry.CreatedAt

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := upsertLocation(ctx, tx, &entry.Location); err != nil {
			return err
		}
		if err := upsertLink(ctx, tx, &entry.Link); err != nil {
			return err
		}
		entry.LocationID = entry.Location.ID
		entry.LinkID = entry.Link.ID

		const query = `INSERT INTO archive_entries
	(id, user_id, file_path, original_name, mime_type, size_bytes, category, location_id, link_id, thumbnail_path, created_at, updated_at)
	VALUES (:id, :user_id, :file_path, :original_name, :mime_type, :size_bytes, :category, :location_id, :link_id, :thumbnail_path, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, &entry.ArchiveEntry); err != nil {
			return fmt.Errorf("create archive entry: %w", err)
		}

		tagRows, err := upsertTags(ctx, tx, tagNames)
		if err != nil {
			return err
		}
		if err := linkTags(ctx, tx, entry.ID, tagRows); err != nil {
			return err
		}
		entry.Tags = tagRows
		return nil
	})
}

// Update re-points an entry at its (possibly new) location and link and,
// when tagNames is non-nil, replaces its tag set. The owner never changes.
func (r *ArchiveRepository) Update(ctx context.Context, entry *models.ArchiveEntryDetail, tagNames []string) error {
	entry.UpdatedAt = time.Now().UTC()
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := upsertLocation(ctx, tx, &entry.Location); err != nil {
			return err
		}
		if err := upsertLink(ctx, tx, &entry.Link); err != nil {
			return err
		}
		entry.LocationID = entry.Location.ID
		entry.LinkID = entry.Link.ID

		const query = `UPDATE archive_entries SET location_id = $2, link_id = $3, updated_at = $4 WHERE id = $1`
		res, err := tx.ExecContext(ctx, query, entry.ID, entry.LocationID, entry.LinkID, entry.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update archive entry: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("check archive update rows: %w", err)
		}
		if affected == 0 {
			return sql.ErrNoRows
		}

		if tagNames == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM entry_tags WHERE entry_id = $1`, entry.ID); err != nil {
			return fmt.Errorf("clear entry tags: %w", err)
		}
		tagRows, err := upsertTags(ctx, tx, tagNames)
		if err != nil {
			return err
		}
		if err := linkTags(ctx, tx, entry.ID, tagRows); err != nil {
			return err
		}
		entry.Tags = tagRows
		return nil
	})
}

// GetByID retrieves one entry with its relations.
func (r *ArchiveRepository) GetByID(ctx context.Context, id string) (*models.ArchiveEntryDetail, error) {
	var row entryRow
	if err := r.db.GetContext(ctx, &row, selectEntries+` WHERE e.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get archive entry: %w", err)
	}
	out, err := r.attachTags(ctx, []entryRow{row})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// List returns entries newest first along with the total count.
func (r *ArchiveRepository) List(ctx context.Context, filter models.EntryFilter) ([]models.ArchiveEntryDetail, int, error) {
	args := []interface{}{filter.Limit, filter.Offset}
	where := ""
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = " WHERE e.user_id = $3"
	}

	var rows []entryRow
	query := selectEntries + where + ` ORDER BY e.created_at DESC, e.id LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list archive entries: %w", err)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM archive_entries`
	countArgs := []interface{}{}
	if filter.UserID != "" {
		countQuery += ` WHERE user_id = $1`
		countArgs = append(countArgs, filter.UserID)
	}
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count archive entries: %w", err)
	}

	out, err := r.attachTags(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// SearchByTags returns distinct entries carrying any of the names, newest first.
func (r *ArchiveRepository) SearchByTags(ctx context.Context, names []string) ([]models.ArchiveEntryDetail, error) {
	if len(names) == 0 {
		return []models.ArchiveEntryDetail{}, nil
	}
	query := selectEntries + ` WHERE e.id IN (
		SELECT et.entry_id FROM entry_tags et JOIN tags t ON t.id = et.tag_id WHERE t.name = ANY($1)
	) ORDER BY e.created_at DESC, e.id`
	var rows []entryRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(names)); err != nil {
		return nil, fmt.Errorf("search archive entries by tags: %w", err)
	}
	return r.attachTags(ctx, rows)
}

// Delete removes the entry and returns the removed row so stored files can be
// released. Comments, bookmarks and tag links cascade in the database.
func (r *ArchiveRepository) Delete(ctx context.Context, id string) (*models.ArchiveEntry, error) {
	const query = `DELETE FROM archive_entries WHERE id = $1 RETURNING id, user_id, file_path, thumbnail_path`
	var removed models.ArchiveEntry
	if err := r.db.QueryRowxContext(ctx, query, id).Scan(&removed.ID, &removed.UserID, &removed.FilePath, &removed.ThumbnailPath); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("delete archive entry: %w", err)
	}
	return &removed, nil
}

// SetThumbnail records the preview key. Missing entries yield sql.ErrNoRows.
func (r *ArchiveRepository) SetThumbnail(ctx context.Context, id, key string) error {
	const query = `UPDATE archive_entries SET thumbnail_path = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, key)
	if err != nil {
		return fmt.Errorf("set thumbnail: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check thumbnail rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *ArchiveRepository) attachTags(ctx context.Context, rows []entryRow) ([]models.ArchiveEntryDetail, error) {
	out := make([]models.ArchiveEntryDetail, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, len(rows))
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		out[i] = row.detail()
		ids[i] = row.ID
		index[row.ID] = i
	}

	const query = `SELECT et.entry_id, t.id, t.name, t.slug, t.created_at
	FROM entry_tags et JOIN tags t ON t.id = et.tag_id
	WHERE et.entry_id = ANY($1)
	ORDER BY t.name`
	var tagRows []struct {
		EntryID string `db:"entry_id"`
		models.Tag
	}
	if err := r.db.SelectContext(ctx, &tagRows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load entry tags: %w", err)
	}
	for _, tr := range tagRows {
		if i, ok := index[tr.EntryID]; ok {
			out[i].Tags = append(out[i].Tags, tr.Tag)
		}
	}
	return out, nil
}
