package models

import "time"

// Location is a geocoded place shared by entries through its natural key
// (city, zip code, address).
type Location struct {
	ID        string    `db:"id" json:"id"`
	City      string    `db:"city" json:"city"`
	ZipCode   string    `db:"zip_code" json:"zip_code"`
	Address   string    `db:"address" json:"address"`
	Latitude  float64   `db:"latitude" json:"latitude"`
	Longitude float64   `db:"longitude" json:"longitude"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Link is a validated URL shared by entries.
type Link struct {
	ID        string    `db:"id" json:"id"`
	URL       string    `db:"url" json:"url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Tag is a normalized label.
type Tag struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}

// ArchiveEntry is one uploaded file row.
type ArchiveEntry struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	FilePath      string    `db:"file_path" json:"file_path"`
	OriginalName  string    `db:"original_name" json:"original_name"`
	MimeType      string    `db:"mime_type" json:"mime_type"`
	SizeBytes     int64     `db:"size_bytes" json:"size_bytes"`
	Category      string    `db:"category" json:"category"`
	LocationID    string    `db:"location_id" json:"location_id"`
	LinkID        string    `db:"link_id" json:"link_id"`
	ThumbnailPath *string   `db:"thumbnail_path" json:"thumbnail_path,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ArchiveEntryDetail is an entry with its location, link and tags resolved.
type ArchiveEntryDetail struct {
	ArchiveEntry
	Location Location
	Link     Link
	Tags     []Tag
}

// EntryFilter bounds list queries.
type EntryFilter struct {
	UserID string
	Limit  int
	Offset int
}

// TagMatch counts the entries carrying a tag.
type TagMatch struct {
	Name  string `db:"name"`
	Count int    `db:"match_count"`
}

// Comment is free text attached to an entry.
type Comment struct {
	ID        string    `db:"id" json:"id"`
	EntryID   string    `db:"entry_id" json:"entry_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Text      string    `db:"text" json:"text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Bookmark is a user's saved reference to an entry.
type Bookmark struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	EntryID   string    `db:"entry_id" json:"entry_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
