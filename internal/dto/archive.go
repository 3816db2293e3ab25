package dto

import (
	"time"

	"github.com/noah-isme/civic-archive-api/internal/models"
)

// UploadRequest is the multipart metadata submitted with a file.
// User is accepted for compatibility and ignored: the owner always comes from the token.
type UploadRequest struct {
	Location string `form:"location" json:"location" validate:"required,max=255"`
	ZipCode  string `form:"zip_code" json:"zip_code" validate:"required,max=32"`
	Address  string `form:"address" json:"address" validate:"omitempty,max=255"`
	Link     string `form:"link" json:"link" validate:"required,max=2048"`
	Tags     string `form:"tags" json:"tags" validate:"required,max=1024"`
	User     string `form:"user" json:"user"`
}

// UpdateEntryRequest covers both full (PUT) and partial (PATCH) updates.
// Nil fields are left untouched on PATCH; PUT requires all of them.
type UpdateEntryRequest struct {
	User     *string `json:"user"`
	Location *string `json:"location" validate:"omitempty,max=255"`
	ZipCode  *string `json:"zip_code" validate:"omitempty,max=32"`
	Address  *string `json:"address" validate:"omitempty,max=255"`
	Link     *string `json:"link" validate:"omitempty,max=2048"`
	Tags     *string `json:"tags" validate:"omitempty,max=1024"`
}

// ListEntriesQuery captures pagination parameters.
type ListEntriesQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// LocationResponse is the public view of a location.
type LocationResponse struct {
	ID        string  `json:"id"`
	City      string  `json:"city"`
	ZipCode   string  `json:"zip_code"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LinkResponse is the public view of a link.
type LinkResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// TagResponse is the public view of a tag.
type TagResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// EntryResponse is the output shape of an archive entry.
type EntryResponse struct {
	ID           string           `json:"id"`
	User         string           `json:"user"`
	OriginalName string           `json:"original_name,omitempty"`
	MimeType     string           `json:"mime_type"`
	SizeBytes    int64            `json:"size_bytes"`
	Category     string           `json:"category"`
	Location     LocationResponse `json:"location"`
	Link         LinkResponse     `json:"link"`
	Tags         []TagResponse    `json:"tags"`
	HasThumbnail bool             `json:"has_thumbnail"`
	DownloadURL  string           `json:"download_url,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// TagSearchRequest carries a comma separated list of terms.
type TagSearchRequest struct {
	SearchTag string `json:"search_tag" validate:"required"`
}

// TagSearchResponse maps each unmatched term to a notice and "search_results" to the hits.
type TagSearchResponse map[string]interface{}

// SearchResultsKey is the aggregate key of a TagSearchResponse.
const SearchResultsKey = "search_results"

// NoMatchNotice is recorded for every term without results.
const NoMatchNotice = "No matches for this search term"

// ExportQuery selects the export format and size.
type ExportQuery struct {
	Format string `form:"format"`
	Limit  int    `form:"limit"`
}

// NewEntryResponse maps a stored entry to its output shape.
func NewEntryResponse(entry *models.ArchiveEntryDetail) EntryResponse {
	tagsOut := make([]TagResponse, 0, len(entry.Tags))
	for _, t := range entry.Tags {
		tagsOut = append(tagsOut, TagResponse{ID: t.ID, Name: t.Name, Slug: t.Slug})
	}
	return EntryResponse{
		ID:           entry.ID,
		User:         entry.UserID,
		OriginalName: entry.OriginalName,
		MimeType:     entry.MimeType,
		SizeBytes:    entry.SizeBytes,
		Category:     entry.Category,
		Location: LocationResponse{
			ID:        entry.Location.ID,
			City:      entry.Location.City,
			ZipCode:   entry.Location.ZipCode,
			Address:   entry.Location.Address,
			Latitude:  entry.Location.Latitude,
			Longitude: entry.Location.Longitude,
		},
		Link:         LinkResponse{ID: entry.Link.ID, URL: entry.Link.URL},
		Tags:         tagsOut,
		HasThumbnail: entry.ThumbnailPath != nil && *entry.ThumbnailPath != "",
		CreatedAt:    entry.CreatedAt,
		UpdatedAt:    entry.UpdatedAt,
	}
}
