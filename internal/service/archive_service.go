package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/civic-archive-api/internal/dto"
	"github.com/noah-isme/civic-archive-api/internal/models"
	appErrors "github.com/noah-isme/civic-archive-api/pkg/errors"
	"github.com/noah-isme/civic-archive-api/pkg/linkcheck"
	"github.com/noah-isme/civic-archive-api/pkg/mediatype"
	"github.com/noah-isme/civic-archive-api/pkg/storage"
	"github.com/noah-isme/civic-archive-api/pkg/tags"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
	cleanupTimeout   = 30 * time.Second
)

type archiveRepository interface {
	Create(ctx context.Context, entry *models.ArchiveEntryDetail, tagNames []string) error
	Update(ctx context.Context, entry *models.ArchiveEntryDetail, tagNames []string) error
	GetByID(ctx context.Context, id string) (*models.ArchiveEntryDetail, error)
	List(ctx context.Context, filter models.EntryFilter) ([]models.ArchiveEntryDetail, int, error)
	SearchByTags(ctx context.Context, names []string) ([]models.ArchiveEntryDetail, error)
	Delete(ctx context.Context, id string) (*models.ArchiveEntry, error)
}

type tagRepository interface {
	List(ctx context.Context) ([]models.Tag, error)
	CountMatches(ctx context.Context, names []string) ([]models.TagMatch, error)
}

type locationResolver interface {
	Resolve(ctx context.Context, city, zipCode, address string) (models.Location, error)
}

type linkChecker interface {
	Check(ctx context.Context, rawURL string) linkcheck.Result
}

type downloadSigner interface {
	Generate(entryID, key string) (string, time.Time, error)
	Verify(token, entryID, key string) error
}

type thumbnailScheduler interface {
	Schedule(entryID, key string)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UploadFile is the file part of an upload.
type UploadFile struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// FileDownload is an open stored file ready to stream. Callers must Close it.
type FileDownload struct {
	Body        io.Reader
	Size        int64
	ContentType string
	Filename    string
	closer      io.Closer
}

// Close releases the underlying stored object.
func (d *FileDownload) Close() error {
	if d == nil || d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// ArchiveServiceConfig holds limits and URL settings.
type ArchiveServiceConfig struct {
	MaxFileSize int64
	APIPrefix   string
}

// ArchiveServiceDeps groups the optional collaborators of ArchiveService.
type ArchiveServiceDeps struct {
	Signer     downloadSigner
	Cache      *CacheService
	Audit      auditLogger
	Metrics    *MetricsService
	Thumbnails thumbnailScheduler
}

// ArchiveService runs the ingestion pipeline and the read, update and delete operations on entries.
type ArchiveService struct {
	repo      archiveRepository
	tags      tagRepository
	locations locationResolver
	links     linkChecker
	store     storage.Store
	deps      ArchiveServiceDeps
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ArchiveServiceConfig
	now       func() time.Time
}

// NewArchiveService constructs the service with defaults.
func NewArchiveService(repo archiveRepository, tagRepo tagRepository, locations locationResolver, links linkChecker, store storage.Store, deps ArchiveServiceDeps, logger *zap.Logger, cfg ArchiveServiceConfig) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 50 * 1024 * 1024
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api"
	}
	return &ArchiveService{
		repo:      repo,
		tags:      tagRepo,
		locations: locations,
		links:     links,
		store:     store,
		deps:      deps,
		validator: newValidator(),
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Upload ingests a new entry. Steps run in order and the first failure ends the
// request; once the file is stored every failure removes it again.
func (s *ArchiveService) Upload(ctx context.Context, req dto.UploadRequest, file UploadFile, actor *models.JWTClaims) (*dto.EntryResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validateUpload(req, file); err != nil {
		s.deps.Metrics.RecordIngestFailure(StageValidate)
		return nil, err
	}
	if err := s.checkLinkShape(req.Link); err != nil {
		s.deps.Metrics.RecordIngestFailure(StageLink)
		return nil, err
	}

	tagNames := tags.Normalize(req.Tags)

	info, body, err := mediatype.Sniff(file.Content)
	if err != nil {
		s.deps.Metrics.RecordIngestFailure(StageValidate)
		if errors.Is(err, mediatype.ErrEmpty) {
			return nil, appErrors.Validation(map[string]string{"file": "The submitted file is empty."})
		}
		return nil, appErrors.Validation(map[string]string{"file": "The submitted file could not be read."})
	}
	key := storage.NewKey(string(info.Category), info.Extension, s.now())
	if err := s.store.Save(ctx, key, body, file.Size); err != nil {
		s.deps.Metrics.RecordIngestFailure(StageStore)
		return nil, appErrors.Internal(err, "failed to store file")
	}

	committed := false
	defer func() {
		if !committed {
			s.releaseFiles(ctx, key)
		}
	}()

	location, err := s.locations.Resolve(ctx, req.Location, req.ZipCode, req.Address)
	if err != nil {
		s.deps.Metrics.RecordIngestFailure(StageGeocode)
		return nil, err
	}

	link := strings.TrimSpace(req.Link)
	if err := s.checkLink(ctx, link); err != nil {
		s.deps.Metrics.RecordIngestFailure(StageLink)
		return nil, err
	}

	entry := &models.ArchiveEntryDetail{
		ArchiveEntry: models.ArchiveEntry{
			UserID:       actor.UserID,
			FilePath:     key,
			OriginalName: cleanFilename(file.Filename),
			MimeType:     info.MIME,
			SizeBytes:    file.Size,
			Category:     string(info.Category),
		},
		Location: location,
		Link:     models.Link{URL: link},
	}
	if err := s.repo.Create(ctx, entry, tagNames); err != nil {
		s.deps.Metrics.RecordIngestFailure(StagePersist)
		return nil, appErrors.Internal(err, "failed to create archive entry")
	}
	committed = true

	s.deps.Metrics.RecordIngest(entry.Category)
	s.invalidateTags(ctx)
	s.emitAudit(ctx, actor, models.AuditActionEntryCreate, entry.ID, fmt.Sprintf(`{"file_path":%q,"category":%q}`, entry.FilePath, entry.Category))
	if entry.Category == string(mediatype.Image) && s.deps.Thumbnails != nil {
		s.deps.Thumbnails.Schedule(entry.ID, entry.FilePath)
	}

	resp := s.present(entry)
	return &resp, nil
}

// List returns entries newest first. limit defaults to 10 and is capped at 100.
func (s *ArchiveService) List(ctx context.Context, query dto.ListEntriesQuery) ([]dto.EntryResponse, *models.Pagination, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	items, total, err := s.repo.List(ctx, models.EntryFilter{Limit: limit, Offset: offset})
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list archive entries")
	}
	out := make([]dto.EntryResponse, 0, len(items))
	for i := range items {
		out = append(out, s.present(&items[i]))
	}
	return out, &models.Pagination{Limit: limit, Offset: offset, Count: total}, nil
}

// Get returns one entry.
func (s *ArchiveService) Get(ctx context.Context, id string) (*dto.EntryResponse, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.present(entry)
	return &resp, nil
}

// Update applies a full (partial=false) or partial update. The owner never
// changes: a submitted user differing from the stored owner is rejected.
func (s *ArchiveService) Update(ctx context.Context, id string, req dto.UpdateEntryRequest, partial bool, actor *models.JWTClaims) (*dto.EntryResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := validateStruct(s.validator, req); err != nil {
		return nil, err
	}
	if !partial {
		if err := requireFullUpdate(req); err != nil {
			return nil, err
		}
	}

	entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ownerGuard(req.User, entry.UserID, partial); err != nil {
		return nil, err
	}
	if !canModify(actor, entry.UserID) {
		return nil, appErrors.ErrForbidden
	}

	if req.Location != nil || req.ZipCode != nil || req.Address != nil {
		city := valueOr(req.Location, entry.Location.City)
		zipCode := valueOr(req.ZipCode, entry.Location.ZipCode)
		address := valueOr(req.Address, entry.Location.Address)
		if strings.TrimSpace(city) == "" || strings.TrimSpace(zipCode) == "" {
			return nil, appErrors.Validation(map[string]string{"location": "City and zip code cannot be blank."})
		}
		location, err := s.locations.Resolve(ctx, city, zipCode, address)
		if err != nil {
			return nil, err
		}
		entry.Location = location
	}

	if req.Link != nil {
		link := strings.TrimSpace(*req.Link)
		if err := s.checkLinkShape(link); err != nil {
			return nil, err
		}
		if err := s.checkLink(ctx, link); err != nil {
			return nil, err
		}
		entry.Link = models.Link{URL: link}
	}

	var tagNames []string
	if req.Tags != nil {
		tagNames = tags.Normalize(*req.Tags)
		if tagNames == nil {
			tagNames = []string{}
		}
	}

	if err := s.repo.Update(ctx, entry, tagNames); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Internal(err, "failed to update archive entry")
	}

	s.invalidateTags(ctx)
	s.emitAudit(ctx, actor, models.AuditActionEntryUpdate, entry.ID, "")
	resp := s.present(entry)
	return &resp, nil
}

// Delete removes an entry and releases its stored files. A missing entry is
// reported as not found; every other failure is internal.
func (s *ArchiveService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	entry, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(actor, entry.UserID) {
		return appErrors.ErrForbidden
	}

	removed, err := s.repo.Delete(ctx, entry.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Internal(err, "failed to delete archive entry")
	}

	keys := []string{removed.FilePath}
	if removed.ThumbnailPath != nil && *removed.ThumbnailPath != "" {
		keys = append(keys, *removed.ThumbnailPath)
	}
	s.releaseFiles(ctx, keys...)
	s.invalidateTags(ctx)
	s.emitAudit(ctx, actor, models.AuditActionEntryDelete, entry.ID, fmt.Sprintf(`{"file_path":%q}`, removed.FilePath))
	return nil
}

// SearchByTags partitions the normalized terms into those without matches,
// reported individually, and those that match, queried together.
func (s *ArchiveService) SearchByTags(ctx context.Context, req dto.TagSearchRequest) (dto.TagSearchResponse, error) {
	if err := validateStruct(s.validator, req); err != nil {
		return nil, err
	}
	terms := tags.Normalize(req.SearchTag)
	if len(terms) == 0 {
		return nil, appErrors.Validation(map[string]string{"search_tag": "Provide at least one search term."})
	}

	counts, err := s.tags.CountMatches(ctx, terms)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to search tags")
	}
	matched := make(map[string]bool, len(counts))
	for _, m := range counts {
		if m.Count > 0 {
			matched[m.Name] = true
		}
	}

	out := dto.TagSearchResponse{}
	active := make([]string, 0, len(terms))
	for _, term := range terms {
		if matched[term] {
			active = append(active, term)
			continue
		}
		out[term] = dto.NoMatchNotice
	}

	results := []dto.EntryResponse{}
	if len(active) > 0 {
		entries, err := s.repo.SearchByTags(ctx, active)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to search archive entries")
		}
		for i := range entries {
			results = append(results, s.present(&entries[i]))
		}
	}
	out[dto.SearchResultsKey] = results
	return out, nil
}

// ListTags returns every tag ordered by name. The second value reports a cache hit.
func (s *ArchiveService) ListTags(ctx context.Context) ([]dto.TagResponse, bool, error) {
	var cached []dto.TagResponse
	if hit, _ := s.deps.Cache.Get(ctx, cacheKeyTags, &cached); hit {
		return cached, true, nil
	}

	list, err := s.tags.List(ctx)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to list tags")
	}
	out := make([]dto.TagResponse, 0, len(list))
	for _, t := range list {
		out = append(out, dto.TagResponse{ID: t.ID, Name: t.Name, Slug: t.Slug})
	}
	_ = s.deps.Cache.Set(ctx, cacheKeyTags, out, 0)
	return out, false, nil
}

// Download opens the stored file. Anonymous callers need a valid signed token
// for this entry. The content type is sniffed from the stored bytes.
func (s *ArchiveService) Download(ctx context.Context, id, token string, actor *models.JWTClaims) (*FileDownload, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		if token == "" || s.deps.Signer == nil {
			return nil, appErrors.ErrUnauthorized
		}
		if err := s.deps.Signer.Verify(token, entry.ID, entry.FilePath); err != nil {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
		}
	}

	rc, size, err := s.open(ctx, entry.FilePath)
	if err != nil {
		return nil, err
	}
	info, body, err := mediatype.Sniff(rc)
	if err != nil {
		if !errors.Is(err, mediatype.ErrEmpty) {
			rc.Close() //nolint:errcheck
			return nil, appErrors.Internal(err, "failed to read stored file")
		}
		info = mediatype.Info{MIME: "application/octet-stream"}
		body = strings.NewReader("")
	}
	return &FileDownload{
		Body:        body,
		Size:        size,
		ContentType: info.MIME,
		Filename:    storage.BaseName(entry.FilePath),
		closer:      rc,
	}, nil
}

// Thumbnail opens the generated preview of an image entry.
func (s *ArchiveService) Thumbnail(ctx context.Context, id string) (*FileDownload, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.ThumbnailPath == nil || *entry.ThumbnailPath == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "thumbnail not available")
	}
	rc, size, err := s.open(ctx, *entry.ThumbnailPath)
	if err != nil {
		return nil, err
	}
	return &FileDownload{
		Body:        rc,
		Size:        size,
		ContentType: "image/jpeg",
		Filename:    storage.BaseName(*entry.ThumbnailPath),
		closer:      rc,
	}, nil
}

// Entries returns up to limit entries for exports.
func (s *ArchiveService) Entries(ctx context.Context, limit int) ([]models.ArchiveEntryDetail, error) {
	items, _, err := s.repo.List(ctx, models.EntryFilter{Limit: limit})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list archive entries")
	}
	return items, nil
}

func (s *ArchiveService) load(ctx context.Context, id string) (*models.ArchiveEntryDetail, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.ErrNotFound
	}
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Internal(err, "failed to load archive entry")
	}
	return entry, nil
}

func (s *ArchiveService) open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	rc, size, err := s.store.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("stored file missing", zap.String("key", key))
			return nil, 0, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, 0, appErrors.Internal(err, "failed to open stored file")
	}
	return rc, size, nil
}

func (s *ArchiveService) validateUpload(req dto.UploadRequest, file UploadFile) error {
	fields := map[string]string{}
	if err := validateStruct(s.validator, req); err != nil {
		var appErr *appErrors.Error
		if !errors.As(err, &appErr) || appErr.Fields == nil {
			return err
		}
		for k, v := range appErr.Fields {
			fields[k] = v
		}
	}
	switch {
	case file.Content == nil:
		fields["file"] = "No file was submitted."
	case file.Size == 0:
		fields["file"] = "The submitted file is empty."
	case file.Size > s.cfg.MaxFileSize:
		return appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	if len(fields) > 0 {
		return appErrors.Validation(fields)
	}
	return nil
}

// checkLinkShape rejects links that could never be probed, before any file is stored.
func (s *ArchiveService) checkLinkShape(link string) error {
	if _, err := linkcheck.Parse(link); err != nil {
		s.deps.Metrics.RecordLinkCheck(string(linkcheck.Invalid))
		s.logger.Info("link rejected", zap.String("url", link), zap.Error(err))
		return appErrors.ErrInvalidURL
	}
	return nil
}

func (s *ArchiveService) checkLink(ctx context.Context, link string) error {
	result := s.links.Check(ctx, link)
	s.deps.Metrics.RecordLinkCheck(string(result.Status))
	if result.OK() {
		return nil
	}
	s.logger.Info("link rejected",
		zap.String("url", link),
		zap.String("status", string(result.Status)),
		zap.Int("http_status", result.StatusCode),
		zap.Error(result.Err),
	)
	return appErrors.ErrInvalidURL
}

func (s *ArchiveService) present(entry *models.ArchiveEntryDetail) dto.EntryResponse {
	resp := dto.NewEntryResponse(entry)
	if s.deps.Signer == nil {
		return resp
	}
	token, _, err := s.deps.Signer.Generate(entry.ID, entry.FilePath)
	if err != nil {
		s.logger.Warn("failed to sign download url", zap.String("entry_id", entry.ID), zap.Error(err))
		return resp
	}
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	resp.DownloadURL = fmt.Sprintf("%s/archive/upload/download/%s?token=%s", base, entry.ID, url.QueryEscape(token))
	return resp
}

// releaseFiles deletes stored objects even when the request context is already cancelled.
func (s *ArchiveService) releaseFiles(ctx context.Context, keys ...string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	for _, key := range keys {
		if err := s.store.Delete(cleanupCtx, key); err != nil {
			s.logger.Warn("failed to release stored file", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *ArchiveService) invalidateTags(ctx context.Context) {
	_ = s.deps.Cache.Delete(ctx, cacheKeyTags)
}

func (s *ArchiveService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, entryID, newValues string) {
	if s.deps.Audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   models.AuditResourceEntry,
		ResourceID: &entryID,
		IPAddress:  "system",
		UserAgent:  "archive-service",
	}
	if newValues != "" {
		log.NewValues = []byte(newValues)
	}
	if err := s.deps.Audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create archive audit", zap.String("action", action), zap.Error(err))
	}
}

func requireFullUpdate(req dto.UpdateEntryRequest) error {
	fields := map[string]string{}
	if req.Location == nil {
		fields["location"] = "This field is required."
	}
	if req.ZipCode == nil {
		fields["zip_code"] = "This field is required."
	}
	if req.Link == nil {
		fields["link"] = "This field is required."
	}
	if req.Tags == nil {
		fields["tags"] = "This field is required."
	}
	if len(fields) > 0 {
		return appErrors.Validation(fields)
	}
	return nil
}

// ownerGuard rejects owner changes. A full update must name the current owner;
// a partial update is only checked when it carries a non-empty user.
func ownerGuard(submitted *string, owner string, partial bool) error {
	if submitted == nil || *submitted == "" {
		if partial {
			return nil
		}
		return appErrors.ErrUserLocked
	}
	if *submitted != owner {
		return appErrors.ErrUserLocked
	}
	return nil
}

func canModify(actor *models.JWTClaims, owner string) bool {
	return actor != nil && (actor.UserID == owner || actor.Role == models.RoleAdmin)
}

func valueOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}

func cleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}
