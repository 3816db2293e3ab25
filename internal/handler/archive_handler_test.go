package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/civic-archive-api/internal/dto"
	"github.com/noah-isme/civic-archive-api/internal/middleware"
	"github.com/noah-isme/civic-archive-api/internal/models"
	"github.com/noah-isme/civic-archive-api/internal/service"
	appErrors "github.com/noah-isme/civic-archive-api/pkg/errors"
)

type archiveServiceMock struct {
	uploadReq   dto.UploadRequest
	uploadFile  []byte
	uploadName  string
	uploadErr   error
	updateReq   dto.UpdateEntryRequest
	partial     bool
	updateErr   error
	deleteErr   error
	search      dto.TagSearchResponse
	tags        []dto.TagResponse
	tagsHit     bool
	download    *service.FileDownload
	downloadErr error
	token       string
	actor       *models.JWTClaims
}

func (m *archiveServiceMock) Upload(ctx context.Context, req dto.UploadRequest, file service.UploadFile, actor *models.JWTClaims) (*dto.EntryResponse, error) {
	m.uploadReq = req
	m.actor = actor
	if file.Content != nil {
		m.uploadFile, _ = io.ReadAll(file.Content)
		m.uploadName = file.Filename
	}
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	return &dto.EntryResponse{ID: "e1", User: actor.UserID}, nil
}

func (m *archiveServiceMock) List(ctx context.Context, query dto.ListEntriesQuery) ([]dto.EntryResponse, *models.Pagination, error) {
	return []dto.EntryResponse{{ID: "e1"}}, &models.Pagination{Limit: query.Limit, Offset: query.Offset, Count: 1}, nil
}

func (m *archiveServiceMock) Get(ctx context.Context, id string) (*dto.EntryResponse, error) {
	if id != "e1" {
		return nil, appErrors.ErrNotFound
	}
	return &dto.EntryResponse{ID: id}, nil
}

func (m *archiveServiceMock) Update(ctx context.Context, id string, req dto.UpdateEntryRequest, partial bool, actor *models.JWTClaims) (*dto.EntryResponse, error) {
	m.updateReq = req
	m.partial = partial
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &dto.EntryResponse{ID: id}, nil
}

func (m *archiveServiceMock) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	return m.deleteErr
}

func (m *archiveServiceMock) SearchByTags(ctx context.Context, req dto.TagSearchRequest) (dto.TagSearchResponse, error) {
	return m.search, nil
}

func (m *archiveServiceMock) ListTags(ctx context.Context) ([]dto.TagResponse, bool, error) {
	return m.tags, m.tagsHit, nil
}

func (m *archiveServiceMock) Download(ctx context.Context, id, token string, actor *models.JWTClaims) (*service.FileDownload, error) {
	m.token = token
	m.actor = actor
	return m.download, m.downloadErr
}

func (m *archiveServiceMock) Thumbnail(ctx context.Context, id string) (*service.FileDownload, error) {
	return m.download, m.downloadErr
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestArchiveHandlerUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &archiveServiceMock{}
	handler := NewArchiveHandler(mockSvc, 1024)

	body, contentType := multipartUpload(t, map[string]string{
		"location": "Berlin", "zip_code": "10115", "link": "https://example.org", "tags": "council", "user": "someone-else",
	}, "minutes.pdf", []byte("%PDF-1.4"))
	c, w := newGinContext(http.MethodPost, "/archive/upload/", nil)
	c.Request, _ = http.NewRequest(http.MethodPost, "/archive/upload/", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})

	handler.Upload(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Berlin", mockSvc.uploadReq.Location)
	assert.Equal(t, "10115", mockSvc.uploadReq.ZipCode)
	assert.Equal(t, "minutes.pdf", mockSvc.uploadName)
	assert.Equal(t, "%PDF-1.4", string(mockSvc.uploadFile))
	assert.Equal(t, "u1", mockSvc.actor.UserID)
}

func TestArchiveHandlerUploadWithoutFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &archiveServiceMock{uploadErr: appErrors.Validation(map[string]string{"file": "No file was submitted."})}
	handler := NewArchiveHandler(mockSvc, 1024)

	body, contentType := multipartUpload(t, map[string]string{"location": "Berlin"}, "", nil)
	c, w := newGinContext(http.MethodPost, "/archive/upload/", nil)
	c.Request, _ = http.NewRequest(http.MethodPost, "/archive/upload/", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})

	handler.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, mockSvc.uploadFile)
	assert.Contains(t, w.Body.String(), `"file":"No file was submitted."`)
}

func TestArchiveHandlerUploadRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewArchiveHandler(&archiveServiceMock{}, 1024)

	c, w := newGinContext(http.MethodPost, "/archive/upload/", nil)
	handler.Upload(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestArchiveHandlerUpdateModes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &archiveServiceMock{}
	handler := NewArchiveHandler(mockSvc, 0)
	actor := &models.JWTClaims{UserID: "u1"}

	c, w := newGinContext(http.MethodPatch, "/archive/upload/e1", []byte(`{"tags":"a,b"}`))
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	c.Set(middleware.ContextUserKey, actor)
	handler.Patch(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.partial)
	require.NotNil(t, mockSvc.updateReq.Tags)
	assert.Nil(t, mockSvc.updateReq.Location)

	mockSvc.updateErr = appErrors.ErrUserLocked
	c, w = newGinContext(http.MethodPut, "/archive/upload/e1", []byte(`{"user":"u2"}`))
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	c.Set(middleware.ContextUserKey, actor)
	handler.Replace(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.partial)
	assert.Contains(t, w.Body.String(), "It's not possible to change the upload user.")
}

func TestArchiveHandlerGetAndDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewArchiveHandler(&archiveServiceMock{deleteErr: appErrors.ErrNotFound}, 0)

	c, w := newGinContext(http.MethodGet, "/archive/upload/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newGinContext(http.MethodDelete, "/archive/upload/e1", nil)
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})
	handler.Delete(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestArchiveHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &archiveServiceMock{download: &service.FileDownload{
		Body:        strings.NewReader("hello"),
		Size:        5,
		ContentType: "text/plain; charset=utf-8",
		Filename:    "abc.txt",
	}}
	handler := NewArchiveHandler(mockSvc, 0)

	c, w := newGinContext(http.MethodGet, "/archive/upload/download/e1?token=t0k", nil)
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	handler.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t0k", mockSvc.token)
	assert.Nil(t, mockSvc.actor)
	assert.Equal(t, `attachment; filename="abc.txt"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "hello", w.Body.String())
}

func TestArchiveHandlerSearchAndTags(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &archiveServiceMock{
		search:  dto.TagSearchResponse{"ghost": dto.NoMatchNotice, dto.SearchResultsKey: []dto.EntryResponse{}},
		tags:    []dto.TagResponse{{ID: "t1", Name: "budget", Slug: "budget"}},
		tagsHit: true,
	}
	handler := NewArchiveHandler(mockSvc, 0)

	c, w := newGinContext(http.MethodPost, "/archive/upload/tags/search/", []byte(`{"search_tag":"ghost"}`))
	handler.SearchTags(c)
	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.JSONEq(t, `"No matches for this search term"`, string(envelope.Data["ghost"]))
	assert.JSONEq(t, `[]`, string(envelope.Data["search_results"]))

	c, w = newGinContext(http.MethodGet, "/archive/uploads/tags/", nil)
	handler.Tags(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get(middleware.CacheHeader))
	assert.Contains(t, w.Body.String(), `"budget"`)
}

func TestArchiveHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewArchiveHandler(&archiveServiceMock{}, 0)

	c, w := newGinContext(http.MethodGet, "/archive/?limit=5&offset=10", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pagination":{"limit":5,"offset":10,"count":1}`)
}
