package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/civic-archive-api/internal/dto"
	"github.com/noah-isme/civic-archive-api/internal/models"
	appErrors "github.com/noah-isme/civic-archive-api/pkg/errors"
)

type entrySourceStub struct {
	items []models.ArchiveEntryDetail
	limit int
}

func (e *entrySourceStub) Entries(ctx context.Context, limit int) ([]models.ArchiveEntryDetail, error) {
	e.limit = limit
	return e.items, nil
}

func sampleEntries() []models.ArchiveEntryDetail {
	return []models.ArchiveEntryDetail{{
		ArchiveEntry: models.ArchiveEntry{ID: entryID, UserID: ownerID, Category: "document", CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
		Location:     models.Location{City: "Berlin", ZipCode: "10115"},
		Link:         models.Link{URL: "https://example.org"},
		Tags:         []models.Tag{{Name: "council"}, {Name: "budget"}},
	}}
}

func TestExportServiceCSV(t *testing.T) {
	source := &entrySourceStub{items: sampleEntries()}
	audit := &stubAudit{}
	svc := NewExportService(source, audit, zap.NewNop(), nil, nil)

	res, err := svc.Export(context.Background(), dto.ExportQuery{}, &models.JWTClaims{UserID: ownerID})
	require.NoError(t, err)
	assert.Equal(t, 1000, source.limit)
	assert.Equal(t, 1, res.Rows)
	assert.True(t, strings.HasSuffix(res.Filename, ".csv"))
	assert.Contains(t, res.ContentType, "text/csv")
	lines := strings.Split(strings.TrimSpace(string(res.Data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID,Owner,Category,City,Zip,Link,Tags,Created", lines[0])
	assert.Contains(t, lines[1], `"council, budget"`)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionExport, audit.logs[0].Action)
}

func TestExportServicePDF(t *testing.T) {
	source := &entrySourceStub{items: sampleEntries()}
	svc := NewExportService(source, nil, nil, nil, nil)

	res, err := svc.Export(context.Background(), dto.ExportQuery{Format: "PDF", Limit: 99999}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5000, source.limit)
	assert.Equal(t, "application/pdf", res.ContentType)
	assert.True(t, bytes.HasPrefix(res.Data, []byte("%PDF")))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&entrySourceStub{}, nil, nil, nil, nil)

	_, err := svc.Export(context.Background(), dto.ExportQuery{Format: "xlsx"}, nil)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "format")
}
