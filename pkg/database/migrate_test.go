package database

import (
	"context"
	"errors"
	"io/fs"
	"regexp"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/civic-archive-api/migrations"
)

func TestEmbeddedMigrationsPresent(t *testing.T) {
	names, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	assert.Contains(t, names, "00001_init.sql")
}

func tableDefinition(t *testing.T, schema, table string) string {
	t.Helper()
	re := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS ` + table + ` \((.*?)\n\);`)
	m := re.FindStringSubmatch(schema)
	require.Len(t, m, 2, "table %s not found", table)
	return m[1]
}

func TestInitSchemaDeduplicatesAndCascades(t *testing.T) {
	raw, err := fs.ReadFile(migrations.FS, "00001_init.sql")
	require.NoError(t, err)
	schema := string(raw)

	assert.Contains(t, tableDefinition(t, schema, "locations"), "CONSTRAINT locations_natural_key UNIQUE (city, zip_code, address)")
	assert.Contains(t, tableDefinition(t, schema, "links"), "CONSTRAINT links_url_key UNIQUE (url)")
	assert.Contains(t, tableDefinition(t, schema, "tags"), "CONSTRAINT tags_name_key UNIQUE (name)")

	cascade := regexp.MustCompile(`entry_id\s+UUID NOT NULL REFERENCES archive_entries \(id\) ON DELETE CASCADE`)
	for _, table := range []string{"comments", "bookmarks", "entry_tags"} {
		assert.Regexp(t, cascade, tableDefinition(t, schema, table), table)
	}
	assert.Contains(t, tableDefinition(t, schema, "bookmarks"), "UNIQUE (user_id, entry_id)")
}

func TestMigrateWrapsFailure(t *testing.T) {
	original := gooseUp
	defer func() { gooseUp = original }()

	var called bool
	gooseUp = func(ctx context.Context, db *sqlx.DB) error {
		called = true
		return errors.New("relation exists")
	}

	err := Migrate(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, called)
	assert.Contains(t, err.Error(), "apply migrations")
}
