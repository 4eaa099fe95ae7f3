package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		raw      string
		expected Dialect
		wantErr  bool
	}{
		{raw: "postgres", expected: DialectPostgres},
		{raw: "PostgreSQL", expected: DialectPostgres},
		{raw: " sqlite ", expected: DialectSQLite},
		{raw: "mysql", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			d, err := ParseDialect(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestDialect_TxOptions(t *testing.T) {
	opts := DialectPostgres.TxOptions()
	require.NotNil(t, opts)
	assert.Equal(t, sql.LevelSerializable, opts.Isolation)
	assert.Nil(t, DialectSQLite.TxOptions())
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		name     string
		dsn      string
		expected string
	}{
		{
			name:     "Путь без параметров",
			dsn:      "/data/specimens.db",
			expected: "/data/specimens.db?" + sqlitePragmas,
		},
		{
			name:     "Путь с параметрами",
			dsn:      "file:specimens.db?cache=shared",
			expected: "file:specimens.db?cache=shared&" + sqlitePragmas,
		},
		{
			name:     "Pragma уже заданы",
			dsn:      "specimens.db?_pragma=foreign_keys(1)",
			expected: "specimens.db?_pragma=foreign_keys(1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sqliteDSN(tt.dsn))
		})
	}
}

func TestMigrationDriver_UnsupportedDialect(t *testing.T) {
	_, _, err := migrationDriver(context.Background(), nil, Dialect("oracle"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}
