package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@localhost:5432/shop", migrateURL("postgres://u:p@localhost:5432/shop"))
	assert.Equal(t, "pgx5://localhost/shop?sslmode=disable", migrateURL("postgresql://localhost/shop?sslmode=disable"))
	assert.Equal(t, "pgx5://already", migrateURL("pgx5://already"))
}
