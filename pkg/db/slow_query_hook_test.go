package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"omniops/pkg/config"
)

func TestTruncateSQL(t *testing.T) {
	assert.Equal(t, "unknown", truncateSQL(""))
	assert.Equal(t, "SELECT 1", truncateSQL("SELECT 1"))

	long := strings.Repeat("x", 250)
	got := truncateSQL(long)
	assert.Len(t, got, 203)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestDSN(t *testing.T) {
	cfg := config.DBConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "omniops"}
	assert.Equal(t, "postgres://u:p@db:5432/omniops?sslmode=disable", DSN(cfg))

	cfg.SSLMode = "require"
	assert.Equal(t, "postgres://u:p@db:5432/omniops?sslmode=require", DSN(cfg))
}
