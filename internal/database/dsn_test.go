package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "mysite", Name: "mysite"})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=mysite dbname=mysite sslmode=disable", dsn)
}

func TestBuildPostgresDSNWithOptionsAndQuoting(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "shop",
		Name:     "db",
		Host:     "db.example.com",
		Port:     6543,
		Password: "it's secret",
		Options:  map[string]string{"sslmode": "require", "search_path": "public"},
	})
	require.NoError(t, err)

	for _, part := range []string{
		"host=db.example.com",
		"port=6543",
		`password='it\'s secret'`,
		"search_path=public",
		"sslmode=require",
	} {
		require.Contains(t, dsn, part)
	}
}

func TestBuildPostgresDSNRequiresUserAndName(t *testing.T) {
	_, err := buildPostgresDSN(Config{})
	require.Error(t, err)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "shop",
		Password: "secret",
		Name:     "db",
		Host:     "db.example.com",
		Port:     3307,
		Options:  map[string]string{"timeout": "5s"},
	})
	require.NoError(t, err)

	require.Contains(t, dsn, "shop:secret@tcp(db.example.com:3307)/db?")
	require.Contains(t, dsn, "charset=utf8mb4")
	require.Contains(t, dsn, "parseTime=true")
	require.Contains(t, dsn, "loc=Local")
	require.Contains(t, dsn, "timeout=5s")
}

func TestBuildMySQLDSNRequiresUserAndName(t *testing.T) {
	_, err := buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)
}

func TestBuildDSNPassesThroughExplicitDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{DSN: "root@/shop"})
	require.NoError(t, err)
	require.Equal(t, "root@/shop", dsn)
}
