package db

import (
	"database/sql"
	"testing"

	"github.com/bohdanadamenko/mini-time-tracker/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

func TestConfigurePool(t *testing.T) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN("postgres://u:p@127.0.0.1:1/db?sslmode=disable")))
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer Close(bunDB)

	configurePool(bunDB, config.DatabaseConfig{})
	assert.Equal(t, 25, bunDB.DB.Stats().MaxOpenConnections)

	configurePool(bunDB, config.DatabaseConfig{MaxOpenConns: 4})
	assert.Equal(t, 4, bunDB.DB.Stats().MaxOpenConnections)
}

func TestNew_Unreachable(t *testing.T) {
	_, err := New(config.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		User:     "user@corp",
		Password: "p@ss:word/",
		DBName:   "timetracker",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error pinging database")
}

func TestClose_Nil(t *testing.T) {
	assert.NotPanics(t, func() { Close(nil) })
}
