package db

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/gemvault-backend/pkg/config"
)

type sample struct {
	ID   int
	Name string
}

func openSQLite(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    "file:dbclient_" + uuid.NewString() + "?mode=memory&cache=shared",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(&sample{}))
	return client
}

func countProbes(t *testing.T, client *Client) int64 {
	t.Helper()
	var n int64
	require.NoError(t, client.DB().Model(&sample{}).Count(&n).Error)
	return n
}

func TestNewOpensSQLite(t *testing.T) {
	client := openSQLite(t)
	assert.Equal(t, "sqlite", client.Dialect())
	assert.NoError(t, client.Ping(context.Background()))

	sqlDB, err := client.SQLDB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestDialectorFor(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.DBConfig
		dialect string
		wantErr bool
	}{
		{name: "missing dsn", cfg: config.DBConfig{Driver: config.DriverPostgres}, wantErr: true},
		{name: "unknown driver", cfg: config.DBConfig{Driver: "mysql", DSN: "x"}, wantErr: true},
		{name: "postgres default", cfg: config.DBConfig{DSN: "postgres://localhost/gemvault"}, dialect: "postgres"},
		{name: "sqlite", cfg: config.DBConfig{Driver: config.DriverSQLite, DSN: "file::memory:"}, dialect: "sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialector, err := dialectorFor(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, dialector.Name())
		})
	}
}

func TestWithTxCommitsOrRollsBack(t *testing.T) {
	client := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&sample{Name: "committed"}).Error
	}))
	assert.EqualValues(t, 1, countProbes(t, client))

	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&sample{Name: "rolled back"}).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, countProbes(t, client))
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	client := openSQLite(t)

	assert.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&sample{Name: "panicked"}).Error)
			panic("boom")
		})
	})
	assert.EqualValues(t, 0, countProbes(t, client))
}
