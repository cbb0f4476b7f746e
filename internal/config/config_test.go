package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAdminIDs(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []int64
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"single", "123", []int64{123}, false},
		{"multiple", "1,2,3", []int64{1, 2, 3}, false},
		{"spaces and trailing comma", " 1 , 2 ,", []int64{1, 2}, false},
		{"non-numeric", "1,abc", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAdminIDs(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "ADMIN_IDS", "FETCH_TIMEOUT", "SYNC_INTERVAL", "SCORES_API_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 14*24*time.Hour, cfg.SyncInterval)
	assert.NotEmpty(t, cfg.ScoresAPIURL)
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ADMIN_IDS", "11,22")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("SYNC_INTERVAL", "24h")
	t.Setenv("WEBHOOK_SECRET", "s3cr3t")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []int64{11, 22}, cfg.AdminIDs)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 24*time.Hour, cfg.SyncInterval)
	assert.Equal(t, "s3cr3t", cfg.WebhookSecret)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("ADMIN_IDS", "not-a-number")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("ADMIN_IDS", "")
	t.Setenv("FETCH_TIMEOUT", "soon")
	_, err = Load()
	assert.Error(t, err)
}
