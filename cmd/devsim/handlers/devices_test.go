package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/devsim/internal/config"
	"github.com/imamik/devsim/internal/provisioning"
	"github.com/imamik/devsim/internal/store/sqlite"
)

func seedDevices(t *testing.T, cfg *config.Config, devices ...provisioning.DeviceRecord) {
	t.Helper()
	store, err := sqlite.Open(cfg.Store.Path)
	require.NoError(t, err)
	defer store.Close()

	for _, d := range devices {
		require.NoError(t, store.SaveDevice(context.Background(), d))
	}
}

func testDevice(id string) provisioning.DeviceRecord {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return provisioning.DeviceRecord{
		ID:           id,
		Type:         provisioning.DeviceTypeAIQCore,
		Environment:  "dev",
		Status:       provisioning.DeviceStatusConnected,
		CreatedAt:    now,
		LastActivity: now,
	}
}

func TestListDevices_Empty(t *testing.T) {
	setupHandlers(t)

	var out bytes.Buffer
	require.NoError(t, ListDevices(context.Background(), &out, "", false))
	assert.Contains(t, out.String(), "Devices (0)")
}

func TestListDevices_EmptyJSON(t *testing.T) {
	setupHandlers(t)

	var out bytes.Buffer
	require.NoError(t, ListDevices(context.Background(), &out, "", true))
	assert.Equal(t, "[]\n", out.String())
}

func TestListDevices(t *testing.T) {
	cfg := setupHandlers(t)
	seedDevices(t, cfg, testDevice("ZZ:ZZ:ZZ:00:00:01"), testDevice("ZZ:ZZ:ZZ:00:00:02"))

	var out bytes.Buffer
	require.NoError(t, ListDevices(context.Background(), &out, "", false))

	output := out.String()
	assert.Contains(t, output, "Devices (2)")
	assert.Contains(t, output, "ZZ:ZZ:ZZ:00:00:01")
	assert.Contains(t, output, "ZZ:ZZ:ZZ:00:00:02")
}

func TestShowDevice(t *testing.T) {
	cfg := setupHandlers(t)
	seedDevices(t, cfg, testDevice("ZZ:ZZ:ZZ:00:00:0A"))

	var out bytes.Buffer
	require.NoError(t, ShowDevice(context.Background(), &out, "", "zz:zz:zz:00:00:0a", false))

	output := out.String()
	assert.Contains(t, output, "devsim: ZZ:ZZ:ZZ:00:00:0A")
	assert.Contains(t, output, "AIQ Core")
}

func TestShowDevice_JSON(t *testing.T) {
	cfg := setupHandlers(t)
	seedDevices(t, cfg, testDevice("ZZ:ZZ:ZZ:00:00:0A"))

	var out bytes.Buffer
	require.NoError(t, ShowDevice(context.Background(), &out, "", "ZZ:ZZ:ZZ:00:00:0A", true))

	var got provisioning.DeviceRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "ZZ:ZZ:ZZ:00:00:0A", got.ID)
	assert.Equal(t, "dev", got.Environment)
}

func TestShowDevice_NotFound(t *testing.T) {
	setupHandlers(t)

	var out bytes.Buffer
	err := ShowDevice(context.Background(), &out, "", "ZZ:ZZ:ZZ:FF:FF:FF", false)
	assert.EqualError(t, err, "device ZZ:ZZ:ZZ:FF:FF:FF not found")
}

func TestGenerateID(t *testing.T) {
	setupHandlers(t)

	var out bytes.Buffer
	require.NoError(t, GenerateID(&out))
	assert.Equal(t, "ZZ:ZZ:ZZ:AA:BB:CC\n", out.String())
}
