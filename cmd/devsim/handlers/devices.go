package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/imamik/devsim/internal/provisioning"
	"github.com/imamik/devsim/internal/store/sqlite"
	"github.com/imamik/devsim/internal/ui/tui"
	"github.com/imamik/devsim/internal/util/deviceid"
)

// deviceRegistry is the read side of the device registry.
type deviceRegistry interface {
	GetDevice(ctx context.Context, id string) (*provisioning.DeviceRecord, error)
	ListDevices(ctx context.Context) ([]provisioning.DeviceRecord, error)
}

// ListDevices handles the devices list command.
func ListDevices(ctx context.Context, out io.Writer, configPath string, jsonOutput bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	store, err := openStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open device registry: %w", err)
	}
	defer store.Close()

	devices, err := store.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	if jsonOutput {
		if devices == nil {
			devices = []provisioning.DeviceRecord{}
		}
		return writeJSON(out, devices)
	}
	fmt.Fprintln(out, tui.RenderDeviceList(devices, time.Now()))
	return nil
}

// ShowDevice handles the devices show command.
func ShowDevice(ctx context.Context, out io.Writer, configPath, id string, jsonOutput bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	store, err := openStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open device registry: %w", err)
	}
	defer store.Close()

	if jsonOutput {
		device, err := getDevice(ctx, store, id)
		if err != nil {
			return err
		}
		return writeJSON(out, device)
	}
	return showDevice(ctx, out, store, id)
}

// showDevice prints the monitor view of one device.
func showDevice(ctx context.Context, out io.Writer, registry deviceRegistry, id string) error {
	device, err := getDevice(ctx, registry, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, tui.RenderDevice(*device, time.Now()))
	return nil
}

func getDevice(ctx context.Context, registry deviceRegistry, id string) (*provisioning.DeviceRecord, error) {
	id = deviceid.Normalize(id)
	device, err := registry.GetDevice(ctx, id)
	if errors.Is(err, sqlite.ErrNotFound) {
		return nil, fmt.Errorf("device %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device %s: %w", id, err)
	}
	return device, nil
}

func writeJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
