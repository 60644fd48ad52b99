package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/imamik/devsim/internal/config"
	"github.com/imamik/devsim/internal/platform/s3"
)

// credentialArchive is the read side of the credential archive.
type credentialArchive interface {
	Keys(ctx context.Context, env, deviceID string) ([]string, error)
	Fetch(ctx context.Context, env, deviceID string) (certPEM, keyPEM []byte, err error)
}

// openArchive connects to the credential archive - can be replaced in tests.
var openArchive = func(ctx context.Context, cfg *config.Config) (credentialArchive, error) {
	return openS3Archive(ctx, cfg)
}

var errArchiveDisabled = errors.New("credential archive is not enabled (set archive.enabled in the configuration)")

// CredentialsOptions are the inputs of the devices credentials command.
type CredentialsOptions struct {
	ConfigPath string
	DeviceID   string

	// Dir receives the certificate and private key. Empty only lists the archived objects.
	Dir string
}

// DeviceCredentials handles the devices credentials command.
func DeviceCredentials(ctx context.Context, out io.Writer, opts CredentialsOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	if !cfg.Archive.Enabled {
		return errArchiveDisabled
	}

	store, err := openStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open device registry: %w", err)
	}
	defer store.Close()

	device, err := getDevice(ctx, store, opts.DeviceID)
	if err != nil {
		return err
	}

	archive, err := openArchive(ctx, cfg)
	if err != nil {
		return err
	}

	keys, err := archive.Keys(ctx, device.Environment, device.ID)
	if err != nil {
		return fmt.Errorf("failed to list archived credentials: %w", err)
	}
	if len(keys) == 0 {
		return fmt.Errorf("%s in %s: %w", device.ID, device.Environment, s3.ErrNotArchived)
	}

	fmt.Fprintf(out, "Archived credentials for %s in s3://%s\n", device.ID, cfg.Archive.Bucket)
	for _, key := range keys {
		fmt.Fprintf(out, "  %s\n", key)
	}

	if opts.Dir == "" {
		return nil
	}

	certPEM, keyPEM, err := archive.Fetch(ctx, device.Environment, device.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch archived credentials: %w", err)
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", opts.Dir, err)
	}

	base := filepath.Join(opts.Dir, credentialFileName(device.ID))
	if err := os.WriteFile(base+".crt", certPEM, 0o644); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}
	if err := os.WriteFile(base+".key", keyPEM, 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	fmt.Fprintf(out, "Wrote %s.crt and %s.key\n", base, base)
	return nil
}

// credentialFileName turns a device id into a portable file name.
func credentialFileName(id string) string {
	return strings.ReplaceAll(id, ":", "-")
}
