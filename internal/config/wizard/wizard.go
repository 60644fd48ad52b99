package wizard

import (
	"context"
	"fmt"

	"github.com/imamik/devsim/internal/config"
)

// WizardResult holds all the answers from the interactive wizard.
type WizardResult struct {
	// Identity
	IDMode   string // IDModeGenerate or IDModeManual
	DeviceID string

	// Target
	Type        string
	Environment string

	// Details (optional)
	EquipmentNo  string
	Organization string
	Description  string
}

// RunWizard runs the interactive device form.
// The context is used for cancellation support (e.g., Ctrl+C).
func RunWizard(ctx context.Context, cfg *config.Config) (*WizardResult, error) {
	if len(cfg.Environments) == 0 {
		return nil, errNoEnvironments
	}

	result := NewDefaultResult(cfg)

	if err := runIdentityGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("device identity: %w", err)
	}

	if err := runTargetGroup(ctx, cfg, result); err != nil {
		return nil, fmt.Errorf("device target: %w", err)
	}

	if err := runDetailsGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("device details: %w", err)
	}

	return result, nil
}

// NewDefaultResult returns the answers the form starts from: a generated id,
// the first device type and the default environment.
func NewDefaultResult(cfg *config.Config) *WizardResult {
	result := &WizardResult{
		IDMode:      IDModeGenerate,
		Environment: cfg.DefaultEnvironmentName(),
	}
	if len(cfg.DeviceTypes) > 0 {
		result.Type = cfg.DeviceTypes[0]
	}
	return result
}
