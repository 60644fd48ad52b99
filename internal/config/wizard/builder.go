package wizard

import (
	"fmt"
	"strings"

	"github.com/imamik/devsim/internal/provisioning"
	"github.com/imamik/devsim/internal/util/deviceid"
)

// BuildDescriptor creates the provisioning descriptor from the wizard result.
// generate is called when the result asks for a generated id.
func BuildDescriptor(result *WizardResult, generate func() (string, error)) (provisioning.DeviceDescriptor, error) {
	id := result.DeviceID
	if result.IDMode == IDModeGenerate || strings.TrimSpace(id) == "" {
		generated, err := generate()
		if err != nil {
			return provisioning.DeviceDescriptor{}, fmt.Errorf("failed to generate device id: %w", err)
		}
		id = generated
	}

	return provisioning.DeviceDescriptor{
		DeviceID:     deviceid.Normalize(id),
		Type:         result.Type,
		Environment:  result.Environment,
		EquipmentNo:  strings.TrimSpace(result.EquipmentNo),
		Organization: result.Organization,
		Description:  strings.TrimSpace(result.Description),
	}, nil
}
