package handlers

import (
	"fmt"
	"io"
)

// GenerateID handles the generate-id command.
func GenerateID(out io.Writer) error {
	id, err := generateDeviceID()
	if err != nil {
		return fmt.Errorf("failed to generate device id: %w", err)
	}
	fmt.Fprintln(out, id)
	return nil
}
