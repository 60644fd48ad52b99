// Package wizard provides the interactive device form for devsim create.
//
// The form runs when create is invoked on a terminal without a device id.
// It uses charmbracelet/huh for form-based input collection. RunWizard
// returns a WizardResult; BuildDescriptor turns it into the descriptor
// submitted to the provisioning machine.
package wizard
