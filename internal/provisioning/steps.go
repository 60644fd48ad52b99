package provisioning

// StepStatus is the state of a single provisioning step.
type StepStatus string

const (
	// StatusPending means the step has not started in the current run.
	StatusPending StepStatus = "pending"
	// StatusLoading means the step's backend call is in flight.
	StatusLoading StepStatus = "loading"
	// StatusSuccess means the step completed.
	StatusSuccess StepStatus = "success"
	// StatusError means the step failed and the run is halted.
	StatusError StepStatus = "error"
)

// String returns the string representation of the status.
func (s StepStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status is final for the current run.
func (s StepStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Step identifiers, in execution order.
const (
	StepGetCredentials   = "get-credentials"
	StepCheckEnrollment  = "check-enrollment"
	StepCreateEnrollment = "create-enrollment"
	StepCreateSimulator  = "create-simulator"
	StepStartSimulator   = "start-simulator"
)

// StepDefinition is the static description of a step.
type StepDefinition struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

var stepDefinitions = [...]StepDefinition{
	{
		ID:          StepGetCredentials,
		Title:       "Getting Credentials",
		Description: "Requesting device certificate and private key",
	},
	{
		ID:          StepCheckEnrollment,
		Title:       "Checking Enrollment",
		Description: "Verifying device enrollment status",
	},
	{
		ID:          StepCreateEnrollment,
		Title:       "Creating Enrollment",
		Description: "Enrolling device with provisioning service",
	},
	{
		ID:          StepCreateSimulator,
		Title:       "Creating Simulator",
		Description: "Setting up simulator configuration",
	},
	{
		ID:          StepStartSimulator,
		Title:       "Starting Simulator",
		Description: "Initializing simulator and connecting to IoT Hub",
	},
}

// StepCount is the number of steps in every run.
const StepCount = len(stepDefinitions)

// Steps returns the canonical ordered step definitions.
// The returned slice is a copy and may be modified by the caller.
func Steps() []StepDefinition {
	out := make([]StepDefinition, StepCount)
	copy(out, stepDefinitions[:])
	return out
}

// StepIndex returns the position of the step with the given id, or -1.
func StepIndex(id string) int {
	for i, def := range stepDefinitions {
		if def.ID == id {
			return i
		}
	}
	return -1
}

// pendingSteps builds the initial step list for a run.
func pendingSteps() []Step {
	steps := make([]Step, StepCount)
	for i, def := range stepDefinitions {
		steps[i] = Step{
			ID:          def.ID,
			Title:       def.Title,
			Description: def.Description,
			Status:      StatusPending,
		}
	}
	return steps
}
