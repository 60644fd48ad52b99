package provisioning

// HasErrorSteps reports whether any step in the run failed.
func HasErrorSteps(r Run) bool {
	for _, s := range r.Steps {
		if s.Status == StatusError {
			return true
		}
	}
	return false
}

// AllStepsSuccessful reports whether every step in the run succeeded.
func AllStepsSuccessful(r Run) bool {
	if len(r.Steps) == 0 {
		return false
	}
	for _, s := range r.Steps {
		if s.Status != StatusSuccess {
			return false
		}
	}
	return true
}

// CurrentStep returns the highlighted step while the run is active.
func CurrentStep(r Run) (Step, bool) {
	if !r.Active || r.CurrentStepIndex < 0 || r.CurrentStepIndex >= len(r.Steps) {
		return Step{}, false
	}
	return r.Steps[r.CurrentStepIndex], true
}

// CompletedSteps counts the steps that succeeded.
func CompletedSteps(r Run) int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == StatusSuccess {
			n++
		}
	}
	return n
}

// Fraction returns the share of succeeded steps in [0, 1].
func Fraction(r Run) float64 {
	if len(r.Steps) == 0 {
		return 0
	}
	return float64(CompletedSteps(r)) / float64(len(r.Steps))
}

// Progress is the rendering-facing view of a run.
type Progress struct {
	Run
	CurrentStepID      string `json:"currentStepId,omitempty"`
	HasErrorSteps      bool   `json:"hasErrorSteps"`
	AllStepsSuccessful bool   `json:"allStepsSuccessful"`
	CompletedSteps     int    `json:"completedSteps"`
	TotalSteps         int    `json:"totalSteps"`
	Error              string `json:"error,omitempty"`
}

// Summarize derives the rendering flags for a run.
func Summarize(r Run) Progress {
	p := Progress{
		Run:                r,
		HasErrorSteps:      HasErrorSteps(r),
		AllStepsSuccessful: AllStepsSuccessful(r),
		CompletedSteps:     CompletedSteps(r),
		TotalSteps:         len(r.Steps),
	}
	if step, ok := CurrentStep(r); ok {
		p.CurrentStepID = step.ID
	}
	if r.Failure != nil {
		p.Error = r.Failure.Error()
	}
	return p
}
