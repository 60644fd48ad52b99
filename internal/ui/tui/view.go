package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/devsim/internal/provisioning"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)
	renderSteps(&b, m)
	renderDevice(&b, m)

	if m.Run.Failure != nil {
		renderFailure(&b, m)
	}

	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	title := fmt.Sprintf("devsim: %s", m.Descriptor.DeviceID)
	if m.EnvironmentName != "" {
		title += fmt.Sprintf(" (%s)", m.EnvironmentName)
	}
	b.WriteString(titleStyle.Render(title))

	status := " "
	switch {
	case m.Err != nil:
		status += failedStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case m.CompletedDevice != "":
		status += readyStyle.Render("Running")
	case m.Cancelled:
		status += dimStyle.Render("Cancelled")
	case m.Run.Phase == provisioning.PhaseCompleted:
		status += readyStyle.Render("Simulator Ready")
	case m.Run.Phase == provisioning.PhaseHalted:
		status += failedStyle.Render("Failed")
	case m.Run.Phase == provisioning.PhaseRunning:
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + warningStyle.Render(runningLabel(m.Run))
	default:
		status += dimStyle.Render("Submitting...")
	}
	b.WriteString(status)
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("  %s", m.Descriptor.Type)))
	b.WriteString("\n")
}

// runningLabel names the highlighted step.
func runningLabel(r provisioning.Run) string {
	if step, ok := provisioning.CurrentStep(r); ok {
		return step.Title
	}
	return "Provisioning"
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := provisioning.Fraction(m.Run)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = m.Width - 30
		if barWidth < 10 {
			barWidth = 10
		}
	}
	filled := int(float64(barWidth) * progress)
	if filled > barWidth {
		filled = barWidth
	}

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	pct := int(progress * 100)
	eta := ""
	if m.EstimatedRemaining > 0 {
		eta = fmt.Sprintf(" ETA %s", formatDuration(m.EstimatedRemaining))
	}
	if m.PerformanceScale != 0 && m.PerformanceScale != 1.0 {
		eta += fmt.Sprintf("  speed x%.2f", m.PerformanceScale)
	}

	fmt.Fprintf(b, "\n  %s %d%%%s\n", bar, pct, eta)
}

func renderSteps(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Steps (%d/%d)",
		provisioning.CompletedSteps(m.Run), len(m.Run.Steps))))
	b.WriteString("\n")

	for i, step := range m.Run.Steps {
		icon, style := stepIcon(step.Status, m.SpinnerFrame)
		name := step.Title
		if m.Run.Active && i == m.Run.CurrentStepIndex && step.Status == provisioning.StatusLoading {
			style = sf(activeStyle)
		}
		fmt.Fprintf(b, "    %s %s\n", icon, style(name))

		switch {
		case step.Status == provisioning.StatusError && step.Error != "":
			fmt.Fprintf(b, "         %s\n", failedStyle.Render(step.Error))
		case step.Status == provisioning.StatusLoading:
			fmt.Fprintf(b, "         %s\n", dimStyle.Render(step.Description))
		}
	}
}

func renderDevice(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("Device"))
	b.WriteString("\n")

	d := m.Descriptor
	rows := [][2]string{
		{"Device ID", d.DeviceID},
		{"Type", d.Type},
		{"Environment", m.EnvironmentName},
	}
	if d.EquipmentNo != "" {
		rows = append(rows, [2]string{"Equipment No", d.EquipmentNo})
	}
	if d.Organization != "" {
		rows = append(rows, [2]string{"Organization", d.Organization})
	}
	if m.Run.Device != nil {
		rows = append(rows, [2]string{"Status", m.Run.Device.Status})
	}
	for _, row := range rows {
		fmt.Fprintf(b, "    %-14s %s\n", dimStyle.Render(row[0]), row[1])
	}
}

func renderFailure(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("Error"))
	b.WriteString("\n")
	fmt.Fprintf(b, "    %s %s\n", failedStyle.Render(crossMark), failedStyle.Render(m.Run.Failure.Error()))
}

func renderFooter(b *strings.Builder, m Model) {
	elapsed := time.Since(m.StartTime)
	parts := []string{fmt.Sprintf("Elapsed: %s", formatDuration(elapsed))}

	switch {
	case m.CompletedDevice != "":
		parts = append(parts, fmt.Sprintf("Opening device monitor for %s", m.CompletedDevice))
	case m.Run.Phase == provisioning.PhaseHalted:
		parts = append(parts, "r: retry  c: cancel  q: quit")
	case m.Run.Active:
		parts = append(parts, "c: cancel  q: quit")
	default:
		parts = append(parts, "q: quit")
	}

	b.WriteString(footerStyle.Render(strings.Join(parts, "  |  ")))
	b.WriteString("\n")
}

func stepIcon(status provisioning.StepStatus, frame int) (string, styleFunc) {
	switch status {
	case provisioning.StatusSuccess:
		return readyStyle.Render(checkMark), sf(readyStyle)
	case provisioning.StatusError:
		return failedStyle.Render(crossMark), sf(failedStyle)
	case provisioning.StatusLoading:
		return warningStyle.Render(currentSpinner(frame)), sf(warningStyle)
	default:
		return dimStyle.Render(pending), sf(dimStyle)
	}
}

func currentSpinner(frame int) string {
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
