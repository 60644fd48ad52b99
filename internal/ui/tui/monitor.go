package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/imamik/devsim/internal/provisioning"
)

// RenderDevice renders the device monitor card shown after a handoff.
func RenderDevice(d provisioning.DeviceRecord, now time.Time) string {
	var b strings.Builder

	icon, style := deviceStatusIcon(d.Status)
	b.WriteString(titleStyle.Render(fmt.Sprintf("devsim: %s", d.ID)))
	b.WriteString(" ")
	b.WriteString(style(statusLabel(d.Status)))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Device"))
	b.WriteString("\n")
	rows := [][2]string{
		{"Type", d.Type},
		{"Environment", d.Environment},
		{"Status", icon + " " + style(d.Status)},
		{"Created", d.CreatedAt.Format(time.RFC3339)},
		{"Last activity", lastActivity(d.LastActivity, now)},
	}
	if d.EquipmentNo != "" {
		rows = append(rows, [2]string{"Equipment No", d.EquipmentNo})
	}
	if d.Organization != "" {
		rows = append(rows, [2]string{"Organization", d.Organization})
	}
	if d.Description != "" {
		rows = append(rows, [2]string{"Description", d.Description})
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "    %-14s %s\n", dimStyle.Render(row[0]), row[1])
	}

	return b.String()
}

// RenderDeviceList renders one line per device, newest first as given.
func RenderDeviceList(devices []provisioning.DeviceRecord, now time.Time) string {
	var b strings.Builder

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Devices (%d)", len(devices))))
	b.WriteString("\n")
	if len(devices) == 0 {
		b.WriteString(dimStyle.Render("    no simulated devices yet, run 'devsim create'"))
		b.WriteString("\n")
		return b.String()
	}

	for _, d := range devices {
		icon, style := deviceStatusIcon(d.Status)
		fmt.Fprintf(&b, "    %s %s  %s  %s  %s\n",
			icon,
			style(d.ID),
			d.Type,
			d.Environment,
			dimStyle.Render(lastActivity(d.LastActivity, now)),
		)
	}
	return b.String()
}

func deviceStatusIcon(status string) (string, styleFunc) {
	switch status {
	case provisioning.DeviceStatusConnected:
		return readyStyle.Render(checkMark), sf(readyStyle)
	case provisioning.DeviceStatusCreated:
		return warningStyle.Render(spinner), sf(warningStyle)
	case provisioning.DeviceStatusDisconnected:
		return failedStyle.Render(crossMark), sf(failedStyle)
	default:
		return dimStyle.Render(pending), sf(dimStyle)
	}
}

func statusLabel(status string) string {
	switch status {
	case provisioning.DeviceStatusConnected:
		return "Online"
	case provisioning.DeviceStatusCreated:
		return "Starting"
	case provisioning.DeviceStatusDisconnected:
		return "Offline"
	default:
		return "Unknown"
	}
}

func lastActivity(at, now time.Time) string {
	if at.IsZero() {
		return "never"
	}
	d := now.Sub(at)
	if d < 0 {
		d = 0
	}
	return formatDuration(d) + " ago"
}
