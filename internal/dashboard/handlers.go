package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/imamik/devsim/internal/config"
	"github.com/imamik/devsim/internal/provisioning"
	"github.com/imamik/devsim/internal/util/deviceid"
)

// provisionRequest is the body of POST /api/provisioning.
type provisionRequest struct {
	provisioning.DeviceDescriptor
	// GenerateID asks the server to assign a simulated device id.
	GenerateID bool `json:"generateId,omitempty"`
}

// statusResponse is the body of the provisioning endpoints.
type statusResponse struct {
	Run         provisioning.Progress `json:"run"`
	LastHandoff *HandoffRecord        `json:"lastHandoff,omitempty"`
	Handoffs    handoffCounts         `json:"handoffs"`
}

// handoffCounts tallies how runs have ended since the server started.
type handoffCounts struct {
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

func (s *Server) status() statusResponse {
	resp := statusResponse{Run: provisioning.Summarize(s.machine.Snapshot())}
	resp.Handoffs.Completed, resp.Handoffs.Cancelled = s.handoffs.Counts()
	if last, ok := s.handoffs.Last(); ok {
		resp.LastHandoff = &last
	}
	return resp
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSON)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, http.StatusBadRequest, errInvalidJSON)
		return
	}

	d := req.DeviceDescriptor
	if req.GenerateID && strings.TrimSpace(d.DeviceID) == "" {
		id, err := s.newID()
		if err != nil {
			s.logger.Error(err, "failed to generate device id")
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		d.DeviceID = id
	}
	d.DeviceID = deviceid.Normalize(d.DeviceID)

	if err := checkDescriptor(s.cfg, d); err != nil {
		writeError(w, httpStatus(err), err)
		return
	}
	if err := s.machine.Start(d); err != nil {
		writeError(w, httpStatus(err), err)
		return
	}

	s.logger.Info("provisioning submitted", "device_id", d.DeviceID, "environment", d.Environment)
	writeJSON(w, http.StatusAccepted, s.status())
}

// checkDescriptor rejects environments and device types the config does not offer.
// Missing fields are left to the machine.
func checkDescriptor(cfg *config.Config, d provisioning.DeviceDescriptor) error {
	if d.Environment != "" {
		if _, ok := cfg.Environment(d.Environment); !ok {
			return fmt.Errorf("%w: unknown environment %q", provisioning.ErrInvalidDescriptor, d.Environment)
		}
	}
	if d.Type != "" && !cfg.SupportsDeviceType(d.Type) {
		return fmt.Errorf("%w: unsupported device type %q", provisioning.ErrInvalidDescriptor, d.Type)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleRetry(w http.ResponseWriter, _ *http.Request) {
	if err := s.machine.Retry(); err != nil {
		writeError(w, httpStatus(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.status())
}

func (s *Server) handleCancel(w http.ResponseWriter, _ *http.Request) {
	s.machine.Cancel()
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.ListDevices(r.Context())
	if err != nil {
		s.logger.Error(err, "failed to list devices")
		writeError(w, httpStatus(err), fmt.Errorf("failed to list devices: %w", err))
		return
	}
	if devices == nil {
		devices = []provisioning.DeviceRecord{}
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := deviceid.Normalize(r.PathValue("id"))
	device, err := s.devices.GetDevice(r.Context(), id)
	if err != nil {
		writeError(w, httpStatus(err), fmt.Errorf("device %s: %w", id, err))
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (s *Server) handleEnvironments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Environments)
}

func (s *Server) handleDeviceTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.DeviceTypes)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
