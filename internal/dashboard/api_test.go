package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/imamik/devsim/internal/config"
	"github.com/imamik/devsim/internal/provisioning"
	"github.com/imamik/devsim/internal/store/sqlite"
	dtest "github.com/imamik/devsim/internal/testing"
)

// memRegistry is an in-memory DeviceRegistry.
type memRegistry struct {
	mu      sync.Mutex
	devices []provisioning.DeviceRecord
	err     error
}

func (r *memRegistry) GetDevice(_ context.Context, id string) (*provisioning.DeviceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, d := range r.devices {
		if d.ID == id {
			cp := d
			return &cp, nil
		}
	}
	return nil, sqlite.ErrNotFound
}

func (r *memRegistry) ListDevices(_ context.Context) ([]provisioning.DeviceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]provisioning.DeviceRecord, len(r.devices))
	copy(out, r.devices)
	return out, nil
}

const validBody = `{"deviceId":"ZZ:ZZ:ZZ:AA:BB:CC","type":"AIQ Core","environment":"dev"}`

var _ = Describe("Dashboard API", func() {
	const (
		timeout  = time.Second * 5
		interval = time.Millisecond * 20
	)

	var (
		backend  *dtest.StubBackend
		handoffs *Handoffs
		registry *memRegistry
		machine  *provisioning.Machine
		delays   provisioning.Delays
		opts     []Option
		server   *Server
	)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, path, nil)
		} else {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		}
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		return rec
	}

	decodeStatus := func(rec *httptest.ResponseRecorder) statusResponse {
		var resp statusResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		return resp
	}

	errorOf := func(rec *httptest.ResponseRecorder) string {
		var resp errorResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		return resp.Error
	}

	currentStatus := func() statusResponse {
		return decodeStatus(do(http.MethodGet, "/api/provisioning", ""))
	}

	BeforeEach(func() {
		backend = &dtest.StubBackend{}
		handoffs = NewHandoffs(nil)
		registry = &memRegistry{}
		delays = dtest.NoDelays()
		opts = nil
	})

	JustBeforeEach(func() {
		machine = provisioning.NewMachine(backend, handoffs, provisioning.WithDelays(delays))
		server = New(machine, registry, config.Default(), append([]Option{WithHandoffs(handoffs)}, opts...)...)
	})

	AfterEach(func() {
		machine.Cancel()
	})

	Context("Submitting a device", func() {
		BeforeEach(func() {
			// Hold the run before its first step so the response is deterministic.
			delays = provisioning.Delays{Submit: time.Hour}
		})

		It("should accept a valid descriptor and report a fresh run", func() {
			rec := do(http.MethodPost, "/api/provisioning", validBody)
			Expect(rec.Code).To(Equal(http.StatusAccepted))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

			resp := decodeStatus(rec)
			Expect(resp.Run.Phase).To(Equal(provisioning.PhaseRunning))
			Expect(resp.Run.Active).To(BeTrue())
			Expect(resp.Run.CurrentStepIndex).To(Equal(0))
			Expect(resp.Run.TotalSteps).To(Equal(provisioning.StepCount))
			Expect(resp.Run.CompletedSteps).To(Equal(0))
			Expect(resp.Run.HasErrorSteps).To(BeFalse())
			Expect(resp.Handoffs).To(Equal(handoffCounts{}))
			Expect(resp.Run.Descriptor.DeviceID).To(Equal(dtest.DefaultDeviceID))
			for _, step := range resp.Run.Steps {
				Expect(step.Status).To(Equal(provisioning.StatusPending))
			}
		})

		It("should normalize lower-case simulated ids", func() {
			rec := do(http.MethodPost, "/api/provisioning",
				`{"deviceId":"zz:zz:zz:aa:bb:cc","type":"AIQ Core","environment":"dev"}`)
			Expect(rec.Code).To(Equal(http.StatusAccepted))
			Expect(decodeStatus(rec).Run.Descriptor.DeviceID).To(Equal(dtest.DefaultDeviceID))
		})

		Context("with a generated id", func() {
			BeforeEach(func() {
				opts = append(opts, WithIDGenerator(func() (string, error) {
					return "ZZ:ZZ:ZZ:12:34:56", nil
				}))
			})

			It("should assign the generated id", func() {
				rec := do(http.MethodPost, "/api/provisioning",
					`{"generateId":true,"type":"AIQ Core Torque","environment":"test"}`)
				Expect(rec.Code).To(Equal(http.StatusAccepted))
				Expect(decodeStatus(rec).Run.Descriptor.DeviceID).To(Equal("ZZ:ZZ:ZZ:12:34:56"))
			})
		})

		It("should cancel the run and reset it to idle", func() {
			Expect(do(http.MethodPost, "/api/provisioning", validBody).Code).To(Equal(http.StatusAccepted))

			rec := do(http.MethodPost, "/api/provisioning/cancel", "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			resp := decodeStatus(rec)
			Expect(resp.Run.Phase).To(Equal(provisioning.PhaseIdle))
			Expect(resp.Run.Active).To(BeFalse())
			Expect(resp.Handoffs.Cancelled).To(Equal(1))
			Expect(resp.Handoffs.Completed).To(Equal(0))
		})
	})

	Context("Rejecting invalid submissions", func() {
		DescribeTable("should answer 400",
			func(body, want string) {
				rec := do(http.MethodPost, "/api/provisioning", body)
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
				Expect(errorOf(rec)).To(ContainSubstring(want))
				Expect(currentStatus().Run.Phase).To(Equal(provisioning.PhaseIdle))
			},
			Entry("malformed JSON", `{"deviceId":`, "invalid JSON"),
			Entry("unknown field", `{"deviceId":"ZZ:ZZ:ZZ:AA:BB:CC","colour":"red"}`, "invalid JSON"),
			Entry("trailing data", validBody+`{}`, "invalid JSON"),
			Entry("missing type", `{"deviceId":"ZZ:ZZ:ZZ:AA:BB:CC","environment":"dev"}`, "missing type"),
			Entry("missing device id", `{"type":"AIQ Core","environment":"dev"}`, "missing device id"),
			Entry("unknown environment", `{"deviceId":"ZZ:ZZ:ZZ:AA:BB:CC","type":"AIQ Core","environment":"staging"}`, `unknown environment "staging"`),
			Entry("path separator in device id", `{"deviceId":"ZZ:ZZ:ZZ/../prod","type":"AIQ Core","environment":"dev"}`, "must not contain path separators"),
			Entry("unsupported type", `{"deviceId":"ZZ:ZZ:ZZ:AA:BB:CC","type":"Toaster","environment":"dev"}`, `unsupported device type "Toaster"`),
		)

		It("should answer 409 when there is nothing to retry", func() {
			rec := do(http.MethodPost, "/api/provisioning/retry", "")
			Expect(rec.Code).To(Equal(http.StatusConflict))
			Expect(errorOf(rec)).To(Equal(provisioning.ErrNothingToRetry.Error()))
		})

		It("should answer 405 for the wrong method", func() {
			Expect(do(http.MethodGet, "/api/provisioning/retry", "").Code).To(Equal(http.StatusMethodNotAllowed))
		})
	})

	Context("Rate limiting", func() {
		BeforeEach(func() {
			delays = provisioning.Delays{Submit: time.Hour}
			opts = append(opts, WithRateLimiter(NewRateLimiter(0.001, 1)))
		})

		It("should answer 429 once the burst is spent", func() {
			Expect(do(http.MethodPost, "/api/provisioning", validBody).Code).To(Equal(http.StatusAccepted))

			rec := do(http.MethodPost, "/api/provisioning", validBody)
			Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
			Expect(errorOf(rec)).To(ContainSubstring("too many"))

			By("leaving reads unlimited")
			Expect(do(http.MethodGet, "/api/provisioning", "").Code).To(Equal(http.StatusOK))
		})
	})

	Context("Running to completion", func() {
		It("should hand the device off exactly once", func() {
			Expect(do(http.MethodPost, "/api/provisioning", validBody).Code).To(Equal(http.StatusAccepted))

			Eventually(func() string {
				resp := currentStatus()
				if resp.LastHandoff == nil {
					return ""
				}
				return resp.LastHandoff.DeviceID
			}, timeout, interval).Should(Equal(dtest.DefaultDeviceID))

			Expect(currentStatus().Handoffs).To(Equal(handoffCounts{Completed: 1}))
			Expect(backend.Steps()).To(Equal([]string{
				provisioning.StepGetCredentials,
				provisioning.StepCheckEnrollment,
				provisioning.StepCreateEnrollment,
				provisioning.StepCreateSimulator,
				provisioning.StepStartSimulator,
			}))
			Expect(currentStatus().Run.Phase).To(Equal(provisioning.PhaseIdle))
		})
	})

	Context("Halting on a failed step", func() {
		BeforeEach(func() {
			backend.Faults = map[string]error{
				provisioning.StepCreateSimulator: errors.New("quota exceeded"),
			}
		})

		It("should expose the failure and allow a retry", func() {
			Expect(do(http.MethodPost, "/api/provisioning", validBody).Code).To(Equal(http.StatusAccepted))

			Eventually(func() provisioning.RunPhase {
				return currentStatus().Run.Phase
			}, timeout, interval).Should(Equal(provisioning.PhaseHalted))

			resp := currentStatus()
			Expect(resp.Run.HasErrorSteps).To(BeTrue())
			Expect(resp.Run.Error).To(Equal("step create-simulator failed: quota exceeded"))
			Expect(resp.Run.CompletedSteps).To(Equal(3))
			Expect(resp.Run.Steps[3].Status).To(Equal(provisioning.StatusError))
			Expect(resp.Run.Steps[4].Status).To(Equal(provisioning.StatusPending))
			Expect(resp.LastHandoff).To(BeNil())

			By("retrying from the first step")
			Expect(do(http.MethodPost, "/api/provisioning/retry", "").Code).To(Equal(http.StatusAccepted))
			Eventually(func() int {
				return len(backend.Steps())
			}, timeout, interval).Should(Equal(8))
			Eventually(func() provisioning.RunPhase {
				return currentStatus().Run.Phase
			}, timeout, interval).Should(Equal(provisioning.PhaseHalted))
		})
	})

	Context("Device registry", func() {
		BeforeEach(func() {
			registry.devices = []provisioning.DeviceRecord{
				*dtest.DeviceRecordFor(dtest.DefaultDescriptor(), provisioning.DeviceStatusConnected),
			}
		})

		It("should list devices", func() {
			rec := do(http.MethodGet, "/api/devices", "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var devices []provisioning.DeviceRecord
			Expect(json.Unmarshal(rec.Body.Bytes(), &devices)).To(Succeed())
			Expect(devices).To(HaveLen(1))
			Expect(devices[0].Status).To(Equal(provisioning.DeviceStatusConnected))
		})

		It("should show a device by normalized id", func() {
			rec := do(http.MethodGet, "/api/devices/zz:zz:zz:aa:bb:cc", "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var device provisioning.DeviceRecord
			Expect(json.Unmarshal(rec.Body.Bytes(), &device)).To(Succeed())
			Expect(device.ID).To(Equal(dtest.DefaultDeviceID))
			Expect(device.Type).To(Equal(provisioning.DeviceTypeAIQCore))
		})

		It("should answer 404 for an unknown device", func() {
			rec := do(http.MethodGet, "/api/devices/ZZ:ZZ:ZZ:00:00:01", "")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(errorOf(rec)).To(ContainSubstring("ZZ:ZZ:ZZ:00:00:01"))
		})

		It("should answer 500 when the registry fails", func() {
			registry.err = errors.New("disk full")
			rec := do(http.MethodGet, "/api/devices", "")
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(errorOf(rec)).To(ContainSubstring("disk full"))
		})

		It("should return an empty list rather than null", func() {
			registry.devices = nil
			rec := do(http.MethodGet, "/api/devices", "")
			Expect(strings.TrimSpace(rec.Body.String())).To(Equal("[]"))
		})
	})

	Context("Reference data", func() {
		It("should list the configured environments", func() {
			rec := do(http.MethodGet, "/api/environments", "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var envs []config.Environment
			Expect(json.Unmarshal(rec.Body.Bytes(), &envs)).To(Succeed())
			Expect(envs).To(HaveLen(3))
			Expect(envs[0].Name).To(Equal("dev"))
		})

		It("should list the device types", func() {
			rec := do(http.MethodGet, "/api/device-types", "")
			var types []string
			Expect(json.Unmarshal(rec.Body.Bytes(), &types)).To(Succeed())
			Expect(types).To(Equal(provisioning.DeviceTypes))
		})

		It("should report health", func() {
			rec := do(http.MethodGet, "/healthz", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"ok"`))
		})

		It("should serve provisioning metrics", func() {
			rec := do(http.MethodGet, "/metrics", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("devsim_provisioning_runs_active"))
		})

		It("should tag responses with a request id", func() {
			rec := do(http.MethodGet, "/healthz", "")
			Expect(rec.Header().Get("X-Request-Id")).NotTo(BeEmpty())
		})
	})
})
