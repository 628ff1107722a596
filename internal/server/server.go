// Package server ties the model registry and the request core into a single
// serving facade with a lifecycle: initialize, serve, drain, exit.
package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/core"
	"inferd/internal/metrics"
	"inferd/internal/registry"
	"inferd/internal/status"
	"inferd/pkg/types"
)

// ReadyState is the coarse lifecycle state reported by health endpoints.
type ReadyState string

const (
	StateInitializing ReadyState = "initializing"
	StateReady        ReadyState = "ready"
	StateExiting      ReadyState = "exiting"
	StateFailed       ReadyState = "failed"
)

// ModelControlMode selects who decides which models are served.
type ModelControlMode int

const (
	// ControlNone loads everything found in the repository at startup and
	// rejects load/unload calls.
	ControlNone ModelControlMode = iota
	// ControlPoll behaves like ControlNone at startup; repository rescans
	// happen out of band.
	ControlPoll
	// ControlExplicit loads only the startup models and accepts load/unload
	// calls at runtime.
	ControlExplicit
)

func (m ModelControlMode) String() string {
	switch m {
	case ControlNone:
		return "none"
	case ControlPoll:
		return "poll"
	case ControlExplicit:
		return "explicit"
	default:
		return "unknown"
	}
}

// ParseModelControlMode maps a config string to a mode.
func ParseModelControlMode(s string) (ModelControlMode, error) {
	switch s {
	case "", "none":
		return ControlNone, nil
	case "poll":
		return ControlPoll, nil
	case "explicit":
		return ControlExplicit, nil
	default:
		return ControlNone, status.InvalidArgf("unknown model control mode '%s'", s)
	}
}

// Options configure a Server. Zero values are serviceable for tests.
type Options struct {
	ID              string
	Version         string
	ExitTimeout     time.Duration
	StrictReadiness bool
	ControlMode     ModelControlMode
	StartupModels   []string
	Allocator       core.Allocator
	Log             zerolog.Logger
}

// Server owns the registry and tracks in-flight requests so shutdown can
// drain them.
type Server struct {
	opts     Options
	registry *registry.Registry
	log      zerolog.Logger

	inflight  atomic.Int64
	startedAt time.Time

	mu    sync.RWMutex
	state ReadyState
}

// extensions lists the protocol capabilities this build serves.
var extensions = []string{"health", "models", "metrics"}

// New builds a Server and loads the initial model set. Under strict
// readiness any load failure fails initialization; otherwise failures are
// logged and the server comes up with whatever loaded.
func New(reg *registry.Registry, opts Options) (*Server, error) {
	if opts.ID == "" {
		opts.ID = "inferd"
	}
	if opts.ExitTimeout <= 0 {
		opts.ExitTimeout = 30 * time.Second
	}
	s := &Server{
		opts:      opts,
		registry:  reg,
		log:       opts.Log,
		startedAt: time.Now(),
		state:     StateInitializing,
	}
	if err := s.loadStartupModels(); err != nil {
		s.setState(StateFailed)
		return nil, err
	}
	s.setState(StateReady)
	return s, nil
}

func (s *Server) loadStartupModels() error {
	var names []string
	if s.opts.ControlMode == ControlExplicit {
		names = s.opts.StartupModels
	} else {
		idx, err := s.registry.Index()
		if err != nil {
			return status.Wrap(status.CodeUnavailable, err, "scanning model repository")
		}
		names = idx
	}
	for _, name := range names {
		if err := s.registry.Load(name); err != nil {
			if s.opts.StrictReadiness {
				return status.Wrap(status.CodeUnavailable, err, "loading model '%s'", name)
			}
			s.log.Warn().Str("model", name).Err(err).Msg("model failed to load")
			continue
		}
		s.log.Info().Str("model", name).Msg("model loaded")
	}
	return nil
}

func (s *Server) setState(st ReadyState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// ReadyState reports the current lifecycle state.
func (s *Server) ReadyState() ReadyState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Server) ID() string      { return s.opts.ID }
func (s *Server) Version() string { return s.opts.Version }

// Extensions reports the protocol capabilities served by this build.
func (s *Server) Extensions() []string {
	return append([]string(nil), extensions...)
}

// IsLive reports whether the process should keep receiving traffic checks.
// A failed or draining server is no longer live.
func (s *Server) IsLive() bool {
	st := s.ReadyState()
	return st == StateInitializing || st == StateReady
}

// IsReady reports whether inference traffic should be routed here. Strict
// readiness additionally requires that initialization fully succeeded.
func (s *Server) IsReady() bool {
	if !s.IsLive() {
		return false
	}
	if s.opts.StrictReadiness {
		return s.ReadyState() == StateReady
	}
	return true
}

// ModelIsReady reports whether the named model version can serve requests.
// Version <= 0 means any ready version.
func (s *Server) ModelIsReady(name string, version int64) bool {
	_, err := s.registry.GetBackend(name, version)
	return err == nil
}

// ModelReadyVersions returns the ready versions of the named model, sorted.
func (s *Server) ModelReadyVersions(name string) []int64 {
	return s.registry.ReadyVersions(name)
}

// LoadModel loads (or reloads) a model from the repository. Only allowed in
// explicit control mode.
func (s *Server) LoadModel(name string) error {
	if s.opts.ControlMode != ControlExplicit {
		return status.Unavailablef("explicit model load not allowed in %s control mode", s.opts.ControlMode)
	}
	if s.ReadyState() != StateReady {
		return status.Unavailablef("server is %s", s.ReadyState())
	}
	return s.registry.Load(name)
}

// UnloadModel removes every version of a model. Only allowed in explicit
// control mode.
func (s *Server) UnloadModel(name string) error {
	if s.opts.ControlMode != ControlExplicit {
		return status.Unavailablef("explicit model unload not allowed in %s control mode", s.opts.ControlMode)
	}
	if s.ReadyState() != StateReady {
		return status.Unavailablef("server is %s", s.ReadyState())
	}
	return s.registry.UnregisterModel(name)
}

// InferAsync resolves the request's backend, prepares the request, and runs
// it on its own goroutine. The request's completion callback fires with the
// execution result. Resolution and preparation errors are returned
// synchronously and do not count as in-flight.
func (s *Server) InferAsync(req *core.InferenceRequest) error {
	if s.ReadyState() != StateReady {
		return status.Unavailablef("server is %s, refusing inference", s.ReadyState())
	}
	backend, err := s.registry.GetBackend(req.ModelName(), req.RequestedVersion())
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(req.ModelName(), "rejected").Inc()
		return err
	}
	req.SetBackend(backend)
	if err := req.PrepareForInference(); err != nil {
		metrics.RequestsTotal.WithLabelValues(req.ModelName(), "rejected").Inc()
		return err
	}

	s.inflight.Add(1)
	metrics.InflightRequests.Inc()
	go func() {
		runErr := req.Run()
		s.inflight.Add(-1)
		metrics.InflightRequests.Dec()
		outcome := "success"
		if runErr != nil {
			outcome = "error"
			s.log.Error().Str("model", req.ModelName()).Err(runErr).Msg("inference failed")
		}
		metrics.RequestsTotal.WithLabelValues(req.ModelName(), outcome).Inc()
		if cb := req.OnComplete(); cb != nil {
			cb(runErr)
		}
	}()
	return nil
}

// ResponseFactory builds a response factory for a dispatched request using
// the server's allocator. The request must already have a backend bound.
func (s *Server) ResponseFactory(req *core.InferenceRequest, userp any) (*core.ResponseFactory, error) {
	if req.Backend() == nil {
		return nil, status.Internalf("request for model '%s' has no backend bound", req.ModelName())
	}
	return core.NewResponseFactory(req.Backend(), req.ID(), s.opts.Allocator, userp), nil
}

// InflightRequests reports the number of requests currently executing.
func (s *Server) InflightRequests() int64 { return s.inflight.Load() }

// Stop moves the server to the exiting state and waits for in-flight
// requests to drain, up to the exit timeout. New inference is refused as
// soon as Stop is called.
func (s *Server) Stop() error {
	s.setState(StateExiting)
	deadline := time.Now().Add(s.opts.ExitTimeout)
	for {
		n := s.inflight.Load()
		if n == 0 {
			s.log.Info().Msg("all in-flight requests drained")
			return nil
		}
		if time.Now().After(deadline) {
			return status.Internalf("exit timeout expired with %d in-flight requests", n)
		}
		s.log.Info().Int64("inflight", n).Msg("waiting for in-flight requests")
		time.Sleep(100 * time.Millisecond)
	}
}

// Status assembles the server status report for the HTTP surface.
func (s *Server) Status() types.StatusResponse {
	return types.StatusResponse{
		ID:               s.opts.ID,
		Version:          s.opts.Version,
		State:            string(s.ReadyState()),
		Models:           s.registry.Models(),
		InflightRequests: s.inflight.Load(),
		UptimeSeconds:    int64(time.Since(s.startedAt).Seconds()),
	}
}
