package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inferd/internal/status"
	"inferd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ID() string
	Version() string
	Extensions() []string
	IsLive() bool
	IsReady() bool
	ModelIsReady(name string, version int64) bool
	ModelReadyVersions(name string) []int64
	LoadModel(name string) error
	UnloadModel(name string) error
	Status() types.StatusResponse
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	r.Use(RequestLogger)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/v2", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"name":       svc.ID(),
			"version":    svc.Version(),
			"extensions": svc.Extensions(),
		})
	})

	r.Get("/v2/health/live", func(w http.ResponseWriter, r *http.Request) {
		if svc.IsLive() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	r.Get("/v2/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if svc.IsReady() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	r.Get("/v2/models/{model}/ready", func(w http.ResponseWriter, r *http.Request) {
		modelReady(w, r, svc, -1)
	})

	r.Get("/v2/models/{model}/versions/{version}/ready", func(w http.ResponseWriter, r *http.Request) {
		version, err := strconv.ParseInt(chi.URLParam(r, "version"), 10, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "model version must be an integer")
			return
		}
		modelReady(w, r, svc, version)
	})

	r.Get("/v2/models/{model}/versions", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "model")
		versions := svc.ModelReadyVersions(name)
		if len(versions) == 0 {
			writeJSONError(w, http.StatusNotFound, "model '"+name+"' is not ready")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"name": name, "versions": versions})
	})

	r.Post("/v2/repository/models/{model}/load", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.LoadModel(chi.URLParam(r, "model")); err != nil {
			writeStatusError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Post("/v2/repository/models/{model}/unload", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.UnloadModel(chi.URLParam(r, "model")); err != nil {
			writeStatusError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

func modelReady(w http.ResponseWriter, r *http.Request, svc Service, version int64) {
	if svc.ModelIsReady(chi.URLParam(r, "model"), version) {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlogOrNop().Error().Err(err).Msg("encode response")
	}
}

// writeStatusError maps a core status code to an HTTP response.
func writeStatusError(w http.ResponseWriter, err error) {
	writeJSONError(w, httpStatusFor(status.CodeOf(err)), err.Error())
}

func httpStatusFor(code status.Code) int {
	switch code {
	case status.CodeInvalidArg:
		return http.StatusBadRequest
	case status.CodeNotFound:
		return http.StatusNotFound
	case status.CodeAlreadyExists:
		return http.StatusConflict
	case status.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
