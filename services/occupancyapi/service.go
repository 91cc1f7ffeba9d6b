// Package occupancyapi serves the recorded pool occupancy samples over http.
package occupancyapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"poolwatch-backend/lib/samplestore"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultPath = "/SamkPoolOccupancy"

type Options struct {
	// Path defaults to DefaultPath, it is also served in lowercase.
	Path string
}

type Service struct {
	store samplestore.Reader
	path  string
}

func NewService(store samplestore.Reader, opts Options) Service {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if !strings.HasPrefix(opts.Path, "/") {
		opts.Path = "/" + opts.Path
	}
	return Service{
		store: store,
		path:  opts.Path,
	}
}

// Handler returns the routes of the service wrapped in otel instrumentation.
func (s Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.serveSamples)
	if lower := strings.ToLower(s.path); lower != s.path {
		mux.HandleFunc(lower, s.serveSamples)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return otelhttp.NewHandler(mux, "occupancyapi")
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s Service) serveSamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("allow", "GET, HEAD")
		writeJson(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	samples, err := s.store.All(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "list samples", "err", err)
		writeJson(w, http.StatusInternalServerError, errorResponse{Error: "failed to read samples"})
		return
	}
	if samples == nil {
		samples = []samplestore.Sample{}
	}
	writeJson(w, http.StatusOK, samples)
}

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Debug("write response", "err", err)
	}
}
