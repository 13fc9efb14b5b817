// Package devtools serves a runtime over HTTP for inspection.
//
// Routes:
//
//	GET  /stats                          runtime counters
//	GET  /instances                      every live instance
//	GET  /instances/{guid}               one instance
//	GET  /instances/{guid}/data?keypath= the value at a keypath
//	PUT  /instances/{guid}/data?keypath= write a JSON value
//	GET  /instances/{guid}/snapshot      the data tree as CBOR, JSON or YAML
//	GET  /watch?guid=&keypath=           WebSocket stream of changes
//	GET  /metrics                        Prometheus exposition
package devtools

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vango-dev/viewmodel"
	"github.com/vango-dev/viewmodel/internal/errors"
	"github.com/vango-dev/viewmodel/pkg/datasource"
	"github.com/vango-dev/viewmodel/pkg/fragment"
	"github.com/vango-dev/viewmodel/pkg/instance"
)

// Config configures a Server.
type Config struct {
	// Logger defaults to a discarding logger.
	Logger *slog.Logger

	// Gatherer backs /metrics. The route is not mounted when nil.
	Gatherer prometheus.Gatherer

	// AllowedOrigins restricts WebSocket origins. Empty allows any origin.
	AllowedOrigins []string

	// WatchBuffer is how many changes a slow watcher may fall behind
	// before changes are dropped (default: 64, minimum: 1).
	WatchBuffer int

	// WriteTimeout bounds each WebSocket write (default: 10s).
	WriteTimeout time.Duration
}

// Option configures a Server.
type Option func(*Config)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithGatherer exposes the gatherer on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(c *Config) {
		c.Gatherer = g
	}
}

// WithAllowedOrigins restricts WebSocket origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(c *Config) {
		c.AllowedOrigins = origins
	}
}

// WithWatchBuffer sets the per-watcher change buffer.
func WithWatchBuffer(n int) Option {
	return func(c *Config) {
		c.WatchBuffer = n
	}
}

func defaultConfig() Config {
	return Config{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		WatchBuffer:  64,
		WriteTimeout: 10 * time.Second,
	}
}

// Server exposes one runtime.
type Server struct {
	rt       *viewmodel.Runtime
	cfg      Config
	upgrader websocket.Upgrader
	router   chi.Router
}

// New creates a Server for rt.
func New(rt *viewmodel.Runtime, opts ...Option) *Server {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg.WatchBuffer = max(cfg.WatchBuffer, 1)

	s := &Server{rt: rt, cfg: cfg}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/stats", s.handleStats)
	r.Route("/instances", func(r chi.Router) {
		r.Get("/", s.handleInstances)
		r.Get("/{guid}", s.handleInstance)
		r.Get("/{guid}/data", s.handleGet)
		r.Put("/{guid}/data", s.handleSet)
		r.Get("/{guid}/snapshot", s.handleSnapshot)
	})
	r.Get("/watch", s.handleWatch)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins, r.Header.Get("Origin"))
}

// InstanceInfo describes one instance.
type InstanceInfo struct {
	GUID      string   `json:"guid"`
	Class     string   `json:"class,omitempty"`
	Parent    string   `json:"parent,omitempty"`
	Children  []string `json:"children,omitempty"`
	Isolated  bool     `json:"isolated,omitempty"`
	Adaptors  int      `json:"adaptors"`
	Resolvers int      `json:"resolvers"`
}

func (s *Server) info(inst *instance.Instance) InstanceInfo {
	var info InstanceInfo
	s.rt.Do(func(*fragment.Tree) {
		info = InstanceInfo{
			GUID:      inst.GUID(),
			Class:     inst.Class.Name,
			Isolated:  inst.Isolated,
			Adaptors:  len(inst.Adapt),
			Resolvers: inst.Resolvers(),
		}
		if inst.Parent != nil {
			info.Parent = inst.Parent.GUID()
		}
		for _, c := range inst.Children() {
			info.Children = append(info.Children, c.GUID())
		}
	})
	return info
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rt.Stats())
}

func (s *Server) handleInstances(w http.ResponseWriter, r *http.Request) {
	list := s.rt.Instances()
	out := make([]InstanceInfo, 0, len(list))
	for _, inst := range list {
		out = append(out, s.info(inst))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInstance(w http.ResponseWriter, r *http.Request) {
	inst, err := s.rt.Instance(chi.URLParam(r, "guid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.info(inst))
}

type dataResponse struct {
	Keypath string `json:"keypath"`
	Value   any    `json:"value"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	kp := r.URL.Query().Get("keypath")
	v, err := s.rt.Get(chi.URLParam(r, "guid"), kp)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Keypath: kp, Value: v})
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	kp := r.URL.Query().Get("keypath")
	var value any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&value); err != nil {
		s.writeError(w, r, errors.New("E142").WithDetail("request body is not a JSON value: "+err.Error()))
		return
	}
	if err := s.rt.Set(r.Context(), chi.URLParam(r, "guid"), kp, value); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.cfg.Logger.InfoContext(r.Context(), "keypath set",
		"request_id", middleware.GetReqID(r.Context()),
		"guid", chi.URLParam(r, "guid"),
		"keypath", kp,
	)
	w.WriteHeader(http.StatusNoContent)
}

var contentTypes = map[datasource.Format]string{
	datasource.CBOR: "application/cbor",
	datasource.JSON: "application/json",
	datasource.YAML: "application/yaml",
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	format := datasource.CBOR
	if name := r.URL.Query().Get("format"); name != "" {
		f, err := datasource.FormatFor("." + name)
		if err != nil {
			s.writeError(w, r, errors.New("E141").WithDetail(err.Error()))
			return
		}
		format = f
	}

	snap, err := s.rt.Snapshot(chi.URLParam(r, "guid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := datasource.Encode(format, snap)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var e *errors.Error
	if stderrors.As(err, &e) {
		switch e.Code {
		case "E104":
			status = http.StatusNotFound
		case "E007", "E008", "E141", "E142":
			status = http.StatusBadRequest
		case "E006":
			status = http.StatusConflict
		}
	} else {
		e = errors.Newf(errors.CategoryRuntime, "%s", err.Error())
	}
	if status == http.StatusInternalServerError {
		s.cfg.Logger.ErrorContext(r.Context(), "devtools request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"path", r.URL.Path,
			"error", err.Error(),
		)
	}
	writeJSON(w, status, e)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
