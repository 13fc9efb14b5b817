package main

import (
	stderrors "errors"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vango-dev/viewmodel"
	"github.com/vango-dev/viewmodel/internal/config"
	"github.com/vango-dev/viewmodel/internal/errors"
	"github.com/vango-dev/viewmodel/internal/scene"
	"github.com/vango-dev/viewmodel/pkg/datasource"
	"github.com/vango-dev/viewmodel/pkg/metrics"
	"go.opentelemetry.io/otel"
)

type globalFlags struct {
	config string
	debug  bool
}

// loadConfig reads the config named by --config, or the nearest one to the
// working directory. Without any config file the defaults are used.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.config != "" {
		cfg, err = config.LoadFile(flags.config)
	} else {
		cfg, err = config.LoadFromWorkingDir()
		var e *errors.Error
		if stderrors.As(err, &e) && e.Code == "E120" {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}
	if flags.debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadScene reads the scene given on the command line, or the config's
// default scene.
func loadScene(cfg *config.Config, args []string) (*scene.Scene, error) {
	path := cfg.ScenePath()
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return nil, errors.New("E140").
			WithDetail("No scene file given").
			WithSuggestion("Pass a scene file or set \"scene\" in " + config.JSONFileName)
	}
	return scene.Load(path)
}

// session is everything a command needs to run a scene.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	rt       *viewmodel.Runtime
	registry *prometheus.Registry
	loader   *datasource.Loader
}

func newSession(cfg *config.Config, sc *scene.Scene, logw io.Writer) *session {
	s := &session{cfg: cfg, logger: cfg.Logger(logw)}

	opts := []viewmodel.Option{
		viewmodel.WithLogger(s.logger),
		viewmodel.WithDebug(cfg.Debug),
		viewmodel.WithMaxDepth(cfg.MaxDepth),
	}
	if cfg.Tracing.TracerName != "" {
		opts = append(opts, viewmodel.WithTracer(otel.Tracer(cfg.Tracing.TracerName)))
	}
	if cfg.Metrics.Enabled {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, viewmodel.WithMetrics(s.registry, metrics.WithNamespace(cfg.Metrics.Namespace)))
	}
	s.rt = viewmodel.New(opts...)

	dir := sc.Dir()
	if dir == "" {
		dir = cfg.Dir()
	}
	loaderOpts := []datasource.Option{datasource.WithBaseDir(filepath.Clean(dir))}
	if cfg.Sources.S3Region != "" {
		client := datasource.NewS3Client(cfg.Sources.S3Region, cfg.Sources.S3Endpoint)
		loaderOpts = append(loaderOpts, datasource.WithS3(client))
	}
	s.loader = datasource.NewLoader(loaderOpts...)
	return s
}
