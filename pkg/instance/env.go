package instance

import (
	"io"
	"log/slog"

	"github.com/vango-dev/viewmodel/pkg/resolve"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vango-dev/viewmodel/pkg/instance"

// Observer is told about instance lifecycle events. pkg/metrics
// implements it.
type Observer interface {
	InstanceConstructed(class string)
	InstanceTornDown(class string)
	ConstructFailed(code string)
}

// Env is what construction needs from the runtime. The embedded resolver
// environment is shared by every resolver the instances create.
type Env struct {
	resolve.Env

	// IDs generates guids. DefaultIDs is used when nil.
	IDs *IDGenerator
	// Debug enables developer warnings.
	Debug bool
	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
	// Instances receives lifecycle events.
	Instances Observer
}

func (e *Env) ids() *IDGenerator {
	if e.IDs == nil {
		return DefaultIDs
	}
	return e.IDs
}

func (e *Env) tracer() trace.Tracer {
	if e.Tracer == nil {
		return otel.Tracer(tracerName)
	}
	return e.Tracer
}

func (e *Env) log() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e.Logger
}

// warn logs a developer warning. Outside debug mode it is silent.
func (e *Env) warn(msg string, args ...any) {
	if e.Debug {
		e.log().Warn(msg, args...)
	}
}
