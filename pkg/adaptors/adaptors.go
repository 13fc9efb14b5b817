// Package adaptors provides the built-in adaptors that scenes and the CLI
// can refer to by name.
package adaptors

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/vango-dev/viewmodel/pkg/model"
)

// Names of the built-in adaptors.
const (
	UpperName    = "upper"
	SnapshotName = "snapshot"
	RawJSONName  = "rawjson"
)

// Builtins returns a fresh registry of the built-in adaptors.
func Builtins() map[string]model.Adaptor {
	return map[string]model.Adaptor{
		UpperName:    Upper{},
		SnapshotName: Snapshot{},
		RawJSONName:  RawJSON{},
	}
}

// Upper reads strings in upper case.
type Upper struct{}

// Filter accepts strings.
func (Upper) Filter(v any, _ string, _ any) bool {
	_, ok := v.(string)
	return ok
}

// Wrap implements model.Adaptor.
func (Upper) Wrap(_ any, v any, _ string) model.Wrapper {
	return upperWrapper(v.(string))
}

type upperWrapper string

func (w upperWrapper) Get() any  { return strings.ToUpper(string(w)) }
func (w upperWrapper) Teardown() {}

// Snapshot reads maps as a frozen copy taken when the value was written.
// Later in-place mutation of the original map is not visible until the
// keypath is set or updated again.
type Snapshot struct{}

// Filter accepts map[string]any values.
func (Snapshot) Filter(v any, _ string, _ any) bool {
	_, ok := v.(map[string]any)
	return ok
}

// Wrap implements model.Adaptor.
func (Snapshot) Wrap(_ any, v any, _ string) model.Wrapper {
	return &snapshotWrapper{frozen: model.Clone(v.(map[string]any))}
}

type snapshotWrapper struct {
	frozen map[string]any
}

func (w *snapshotWrapper) Get() any  { return w.frozen }
func (w *snapshotWrapper) Teardown() { w.frozen = nil }

// RawJSON decodes json.RawMessage values, comments allowed, so they read
// as plain data.
type RawJSON struct{}

// Filter accepts json.RawMessage values.
func (RawJSON) Filter(v any, _ string, _ any) bool {
	_, ok := v.(json.RawMessage)
	return ok
}

// Wrap implements model.Adaptor. Malformed input reads as nil.
func (RawJSON) Wrap(_ any, v any, _ string) model.Wrapper {
	var decoded any
	if err := json.Unmarshal(jsonc.ToJSON(v.(json.RawMessage)), &decoded); err != nil {
		decoded = nil
	}
	return rawWrapper{decoded}
}

type rawWrapper struct{ v any }

func (w rawWrapper) Get() any  { return w.v }
func (w rawWrapper) Teardown() {}
