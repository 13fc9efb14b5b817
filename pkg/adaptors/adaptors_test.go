package adaptors

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/vango-dev/viewmodel/pkg/model"
)

func TestUpper(t *testing.T) {
	r := model.NewRoot([]model.Adaptor{Upper{}}, map[string]any{"name": "ada", "n": 3}, nil, nil)
	if got := r.Get("name"); got != "ADA" {
		t.Errorf("name = %v, want ADA", got)
	}
	if got := r.Get("n"); got != 3 {
		t.Errorf("n = %v, non-strings should pass through", got)
	}
}

func TestSnapshotFreezes(t *testing.T) {
	inner := map[string]any{"x": 1, "list": []any{map[string]any{"y": 2}}}
	r := model.NewRoot([]model.Adaptor{Snapshot{}}, map[string]any{"obj": inner}, nil, nil)

	first := r.Joinall("obj").Get().(map[string]any)
	inner["x"] = 99
	inner["list"].([]any)[0].(map[string]any)["y"] = 99

	if first["x"] != 1 {
		t.Errorf("snapshot saw in-place write: x = %v", first["x"])
	}
	if y := first["list"].([]any)[0].(map[string]any)["y"]; y != 2 {
		t.Errorf("snapshot shares nested maps: y = %v", y)
	}

	r.Update("obj")
	if got := r.Joinall("obj").Get().(map[string]any)["x"]; got != 99 {
		t.Errorf("after Update x = %v, want 99", got)
	}
}

func TestRawJSON(t *testing.T) {
	raw := json.RawMessage(`{
		// comments are fine
		"a": [1, 2]
	}`)
	r := model.NewRoot([]model.Adaptor{RawJSON{}}, map[string]any{"doc": raw}, nil, nil)
	want := map[string]any{"a": []any{float64(1), float64(2)}}
	if got := r.Joinall("doc").Get(); !reflect.DeepEqual(got, want) {
		t.Errorf("doc = %#v, want %#v", got, want)
	}

	bad := model.NewRoot([]model.Adaptor{RawJSON{}}, map[string]any{"doc": json.RawMessage(`{`)}, nil, nil)
	if got := bad.Joinall("doc").Get(); got != nil {
		t.Errorf("malformed doc = %v, want nil", got)
	}
}

func TestBuiltins(t *testing.T) {
	b := Builtins()
	for _, name := range []string{UpperName, SnapshotName, RawJSONName} {
		if b[name] == nil {
			t.Errorf("missing builtin %q", name)
		}
	}
	b[UpperName] = nil
	if Builtins()[UpperName] == nil {
		t.Error("Builtins should return a fresh map")
	}
}
