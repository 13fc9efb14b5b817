package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "runtime error",
			code:    "E006",
			wantMsg: "Circular dependency detected",
			wantCat: CategoryRuntime,
		},
		{
			name:    "construct error",
			code:    "E101",
			wantMsg: "Missing plugin",
			wantCat: CategoryConstruct,
		},
		{
			name:    "config error",
			code:    "E121",
			wantMsg: "Invalid config file",
			wantCat: CategoryConfig,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestMissingPlugin(t *testing.T) {
	err := MissingPlugin("foo", "adaptor")

	if err.Plugin != "foo" || err.Kind != "adaptor" {
		t.Errorf("Plugin/Kind = %q/%q, want foo/adaptor", err.Plugin, err.Kind)
	}
	msg := err.Error()
	if !strings.Contains(msg, `"foo"`) || !strings.Contains(msg, "adaptor") {
		t.Errorf("Error() = %q, want it to name the plugin and its kind", msg)
	}

	wrapped := fmt.Errorf("construct: %w", err)
	if !stderrors.Is(wrapped, ErrMissingPlugin) {
		t.Error("errors.Is(wrapped, ErrMissingPlugin) = false")
	}
	if stderrors.Is(wrapped, ErrCircular) {
		t.Error("missing plugin error should not match ErrCircular")
	}

	var e *Error
	if !stderrors.As(wrapped, &e) || e.Code != "E101" {
		t.Errorf("errors.As did not recover the E101 error")
	}
}

func TestIsByCode(t *testing.T) {
	err := Circular(10)
	if !stderrors.Is(err, New("E006")) {
		t.Error("errors with the same code should match")
	}
	if stderrors.Is(err, New("E101")) {
		t.Error("errors with different codes should not match")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E121") != nil {
		t.Error("FromError(nil) should return nil")
	}

	base := stderrors.New("boom")
	e := FromError(base, "E121")
	if e.Code != "E121" || !stderrors.Is(e, base) {
		t.Errorf("FromError did not wrap: %v", e)
	}

	same := MissingPlugin("x", "adaptor")
	if FromError(same, "E121") != same {
		t.Error("FromError should return existing *Error unchanged")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	out := MissingPlugin("foo", "adaptor").Format()
	for _, want := range []string{
		"ERROR E101: Missing plugin",
		`Missing "foo" adaptor plugin.`,
		"Hint: Register the adaptor",
		"Learn more: https://vango.dev/docs/viewmodel/errors/E101",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
}

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(MissingPlugin("foo", "adaptor"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got["code"] != "E101" || got["plugin"] != "foo" || got["kind"] != "adaptor" {
		t.Errorf("unexpected JSON: %s", data)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six", 9)
	for _, l := range lines {
		if len(l) > 9 {
			t.Errorf("line %q longer than width", l)
		}
	}
	if strings.Join(lines, " ") != "one two three four five six" {
		t.Errorf("wrapText lost words: %v", lines)
	}
	if wrapText("", 10) != nil {
		t.Error("empty text should produce no lines")
	}
}

func TestRegistryCodesHaveDocs(t *testing.T) {
	for _, code := range GetAllCodes() {
		tmpl, _ := GetTemplate(code)
		if tmpl.Message == "" || !strings.HasSuffix(tmpl.DocURL, code) {
			t.Errorf("code %s has incomplete template: %+v", code, tmpl)
		}
	}
}
