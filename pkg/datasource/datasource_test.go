package datasource

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/vango-dev/viewmodel/internal/errors"
)

func TestFormatFor(t *testing.T) {
	tests := []struct {
		name string
		want Format
		ok   bool
	}{
		{"a.json", JSON, true},
		{"a.JSONC", JSON, true},
		{"dir/a.yaml", YAML, true},
		{"a.yml", YAML, true},
		{"a.cbor", CBOR, true},
		{"a.txt", 0, false},
		{"noext", 0, false},
	}
	for _, tt := range tests {
		got, err := FormatFor(tt.name)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("FormatFor(%q) = %v, %v; want %v, ok=%v", tt.name, got, err, tt.want, tt.ok)
		}
	}
}

func TestDecode(t *testing.T) {
	want := map[string]any{
		"title": "Todo",
		"items": []any{map[string]any{"done": true}},
	}

	cborData, err := Encode(CBOR, want)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		format Format
		data   []byte
	}{
		{JSON, []byte(`{
			// list title
			"title": "Todo",
			"items": [{"done": true},],
		}`)},
		{YAML, []byte("title: Todo\nitems:\n  - done: true\n")},
		{CBOR, cborData},
	}
	for _, tt := range tests {
		got, err := Decode(tt.format, tt.data)
		if err != nil {
			t.Errorf("Decode(%s): %v", tt.format, err)
			continue
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Decode(%s) = %#v, want %#v", tt.format, got, want)
		}
	}
}

func TestEncodeCBORIsDeterministic(t *testing.T) {
	a, _ := Encode(CBOR, map[string]any{"b": 1, "a": 2, "c": []any{"x"}})
	b, _ := Encode(CBOR, map[string]any{"c": []any{"x"}, "a": 2, "b": 1})
	if !bytes.Equal(a, b) {
		t.Error("equal maps encoded differently")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.yaml"), []byte("count: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(WithBaseDir(dir))
	data, err := l.Load(context.Background(), "data.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if data["count"] != 3 {
		t.Errorf("count = %#v", data["count"])
	}

	abs := "file://" + filepath.Join(dir, "data.yaml")
	if _, err := NewLoader().Load(context.Background(), abs); err != nil {
		t.Errorf("Load(%s): %v", abs, err)
	}
}

type fakeS3 struct {
	objects map[string]string
	calls   []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.calls = append(f.calls, key)
	body, ok := f.objects[key]
	if !ok {
		return nil, stderrors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(body)))}, nil
}

func TestLoadS3(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{
		"fixtures/todo/list.json": `{"items": ["a", "b"]}`,
	}}
	l := NewLoader(WithS3(fake))

	data, err := l.Load(context.Background(), "s3://fixtures/todo/list.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(data["items"], []any{"a", "b"}) {
		t.Errorf("items = %#v", data["items"])
	}
	if !reflect.DeepEqual(fake.calls, []string{"fixtures/todo/list.json"}) {
		t.Errorf("calls = %v", fake.calls)
	}

	_, err = l.Load(context.Background(), "s3://fixtures/missing.json")
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "E141" {
		t.Errorf("missing object: err = %v, want E141", err)
	}
}

func TestS3MaxSize(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{"b/big.json": `{"x": "0123456789"}`}}
	l := NewLoader(WithFetcher("s3", S3Fetcher{Client: fake, MaxSize: 8}))
	if _, err := l.Load(context.Background(), "s3://b/big.json"); err == nil {
		t.Error("expected size limit error")
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{`), 0644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader(WithBaseDir(dir))

	for _, loc := range []string{
		"http://example.com/data.json",
		"s3://bucket/data.json",
		"data.txt",
		"missing.json",
		"bad.json",
	} {
		_, err := l.Load(context.Background(), loc)
		var e *errors.Error
		if !stderrors.As(err, &e) || e.Code != "E141" {
			t.Errorf("Load(%q): err = %v, want E141", loc, err)
		}
	}
}
