package datasource

import (
	"encoding/json"
	"fmt"
	"path"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format is a data encoding.
type Format uint8

const (
	JSON Format = iota + 1
	YAML
	CBOR
)

// String returns the string representation of the Format.
func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	case CBOR:
		return "cbor"
	default:
		return "unknown"
	}
}

// FormatFor picks the format for a file name by its extension.
func FormatFor(name string) (Format, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".jsonc":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".cbor":
		return CBOR, nil
	}
	return 0, fmt.Errorf("no data format for %q", name)
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("datasource: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		// Data trees are keyed by strings everywhere else.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("datasource: CBOR decoder initialization failed: " + err.Error())
	}
}

// Decode parses data into a top-level map.
func Decode(f Format, data []byte) (map[string]any, error) {
	out := map[string]any{}
	var err error
	switch f {
	case JSON:
		err = json.Unmarshal(jsonc.ToJSON(data), &out)
	case YAML:
		err = yaml.Unmarshal(data, &out)
	case CBOR:
		err = decMode.Unmarshal(data, &out)
	default:
		err = fmt.Errorf("unknown format %d", f)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Encode serialises v. CBOR output uses core deterministic encoding, so
// equal data always produces equal bytes.
func Encode(f Format, v any) ([]byte, error) {
	switch f {
	case JSON:
		return json.MarshalIndent(v, "", "  ")
	case YAML:
		return yaml.Marshal(v)
	case CBOR:
		return encMode.Marshal(v)
	}
	return nil, fmt.Errorf("unknown format %d", f)
}
