// Package scene describes an instance tree in a YAML or JSON file so the
// CLI can build it through the binding core.
//
// A scene names classes, a root instance with its data, and the fragments
// to mount below it. Every fragment lists the references to resolve from
// it:
//
//	classes:
//	  card:
//	    attributes: {required: [title]}
//	    computed:
//	      label: {op: concat, deps: [title, suffix]}
//	root:
//	  source: people.yaml
//	  adapt: [upper]
//	  fragments:
//	    - repeat: {each: people, index: i}
//	      resolve: [name, "@index", "@keypath"]
package scene

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/vango-dev/viewmodel/internal/errors"
	"github.com/vango-dev/viewmodel/pkg/template"
	"gopkg.in/yaml.v3"
)

// Scene is a parsed scene file.
type Scene struct {
	Classes map[string]*Class `yaml:"classes,omitempty" json:"classes,omitempty"`
	Root    Root              `yaml:"root" json:"root"`

	path string
}

// Class declares an instance class.
type Class struct {
	Extends    string              `yaml:"extends,omitempty" json:"extends,omitempty"`
	Adapt      []string            `yaml:"adapt,omitempty" json:"adapt,omitempty"`
	Data       map[string]any      `yaml:"data,omitempty" json:"data,omitempty"`
	Attributes *Attributes         `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Computed   map[string]Computed `yaml:"computed,omitempty" json:"computed,omitempty"`
	Isolated   bool                `yaml:"isolated,omitempty" json:"isolated,omitempty"`
}

// Attributes mirrors instance.Attributes.
type Attributes struct {
	Required []string `yaml:"required,omitempty" json:"required,omitempty"`
	Optional []string `yaml:"optional,omitempty" json:"optional,omitempty"`
	MapAll   bool     `yaml:"mapAll,omitempty" json:"mapAll,omitempty"`
}

// Computed is a computed property built from one of the named operations.
type Computed struct {
	Op   string   `yaml:"op" json:"op"`
	Deps []string `yaml:"deps" json:"deps"`
}

// Root describes the root instance.
type Root struct {
	Class string `yaml:"class,omitempty" json:"class,omitempty"`
	// Source is a file path or s3:// URL whose data is loaded first. Inline
	// Data is merged on top of it.
	Source    string         `yaml:"source,omitempty" json:"source,omitempty"`
	Data      map[string]any `yaml:"data,omitempty" json:"data,omitempty"`
	Adapt     []string       `yaml:"adapt,omitempty" json:"adapt,omitempty"`
	Isolated  bool           `yaml:"isolated,omitempty" json:"isolated,omitempty"`
	Fragments []Fragment     `yaml:"fragments,omitempty" json:"fragments,omitempty"`
}

// Fragment is a fragment to mount, with the references resolved from it.
type Fragment struct {
	Context     string       `yaml:"context,omitempty" json:"context,omitempty"`
	Repeat      *Repeat      `yaml:"repeat,omitempty" json:"repeat,omitempty"`
	Resolve     []string     `yaml:"resolve,omitempty" json:"resolve,omitempty"`
	Expressions []Expression `yaml:"expressions,omitempty" json:"expressions,omitempty"`
	Children    []Fragment   `yaml:"children,omitempty" json:"children,omitempty"`
	Components  []Component  `yaml:"components,omitempty" json:"components,omitempty"`
}

// Repeat turns a fragment into a section that renders its body once per
// item of the list at Each.
type Repeat struct {
	Each  string `yaml:"each" json:"each"`
	Index string `yaml:"index,omitempty" json:"index,omitempty"`
}

// Expression is a computed reference over Refs.
type Expression struct {
	Op   string   `yaml:"op" json:"op"`
	Refs []string `yaml:"refs" json:"refs"`
}

// Signature returns the expression text with references as placeholders.
func (e Expression) Signature() string {
	ph := make([]string, len(e.Refs))
	for i := range e.Refs {
		ph[i] = fmt.Sprintf("_%d", i)
	}
	return e.Op + "(" + strings.Join(ph, ",") + ")"
}

// Component is a component instance rendered inside a fragment.
type Component struct {
	Class string `yaml:"class" json:"class"`
	// Node carries the attributes. When nil a bare component node is used.
	Node      *template.Node `yaml:"node,omitempty" json:"node,omitempty"`
	Data      map[string]any `yaml:"data,omitempty" json:"data,omitempty"`
	Isolated  bool           `yaml:"isolated,omitempty" json:"isolated,omitempty"`
	Fragments []Fragment     `yaml:"fragments,omitempty" json:"fragments,omitempty"`
}

// Load reads and validates a scene file. YAML is chosen by extension,
// anything else is parsed as JSON with comments.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E140").Wrap(err).
			WithDetail("Cannot read scene " + path)
	}
	sc, err := Parse(data, isYAML(path))
	if err != nil {
		return nil, err
	}
	sc.path = path
	return sc, nil
}

// Parse decodes and validates scene data.
func Parse(data []byte, yamlSyntax bool) (*Scene, error) {
	sc := &Scene{}
	var err error
	if yamlSyntax {
		err = yaml.Unmarshal(data, sc)
	} else {
		err = json.Unmarshal(jsonc.ToJSON(data), sc)
	}
	if err != nil {
		return nil, errors.New("E140").
			WithDetail("Failed to parse scene: " + err.Error()).
			WithSuggestion("Check the file syntax")
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Path returns the file the scene was loaded from.
func (s *Scene) Path() string { return s.path }

// Dir returns the directory of the scene file, or "" for parsed data.
func (s *Scene) Dir() string {
	if s.path == "" {
		return ""
	}
	return filepath.Dir(s.path)
}

// ClassNames returns the declared class names, sorted.
func (s *Scene) ClassNames() []string {
	names := make([]string, 0, len(s.Classes))
	for name := range s.Classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks class references, extends cycles and operation names.
func (s *Scene) Validate() error {
	for _, name := range s.ClassNames() {
		c := s.Classes[name]
		if c == nil {
			return invalid("class %q is empty", name)
		}
		seen := map[string]bool{name: true}
		for parent := c.Extends; parent != ""; parent = s.Classes[parent].Extends {
			if _, ok := s.Classes[parent]; !ok {
				return invalid("class %q extends unknown class %q", name, parent)
			}
			if seen[parent] {
				return invalid("class %q has an extends cycle through %q", name, parent)
			}
			seen[parent] = true
		}
		for prop, comp := range c.Computed {
			if _, ok := ops[comp.Op]; !ok {
				return invalid("computed %s.%s uses unknown op %q", name, prop, comp.Op)
			}
		}
	}
	if s.Root.Class != "" {
		if _, ok := s.Classes[s.Root.Class]; !ok {
			return invalid("root uses unknown class %q", s.Root.Class)
		}
	}
	return s.validateFragments("root", s.Root.Fragments)
}

func (s *Scene) validateFragments(where string, frags []Fragment) error {
	for i, f := range frags {
		at := fmt.Sprintf("%s.fragments[%d]", where, i)
		if f.Repeat != nil && f.Repeat.Each == "" {
			return invalid("%s: repeat needs each", at)
		}
		for _, e := range f.Expressions {
			if _, ok := ops[e.Op]; !ok {
				return invalid("%s: expression uses unknown op %q", at, e.Op)
			}
		}
		for j, c := range f.Components {
			if c.Class == "" {
				return invalid("%s.components[%d]: class is required", at, j)
			}
			if err := s.validateFragments(fmt.Sprintf("%s.components[%d]", at, j), c.Fragments); err != nil {
				return err
			}
		}
		if err := s.validateFragments(at, f.Children); err != nil {
			return err
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.New("E140").WithDetail(fmt.Sprintf(format, args...))
}
