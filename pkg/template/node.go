package template

import "fmt"

// Type is the node type discriminator.
type Type uint8

const (
	Element      Type = iota + 1 // <div>, <ul>, ...
	Text                         // Static text
	Interpolator                 // {{ref}}
	Section                      // {{#each}} and friends
	Attribute                    // name="..."
	Decorator                    // as-tooltip
	Transition                   // fade-in
	BindingFlag                  // twoway, lazy
	Component                    // <Widget/>
)

var typeNames = map[Type]string{
	Element:      "element",
	Text:         "text",
	Interpolator: "interpolator",
	Section:      "section",
	Attribute:    "attribute",
	Decorator:    "decorator",
	Transition:   "transition",
	BindingFlag:  "binding-flag",
	Component:    "component",
}

// String returns the string representation of the Type.
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if _, ok := typeNames[t]; !ok {
		return nil, fmt.Errorf("template: unknown node type %d", t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so scene files can
// spell types by name.
func (t *Type) UnmarshalText(b []byte) error {
	for k, name := range typeNames {
		if name == string(b) {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("template: unknown node type %q", b)
}

// Node is one node of a template tree.
type Node struct {
	Type Type   `json:"type" yaml:"type"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"` // Tag, attribute or component name
	Ref  string `json:"ref,omitempty" yaml:"ref,omitempty"`   // Reference of an interpolator or section
	Text string `json:"text,omitempty" yaml:"text,omitempty"` // For Text

	// Fragment is the value of an attribute or the body of an element,
	// section or component.
	Fragment []*Node `json:"fragment,omitempty" yaml:"fragment,omitempty"`

	// Mapping holds the attribute-like nodes written on an element or
	// component tag: attributes, decorators, transitions, binding flags.
	Mapping []*Node `json:"mapping,omitempty" yaml:"mapping,omitempty"`
}

// IsAttributeLike reports whether n may appear in a Mapping.
func (n *Node) IsAttributeLike() bool {
	if n == nil {
		return false
	}
	switch n.Type {
	case Attribute, Decorator, Transition, BindingFlag:
		return true
	}
	return false
}

// AttributeNames returns the names of the Attribute nodes in n's mapping,
// in order.
func (n *Node) AttributeNames() []string {
	if n == nil {
		return nil
	}
	var names []string
	for _, m := range n.Mapping {
		if m.Type == Attribute {
			names = append(names, m.Name)
		}
	}
	return names
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Fragment = cloneAll(n.Fragment)
	c.Mapping = cloneAll(n.Mapping)
	return &c
}

func cloneAll(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// Walk visits n and every node below it, mapping before fragment, until fn
// returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, m := range n.Mapping {
		if !m.Walk(fn) {
			return false
		}
	}
	for _, f := range n.Fragment {
		if !f.Walk(fn) {
			return false
		}
	}
	return true
}

// Refs returns every reference used by interpolators and sections below n,
// in first-seen order without duplicates.
func (n *Node) Refs() []string {
	var refs []string
	seen := make(map[string]bool)
	n.Walk(func(c *Node) bool {
		if (c.Type == Interpolator || c.Type == Section) && c.Ref != "" && !seen[c.Ref] {
			seen[c.Ref] = true
			refs = append(refs, c.Ref)
		}
		return true
	})
	return refs
}
