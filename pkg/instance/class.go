package instance

import (
	"github.com/vango-dev/viewmodel/pkg/model"
	"github.com/vango-dev/viewmodel/pkg/template"
)

// Adaptor is the adaptor contract of the data model.
type Adaptor = model.Adaptor

// Partial is a named template fragment.
type Partial = []*template.Node

// ExtraAttributesPartial names the partial that receives a component's
// undeclared attributes.
const ExtraAttributesPartial = "extra-attributes"

// DataFunc produces an instance's initial data. It is called once per
// construction, so instances never share a data tree by accident.
type DataFunc func(inst *Instance) map[string]any

// ComputedDef declares a computed property.
type ComputedDef struct {
	Deps []string
	Get  model.Getter
}

// Attributes declares the attributes a component accepts.
type Attributes struct {
	Required []string
	Optional []string
	// MapAll maps undeclared attributes into the component's data instead
	// of moving them to the extra-attributes partial.
	MapAll bool
}

func (a *Attributes) declared(name string) bool {
	for _, n := range a.Required {
		if n == name {
			return true
		}
	}
	for _, n := range a.Optional {
		if n == name {
			return true
		}
	}
	return false
}

// Class is a constructor: the registries, defaults and attribute rules
// shared by every instance built from it.
type Class struct {
	Name string

	// Extends is the class this one was derived from. Registries, adaptor
	// lists, data and computed properties are inherited along it.
	Extends *Class

	Adaptors    map[string]Adaptor
	Components  map[string]*Class
	Partials    map[string]Partial
	Decorators  map[string]any
	Transitions map[string]any

	// Adapt lists the adaptors every instance uses.
	Adapt []AdaptorRef
	// Data is either a DataFunc or, for classes that are never used as
	// components, a map[string]any.
	Data any
	// Computed properties, by name.
	Computed map[string]ComputedDef

	Attributes *Attributes
	Isolated   bool
}

// Extend derives a new class from c.
func (c *Class) Extend(sub Class) *Class {
	sub.Extends = c
	return &sub
}

// chain returns the class hierarchy from the base class down to c.
func (c *Class) chain() []*Class {
	var out []*Class
	for cur := c; cur != nil; cur = cur.Extends {
		out = append([]*Class{cur}, out...)
	}
	return out
}

// attributes returns the nearest attribute declaration on the chain.
func (c *Class) attributes() *Attributes {
	for cur := c; cur != nil; cur = cur.Extends {
		if cur.Attributes != nil {
			return cur.Attributes
		}
	}
	return nil
}

// registry builds the prototype registry chain for one registry kind.
func registry[T any](c *Class, pick func(*Class) map[string]T) *Registry[T] {
	var reg *Registry[T]
	for _, cur := range c.chain() {
		reg = NewRegistry(reg, pick(cur))
	}
	return reg
}

// AdaptorRef names an adaptor or holds one directly.
type AdaptorRef struct {
	Name    string
	Adaptor Adaptor
}

// ByName refers to an adaptor registered under name somewhere in the view
// hierarchy.
func ByName(name string) AdaptorRef {
	return AdaptorRef{Name: name}
}

// Direct refers to an adaptor value.
func Direct(a Adaptor) AdaptorRef {
	return AdaptorRef{Adaptor: a}
}

func (r AdaptorRef) String() string {
	if r.Adaptor != nil {
		return "<adaptor>"
	}
	return r.Name
}
