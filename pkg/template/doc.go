// Package template holds the parsed template tree the binding core consumes.
//
// Nothing here parses markup. Nodes arrive already built, from a scene file
// or from code, and the instance package reads the attribute, interpolator,
// decorator, transition and binding-flag nodes hung off a component.
package template
