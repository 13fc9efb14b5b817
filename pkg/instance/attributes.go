package instance

import "github.com/vango-dev/viewmodel/pkg/template"

// handleAttributes checks a component's attributes against its class
// declaration. Missing required attributes produce a debug warning.
// Undeclared attributes, and decorators, transitions and binding flags
// unless MapAll is set, are moved to the returned partial. With MapAll an
// undeclared attribute stays on the component and the partial refers to
// it through ~/name. The component node is replaced with a copy when
// anything moved.
func (inst *Instance) handleAttributes(env *Env, attrs *Attributes) Partial {
	comp := inst.Component
	if attrs == nil || comp == nil {
		return nil
	}

	present := make(map[string]bool)
	for _, name := range comp.AttributeNames() {
		present[name] = true
	}
	for _, req := range attrs.Required {
		if !present[req] {
			env.warn("component requires attribute", "component", comp.Name, "attribute", req)
		}
	}

	var (
		keep    []*template.Node
		partial Partial
	)
	for _, a := range comp.Mapping {
		switch {
		case a.Type == template.Attribute && !attrs.declared(a.Name):
			if attrs.MapAll {
				keep = append(keep, a)
				partial = append(partial, template.Attr(a.Name, template.Interp("~/"+a.Name)))
			} else {
				partial = append(partial, a)
			}
		case !attrs.MapAll && (a.Type == template.Decorator || a.Type == template.Transition || a.Type == template.BindingFlag):
			partial = append(partial, a)
		default:
			keep = append(keep, a)
		}
	}

	if len(partial) > 0 {
		c := *comp
		c.Mapping = keep
		inst.Component = &c
	}
	return partial
}

// attributeData turns the attributes left on a component into data:
// attributes bound to a single reference are mapped to the parent's model,
// static attributes become plain values and bare attributes become true.
// Keys already present in data are left alone.
func (inst *Instance) attributeData(data map[string]any) map[string]string {
	if inst.Component == nil {
		return nil
	}
	mappings := make(map[string]string)
	for _, a := range inst.Component.Mapping {
		if a.Type != template.Attribute {
			continue
		}
		if len(a.Fragment) == 1 && a.Fragment[0].Type == template.Interpolator && inst.Parent != nil {
			mappings[a.Name] = a.Fragment[0].Ref
			continue
		}
		if _, ok := data[a.Name]; ok {
			continue
		}
		if len(a.Fragment) == 0 {
			data[a.Name] = true
			continue
		}
		if text, ok := staticText(a.Fragment); ok {
			data[a.Name] = text
		}
	}
	return mappings
}

func staticText(nodes []*template.Node) (string, bool) {
	var s string
	for _, n := range nodes {
		if n.Type != template.Text {
			return "", false
		}
		s += n.Text
	}
	return s, true
}
