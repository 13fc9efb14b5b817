package template

// Attr creates an attribute node whose value is the given fragment.
func Attr(name string, value ...*Node) *Node {
	return &Node{Type: Attribute, Name: name, Fragment: value}
}

// Static creates a text node.
func Static(text string) *Node {
	return &Node{Type: Text, Text: text}
}

// Interp creates an interpolator for ref.
func Interp(ref string) *Node {
	return &Node{Type: Interpolator, Ref: ref}
}

// Decorate creates a decorator node.
func Decorate(name string) *Node {
	return &Node{Type: Decorator, Name: name}
}

// Transit creates a transition node.
func Transit(name string) *Node {
	return &Node{Type: Transition, Name: name}
}

// Flag creates a binding flag node.
func Flag(name string) *Node {
	return &Node{Type: BindingFlag, Name: name}
}

// Comp creates a component node with the given attribute-like mapping.
func Comp(name string, mapping ...*Node) *Node {
	return &Node{Type: Component, Name: name, Mapping: mapping}
}
