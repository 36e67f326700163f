package signature

import "github.com/hazyhaar/hotstate/dom"

// ComponentProber reads the type name of the UI-framework component that
// owns an element, when the runtime exposes one. ok is false when no
// instance is linked to the element; name may be empty when an instance
// exists but is anonymous.
type ComponentProber interface {
	TypeName(el dom.Element) (name string, ok bool)
}

// NoopProber never finds a component instance.
type NoopProber struct{}

func (NoopProber) TypeName(dom.Element) (string, bool) { return "", false }

// AttrProber reads the component type name from an attribute stamped by
// the framework or a build plugin (e.g. data-component="TodoItem").
type AttrProber struct {
	Attr string
}

func (p AttrProber) TypeName(el dom.Element) (string, bool) {
	if p.Attr == "" {
		return "", false
	}
	return el.Attr(p.Attr)
}

// ProberFunc adapts a function to ComponentProber.
type ProberFunc func(el dom.Element) (string, bool)

func (f ProberFunc) TypeName(el dom.Element) (string, bool) { return f(el) }

// ComponentInstanceID returns "component-" + SmallHash(type name), using
// "unknown" for anonymous instances, or "" when the prober finds nothing.
// A nil prober behaves like NoopProber.
func ComponentInstanceID(p ComponentProber, el dom.Element) string {
	if p == nil {
		return ""
	}
	name, ok := p.TypeName(el)
	if !ok {
		return ""
	}
	if name == "" {
		name = "unknown"
	}
	return "component-" + SmallHash(name)
}
