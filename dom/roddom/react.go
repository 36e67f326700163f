package roddom

import "github.com/hazyhaar/hotstate/dom"

// fiberJS walks from the element's React fiber up to the first component
// fiber (host fibers have a string type) and returns its display name.
const fiberJS = `() => {
	const key = Object.keys(this).find(k =>
		k.startsWith("__reactFiber$") || k.startsWith("__reactInternalInstance$"));
	if (!key) return null;
	let f = this[key];
	while (f && typeof f.type === "string") f = f.return;
	if (!f) return null;
	const t = f.type;
	return {name: (t && (t.displayName || t.name)) || ""};
}`

// ReactProber reads the type name of the React component owning an
// element through the fiber the renderer attaches to DOM nodes. Elements
// from other documents never match.
type ReactProber struct{}

func (ReactProber) TypeName(el dom.Element) (string, bool) {
	e, ok := el.(*Element)
	if !ok {
		return "", false
	}
	res, err := e.el.Eval(fiberJS)
	if err != nil || res.Value.Nil() {
		return "", false
	}
	return res.Value.Get("name").Str(), true
}
