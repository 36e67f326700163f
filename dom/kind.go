package dom

import "strings"

// InputType returns the lower-cased type of an input element, "text" when
// the attribute is missing.
func InputType(el Element) string {
	t, ok := el.Attr("type")
	if !ok || t == "" {
		return "text"
	}
	return strings.ToLower(t)
}

// IsCheckable reports checkbox and radio inputs.
func IsCheckable(el Element) bool {
	if el.Tag() != "input" {
		return false
	}
	t := InputType(el)
	return t == "checkbox" || t == "radio"
}

// HasSelectionAPI reports whether the element exposes selectionStart and
// selectionEnd. Browsers only expose them on textarea and on a few input
// types; email and number throw.
func HasSelectionAPI(el Element) bool {
	switch el.Tag() {
	case "textarea":
		return true
	case "input":
		switch InputType(el) {
		case "text", "search", "url", "tel", "password":
			return true
		}
	}
	return false
}

// IsEditable reports elements whose whole content is user-editable.
func IsEditable(el Element) bool {
	v, ok := el.Attr("contenteditable")
	if !ok {
		return false
	}
	switch strings.ToLower(v) {
	case "", "true", "plaintext-only":
		return true
	}
	return false
}

// IsValueBearing reports the controls whose value property is state.
func IsValueBearing(el Element) bool {
	switch el.Tag() {
	case "input", "textarea", "select":
		return true
	}
	return false
}
