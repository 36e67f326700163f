// Package identity stamps trackable elements with a stable key so that a
// rebuild which preserves attributes also preserves identity.
package identity

import (
	"crypto/rand"
	"fmt"

	"github.com/hazyhaar/hotstate/dom"
)

// DefaultAttr is the attribute carrying the key.
const DefaultAttr = "data-hotstate-key"

// Generator produces keys.
type Generator func() string

// NanoID returns a Generator of base-36 strings of the given length.
func NanoID(length int) Generator {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	return func() string {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("identity: crypto/rand failed: " + err.Error())
		}
		for i := range buf {
			buf[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		return string(buf)
	}
}

// Prefixed prepends a fixed prefix to every generated key.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string { return prefix + gen() }
}

// DefaultGenerator yields keys like "hs-k3v9x0a2qe". Ten base-36 characters
// keep collisions negligible for any real tree.
var DefaultGenerator = Prefixed("hs-", NanoID(10))

// Tagger assigns keys through one attribute.
type Tagger struct {
	Attr string
	Gen  Generator
}

// New returns a Tagger; empty attr and nil gen select the defaults.
func New(attr string, gen Generator) *Tagger {
	if attr == "" {
		attr = DefaultAttr
	}
	if gen == nil {
		gen = DefaultGenerator
	}
	return &Tagger{Attr: attr, Gen: gen}
}

// Key returns the key already carried by el, if any.
func (t *Tagger) Key(el dom.Element) (string, bool) {
	k, ok := el.Attr(t.Attr)
	return k, ok && k != ""
}

// EnsureKey returns the element's key, generating and attaching one first
// when it has none.
func (t *Tagger) EnsureKey(el dom.Element) (string, error) {
	if k, ok := t.Key(el); ok {
		return k, nil
	}
	k := t.Gen()
	if err := el.SetAttr(t.Attr, k); err != nil {
		return "", fmt.Errorf("identity: set %s: %w", t.Attr, err)
	}
	return k, nil
}

// Assign writes key onto el, replacing any key the rebuild generated.
func (t *Tagger) Assign(el dom.Element, key string) error {
	if k, ok := t.Key(el); ok && k == key {
		return nil
	}
	if err := el.SetAttr(t.Attr, key); err != nil {
		return fmt.Errorf("identity: assign %s: %w", t.Attr, err)
	}
	return nil
}
