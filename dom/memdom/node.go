package memdom

import (
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/hazyhaar/hotstate/dom"
)

// Node is the dom.Node view of a raw html node.
type Node struct {
	doc *Document
	n   *html.Node
}

// Raw returns the underlying html node.
func (n *Node) Raw() *html.Node { return n.n }

func (n *Node) Kind() dom.NodeKind {
	switch n.n.Type {
	case html.ElementNode:
		return dom.ElementNode
	case html.TextNode:
		return dom.TextNode
	}
	return dom.OtherNode
}

func (n *Node) Parent() (dom.Node, error) {
	if n.n.Parent == nil {
		return nil, nil
	}
	return n.doc.Wrap(n.n.Parent), nil
}

func (n *Node) Children() ([]dom.Node, error) {
	var out []dom.Node
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, n.doc.Wrap(c))
	}
	return out, nil
}

func (n *Node) Len() (int, error) {
	if n.n.Type == html.TextNode {
		return utf8.RuneCountInString(n.n.Data), nil
	}
	count := 0
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		count++
	}
	return count, nil
}

func (n *Node) Same(other dom.Node) bool {
	o := rawNode(other)
	return o != nil && o == n.n
}

// Text returns the data of a text node, or the concatenated text content
// of any other node.
func (n *Node) Text() string {
	return textContent(n.n)
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b []byte
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b = append(b, textContent(c)...)
	}
	return string(b)
}
