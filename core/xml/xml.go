// Package xml holds the intermediate GEDCOM tree.
//
// Each GEDCOM line becomes one element named after its tag, carrying the
// line's data in a Value attribute, with higher-level lines as child
// elements in the order they were read. Level-0 records hang off a single
// GEDCOM root element. The tree is backed by xmlquery nodes so importer
// lookups can use XPath steps such as "BIRT/DATE".
//
// Security Notes:
//   - XXE (External Entity) attacks are mitigated by using Go's xml.Decoder
//     through xmlquery, which does not fetch external entities.
package xml

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/FocuswithJustin/EasyTree/core/encoding"
	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

const (
	// RootName is the element every level-0 record is attached to.
	RootName = "GEDCOM"
	// ValueAttr holds the data part of a GEDCOM line.
	ValueAttr = "Value"
)

// Document is a GEDCOM tree.
type Document struct {
	root *xmlquery.Node
}

// Node is one element of the tree.
type Node struct {
	node *xmlquery.Node
}

// WriteOptions controls XML output.
type WriteOptions struct {
	Indent string // Indentation string (e.g., "  " or "\t")
}

// NewDocument returns a tree holding only the declaration and the root.
func NewDocument() *Document {
	doc := &xmlquery.Node{Type: xmlquery.DocumentNode}
	decl := &xmlquery.Node{Type: xmlquery.DeclarationNode, Data: "xml"}
	xmlquery.AddAttr(decl, "version", "1.0")
	xmlquery.AddAttr(decl, "encoding", "UTF-8")
	xmlquery.AddChild(doc, decl)
	xmlquery.AddChild(doc, &xmlquery.Node{Type: xmlquery.ElementNode, Data: RootName})
	return &Document{root: doc}
}

// Load reads a tree written by Write.
func Load(r io.Reader) (*Document, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	doc := &Document{root: root}
	if doc.Root() == nil {
		return nil, fmt.Errorf("parsing XML: no root element")
	}
	return doc, nil
}

// Root returns the root element of the document.
func (d *Document) Root() *Node {
	if d.root == nil {
		return nil
	}
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return &Node{node: child}
		}
	}
	return nil
}

// Records returns the level-0 records named tag, in file order.
func (d *Document) Records(tag string) []*Node {
	root := d.Root()
	if root == nil {
		return nil
	}
	return root.ChildrenNamed(tag)
}

var exprCache sync.Map // string -> *xpath.Expr

func compile(expr string) (*xpath.Expr, error) {
	if cached, ok := exprCache.Load(expr); ok {
		return cached.(*xpath.Expr), nil
	}
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	exprCache.Store(expr, compiled)
	return compiled, nil
}

func wrap(nodes []*xmlquery.Node) []*Node {
	result := make([]*Node, len(nodes))
	for i, n := range nodes {
		result[i] = &Node{node: n}
	}
	return result
}

// XPath executes an XPath query against the whole document.
func (d *Document) XPath(expr string) ([]*Node, error) {
	compiled, err := compile(expr)
	if err != nil {
		return nil, err
	}
	return wrap(xmlquery.QuerySelectorAll(d.root, compiled)), nil
}

// Write serializes the tree. Attribute values keep their line breaks.
func (d *Document) Write(w io.Writer, opts WriteOptions) error {
	if opts.Indent == "" {
		opts.Indent = "  "
	}
	bw := bufio.NewWriter(w)
	if err := formatNode(bw, d.root, 0, opts.Indent); err != nil {
		return err
	}
	return bw.Flush()
}

// formatNode recursively writes a node. Only the node kinds a GEDCOM tree
// contains are emitted; whitespace text between elements is dropped.
func formatNode(w *bufio.Writer, n *xmlquery.Node, depth int, indent string) error {
	switch n.Type {
	case xmlquery.DocumentNode:
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if err := formatNode(w, child, depth, indent); err != nil {
				return err
			}
		}

	case xmlquery.DeclarationNode:
		w.WriteString("<?xml")
		for _, attr := range n.Attr {
			w.WriteString(" ")
			w.WriteString(attr.Name.Local)
			w.WriteString("=\"")
			w.WriteString(encoding.EscapeXMLAttr(attr.Value))
			w.WriteString("\"")
		}
		w.WriteString("?>\n")

	case xmlquery.ElementNode:
		writeIndent(w, depth, indent)
		w.WriteString("<")
		w.WriteString(n.Data)
		for _, attr := range n.Attr {
			w.WriteString(" ")
			if attr.Name.Space != "" {
				w.WriteString(attr.Name.Space)
				w.WriteString(":")
			}
			w.WriteString(attr.Name.Local)
			w.WriteString("=\"")
			w.WriteString(encoding.EscapeXMLAttr(attr.Value))
			w.WriteString("\"")
		}

		hasElementChildren := false
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == xmlquery.ElementNode {
				hasElementChildren = true
				break
			}
		}
		if !hasElementChildren {
			w.WriteString("/>\n")
			return nil
		}

		w.WriteString(">\n")
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != xmlquery.ElementNode {
				continue
			}
			if err := formatNode(w, child, depth+1, indent); err != nil {
				return err
			}
		}
		writeIndent(w, depth, indent)
		w.WriteString("</")
		w.WriteString(n.Data)
		w.WriteString(">\n")

	case xmlquery.CommentNode:
		writeIndent(w, depth, indent)
		w.WriteString("<!--")
		w.WriteString(n.Data)
		w.WriteString("-->\n")
	}

	return nil
}

func writeIndent(w *bufio.Writer, depth int, indent string) {
	for i := 0; i < depth; i++ {
		w.WriteString(indent)
	}
}

// AppendChild adds a new last child element named tag with the given value.
// Tags that are not XML names are rejected.
func (n *Node) AppendChild(tag, value string) (*Node, error) {
	if !encoding.IsXMLName(tag) {
		return nil, fmt.Errorf("invalid element name %q", tag)
	}
	child := &xmlquery.Node{Type: xmlquery.ElementNode, Data: tag}
	xmlquery.AddAttr(child, ValueAttr, value)
	xmlquery.AddChild(n.node, child)
	return &Node{node: child}, nil
}

// Remove detaches the node from its parent.
func (n *Node) Remove() {
	xmlquery.RemoveFromTree(n.node)
}

// Parent returns the parent element, or nil at the root.
func (n *Node) Parent() *Node {
	if n.node.Parent == nil || n.node.Parent.Type != xmlquery.ElementNode {
		return nil
	}
	return &Node{node: n.node.Parent}
}

// Name returns the element name, which is the GEDCOM tag.
func (n *Node) Name() string {
	if n.node == nil {
		return ""
	}
	return n.node.Data
}

// Value returns the line data held by the node.
func (n *Node) Value() string {
	if n.node == nil {
		return ""
	}
	return n.node.SelectAttr(ValueAttr)
}

// SetValue replaces the line data held by the node.
func (n *Node) SetValue(value string) {
	n.node.SetAttr(ValueAttr, value)
}

// Children returns the child element nodes.
func (n *Node) Children() []*Node {
	if n.node == nil {
		return nil
	}
	var children []*Node
	for child := n.node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			children = append(children, &Node{node: child})
		}
	}
	return children
}

// ChildrenNamed returns the direct children named tag.
func (n *Node) ChildrenNamed(tag string) []*Node {
	var children []*Node
	for child := n.node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode && child.Data == tag {
			children = append(children, &Node{node: child})
		}
	}
	return children
}

// Child returns the first direct child named tag, or nil.
func (n *Node) Child(tag string) *Node {
	for child := n.node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode && child.Data == tag {
			return &Node{node: child}
		}
	}
	return nil
}

// Find evaluates a path relative to the node ("BIRT/DATE", "FAMC[@Value='@F1@']").
// An invalid path matches nothing.
func (n *Node) Find(path string) []*Node {
	compiled, err := compile(path)
	if err != nil {
		return nil
	}
	return wrap(xmlquery.QuerySelectorAll(n.node, compiled))
}

// FindOne returns the first node matching path, or nil.
func (n *Node) FindOne(path string) *Node {
	compiled, err := compile(path)
	if err != nil {
		return nil
	}
	node := xmlquery.QuerySelector(n.node, compiled)
	if node == nil {
		return nil
	}
	return &Node{node: node}
}

// ValueAt returns the value of the first node matching path, or "".
func (n *Node) ValueAt(path string) string {
	if found := n.FindOne(path); found != nil {
		return found.Value()
	}
	return ""
}

// Walk visits the node and its descendant elements depth first. Returning
// false from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children() {
		child.Walk(fn)
	}
}

// Path returns the slash-joined element names from the root, for messages.
func (n *Node) Path() string {
	var parts []string
	for cur := n.node; cur != nil && cur.Type == xmlquery.ElementNode; cur = cur.Parent {
		parts = append(parts, cur.Data)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}
