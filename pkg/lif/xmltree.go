package lif

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/beevik/etree"
)

const (
	headerTag  = "LMSDataContainerHeader"
	elementTag = "Element"

	// maxTreeDepth bounds element nesting and reference grafting.
	maxTreeDepth = 64
)

var errNoImageElement = errors.New("no XML image element found")

// NodeKind distinguishes folders from images in the descriptor tree.
type NodeKind uint8

const (
	NodeFolder NodeKind = iota
	NodeImage
)

func (k NodeKind) String() string {
	if k == NodeImage {
		return "image"
	}
	return "folder"
}

// Node is one Element of the descriptor tree.
type Node struct {
	Name    string
	Path    string
	Kind    NodeKind
	Element *etree.Element
	// SMD is the single molecule detection subtree, if any.
	SMD *etree.Element
	// Source is the file the element was read from. Companion references
	// resolve relative to it.
	Source string

	tree     *Tree
	index    int
	parent   int
	children []int
}

func (n *Node) Parent() *Node {
	if n.parent < 0 {
		return nil
	}
	return n.tree.nodes[n.parent]
}

func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	for i, c := range n.children {
		out[i] = n.tree.nodes[c]
	}
	return out
}

func (n *Node) IsImage() bool { return n.Kind == NodeImage }

// Tree is the parsed metadata of a container. Nodes live in one slice and
// link to each other by index.
type Tree struct {
	nodes   []*Node
	version int
	header  *etree.Element
}

// Root returns the first Element below the container header, or nil for
// an empty tree.
func (t *Tree) Root() *Node {
	if t == nil || len(t.nodes) == 0 {
		return nil
	}
	return t.nodes[0]
}

func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// Version is the header Version attribute, 0 when missing.
func (t *Tree) Version() int {
	if t == nil {
		return 0
	}
	return t.version
}

// Header returns the LMSDataContainerHeader element.
func (t *Tree) Header() *etree.Element {
	if t == nil {
		return nil
	}
	return t.header
}

func (t *Tree) Find(path string) (*Node, bool) {
	if t == nil {
		return nil, false
	}
	for _, n := range t.nodes {
		if n.Path == path {
			return n, true
		}
	}
	return nil, false
}

// FindAll returns nodes whose path matches re, in document order.
func (t *Tree) FindAll(re *regexp.Regexp) []*Node {
	if t == nil {
		return nil
	}
	var out []*Node
	for _, n := range t.nodes {
		if re.MatchString(n.Path) {
			out = append(out, n)
		}
	}
	return out
}

// Images returns image nodes in document order.
func (t *Tree) Images() []*Node {
	if t == nil {
		return nil
	}
	var out []*Node
	for _, n := range t.nodes {
		if n.Kind == NodeImage {
			out = append(out, n)
		}
	}
	return out
}

// parseTree builds the descriptor tree from metadata text. source names
// the file the text came from and may be empty.
func parseTree(text, source string, log Logger) (*Tree, error) {
	doc, err := parseXML(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNoImageElement, err)
	}
	header, root := rootElements(doc)
	if root == nil {
		return nil, errNoImageElement
	}
	t := &Tree{header: header}
	if header != nil {
		if v, err := strconv.Atoi(attr(header, "Version")); err == nil {
			t.version = v
		}
	}
	b := &treeBuilder{tree: t, log: log, visiting: map[string]bool{}}
	if source != "" {
		if abs, err := filepath.Abs(source); err == nil {
			b.visiting[abs] = true
		}
	}
	b.walk(root, -1, "", source, 0)
	return t, nil
}

// rootElements locates the container header and the first tree element.
// Reference files may start directly with an Element.
func rootElements(doc *etree.Document) (header, root *etree.Element) {
	top := doc.Root()
	if top == nil {
		return nil, nil
	}
	switch top.Tag {
	case headerTag:
		return top, top.SelectElement(elementTag)
	case elementTag:
		return nil, top
	default:
		return nil, nil
	}
}

type treeBuilder struct {
	tree     *Tree
	log      Logger
	visiting map[string]bool
}

func (b *treeBuilder) walk(el *etree.Element, parent int, prefix, source string, depth int) {
	if depth > maxTreeDepth {
		b.log.Warn("descriptor tree too deep, truncating", "path", prefix)
		return
	}
	n := &Node{
		Name:    attr(el, "Name"),
		Element: el,
		Source:  source,
		tree:    b.tree,
		index:   len(b.tree.nodes),
		parent:  parent,
	}
	if child(el, "Data", "Image", "ImageDescription") != nil {
		n.Kind = NodeImage
	}
	// The root folder is not part of any path; a root image is named by
	// itself.
	switch {
	case parent < 0 && n.Kind == NodeFolder:
		n.Path = ""
	case prefix == "":
		n.Path = n.Name
	default:
		n.Path = prefix + "/" + n.Name
	}
	n.SMD = child(el, "Data", "SingleMoleculeDetection")
	b.tree.nodes = append(b.tree.nodes, n)
	if parent >= 0 {
		p := b.tree.nodes[parent]
		p.children = append(p.children, n.index)
	}

	childPrefix := n.Path
	if parent < 0 {
		childPrefix = ""
	}
	kids := el.SelectElement("Children")
	if kids == nil {
		return
	}
	for _, c := range kids.ChildElements() {
		switch c.Tag {
		case elementTag:
			b.walk(c, n.index, childPrefix, source, depth+1)
		case "Reference":
			b.graft(c, n.index, childPrefix, source, depth+1)
		}
	}
}

// graft reads the XML file named by a Reference element and walks its
// root in place.
func (b *treeBuilder) graft(ref *etree.Element, parent int, prefix, source string, depth int) {
	name := attr(ref, "File")
	if name == "" {
		return
	}
	path := resolveRef(source, name)
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if b.visiting[abs] {
		b.log.Warn("cyclic XML reference skipped", "file", path)
		return
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		b.log.Warn("XML reference unreadable", "file", path, "error", err)
		return
	}
	text, err := decodeText(raw)
	if err != nil {
		b.log.Warn("XML reference undecodable", "file", path, "error", err)
		return
	}
	doc, err := parseXML(text)
	if err != nil {
		b.log.Warn("XML reference unparsable", "file", path, "error", err)
		return
	}
	_, root := rootElements(doc)
	if root == nil {
		b.log.Warn("XML reference has no element", "file", path)
		return
	}
	b.visiting[abs] = true
	b.walk(root, parent, prefix, path, depth)
	delete(b.visiting, abs)
}
