package lif

import (
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// elementValue converts an element to plain Go values: attributes and
// child elements become map entries keyed by name, repeated child tags
// collect into []any and a leaf's text is typed.
func elementValue(el *etree.Element) any {
	kids := el.ChildElements()
	text := strings.TrimSpace(el.Text())
	if len(el.Attr) == 0 && len(kids) == 0 {
		if text == "" {
			return nil
		}
		return typedValue(text)
	}
	m := make(map[string]any, len(el.Attr)+len(kids))
	for _, a := range el.Attr {
		m[a.Key] = typedValue(a.Value)
	}
	for _, k := range kids {
		v := elementValue(k)
		prev, ok := m[k.Tag]
		if !ok {
			m[k.Tag] = v
			continue
		}
		if list, isList := prev.([]any); isList {
			m[k.Tag] = append(list, v)
		} else {
			m[k.Tag] = []any{prev, v}
		}
	}
	if text != "" && len(kids) == 0 {
		m["#text"] = typedValue(text)
	}
	return m
}

// typedValue parses s as int64, then finite float64, else keeps the string.
func typedValue(s string) any {
	t := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}

// imageAttrs assembles the metadata mapping of an image node.
func imageAttrs(n *Node, path string) map[string]any {
	attrs := map[string]any{"path": path}
	if img := child(n.Element, "Data", "Image"); img != nil {
		for _, a := range img.SelectElements("Attachment") {
			name := attr(a, "Name")
			if name == "" {
				continue
			}
			attrs[name] = elementValue(a)
		}
	}
	if n.SMD != nil {
		for _, k := range n.SMD.ChildElements() {
			attrs[k.Tag] = elementValue(k)
		}
	}
	if mf := markAndFind(n); mf != nil {
		attrs["MarkAndFind"] = mf
	}
	return attrs
}

// markAndFind collects Position sibling folders of a mark-and-find
// acquisition: the image's parent and its siblings named Position<n>.
func markAndFind(n *Node) []any {
	parent := n.Parent()
	if parent == nil || !strings.HasPrefix(parent.Name, "Position") {
		return nil
	}
	grand := parent.Parent()
	if grand == nil {
		return nil
	}
	var out []any
	for _, sib := range grand.Children() {
		if !strings.HasPrefix(sib.Name, "Position") {
			continue
		}
		entry := map[string]any{"name": sib.Name, "path": sib.Path}
		if att := findAttachment(sib.Element, "TileScanInfo"); att != nil {
			entry["TileScanInfo"] = elementValue(att)
		}
		out = append(out, entry)
	}
	return out
}

func findAttachment(el *etree.Element, name string) *etree.Element {
	img := child(el, "Data", "Image")
	if img == nil {
		return nil
	}
	for _, a := range img.SelectElements("Attachment") {
		if attr(a, "Name") == name {
			return a
		}
	}
	return nil
}
