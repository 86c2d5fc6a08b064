package lif

import (
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// child follows a chain of direct child tags.
func child(el *etree.Element, tags ...string) *etree.Element {
	for _, tag := range tags {
		if el == nil {
			return nil
		}
		el = el.SelectElement(tag)
	}
	return el
}

func attr(el *etree.Element, key string) string {
	if el == nil {
		return ""
	}
	return el.SelectAttrValue(key, "")
}

func attrInt(el *etree.Element, key string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(attr(el, key)), 10, 64)
	return v, err == nil
}

func attrFloat(el *etree.Element, key string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(attr(el, key)), 64)
	return v, err == nil
}

// parseXML parses decoded metadata text. Declared encodings are ignored:
// the text is already UTF-8 by the time it gets here.
func parseXML(text string) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := doc.ReadFromString(text); err != nil {
		return nil, err
	}
	return doc, nil
}

// decodeText converts the bytes of a standalone XML file to UTF-8,
// honoring a UTF-8 or UTF-16 byte order mark.
func decodeText(b []byte) (string, error) {
	t := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(t, b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
