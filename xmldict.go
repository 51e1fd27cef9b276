package openjpeg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Dict is the mapping form of an XML document. Values are string, int64,
// float64 (after coercion), Dict for nested elements, or []Dict for
// elements marked multiple="true".
type Dict map[string]any

// Lookup walks nested mappings by key.
func (d Dict) Lookup(keys ...string) (any, bool) {
	var cur any = d
	for _, k := range keys {
		m, ok := cur.(Dict)
		if !ok {
			return nil, false
		}
		cur, ok = m[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// xmlNode is the subset of a DOM needed for the conversion.
type xmlNode struct {
	name     string
	multiple bool
	children []*xmlNode
	text     strings.Builder
}

// XMLToDict converts an XML document to a Dict keyed by element name.
//
// An element with no element children maps to its character data. An
// element carrying multiple="true" maps to a []Dict with one entry per
// element child, in document order. Any other element maps to the Dict
// of its children. Leaves are left as strings.
func XMLToDict(s string) (Dict, error) {
	doc, err := parseXMLTree(s)
	if err != nil {
		return nil, err
	}
	return nodeToDict(doc), nil
}

func nodeToDict(n *xmlNode) Dict {
	dict := make(Dict, len(n.children))
	for _, c := range n.children {
		switch {
		case c.multiple:
			list := make([]Dict, 0, len(c.children))
			for _, item := range c.children {
				list = append(list, nodeToDict(item))
			}
			dict[c.name] = list
		case len(c.children) == 0:
			dict[c.name] = c.text.String()
		default:
			dict[c.name] = nodeToDict(c)
		}
	}
	return dict
}

// parseXMLTree builds an element tree under a synthetic document node.
// RawToken is used so element names keep their prefixes; nesting is
// checked here instead.
func parseXMLTree(s string) (*xmlNode, error) {
	dec := xml.NewDecoder(strings.NewReader(s))

	doc := &xmlNode{}
	stack := []*xmlNode{doc}
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		top := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			if top == doc && len(doc.children) > 0 {
				return nil, fmt.Errorf("xml: junk after document element <%s>", rawName(t.Name))
			}
			n := &xmlNode{name: rawName(t.Name)}
			for _, a := range t.Attr {
				if a.Name.Space == "" && a.Name.Local == "multiple" && a.Value == "true" {
					n.multiple = true
				}
			}
			top.children = append(top.children, n)
			stack = append(stack, n)
		case xml.EndElement:
			if top == doc || top.name != rawName(t.Name) {
				return nil, fmt.Errorf("xml: element <%s> closed by </%s>", top.name, rawName(t.Name))
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if top == doc {
				if strings.TrimSpace(string(t)) != "" {
					return nil, errors.New("xml: character data outside document element")
				}
				continue
			}
			top.text.Write(t)
		}
	}

	if len(stack) > 1 {
		return nil, fmt.Errorf("xml: unexpected EOF inside <%s>", stack[len(stack)-1].name)
	}
	if len(doc.children) == 0 {
		return nil, errors.New("xml: no document element")
	}
	return doc, nil
}

func rawName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
