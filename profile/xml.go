package profile

import (
	"bytes"
	"fmt"
	"strings"
)

const xmlHeader = "<?xml version='1.0' encoding='us-ascii'?>\n"

const indent = "  "

type attr struct {
	key   string
	value string
}

type element struct {
	tag      string
	attrs    []attr
	children []*element
}

// Marshal renders p as a uperf profile document. The profile is validated first, so a
// malformed profile never produces partial output. The result is indented, 7-bit clean and
// ends with exactly one newline; rendering the same profile twice yields identical bytes.
func Marshal(p *Profile) ([]byte, error) {
	err := p.Validate()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	writeElement(&buf, buildTree(p), 0)
	return buf.Bytes(), nil
}

func buildTree(p *Profile) *element {
	root := &element{tag: "profile", attrs: []attr{{"name", p.Name}}}
	for i := range p.Groups {
		g := &p.Groups[i]
		groupElement := &element{tag: "group"}
		if k, v, ok := g.threading(); ok {
			groupElement.attrs = append(groupElement.attrs, attr{k, v})
		}

		for j := range g.Transactions {
			t := &g.Transactions[j]
			transactionElement := &element{tag: "transaction"}
			if k, v, ok := t.pacing(); ok {
				transactionElement.attrs = append(transactionElement.attrs, attr{k, v})
			}

			for _, op := range t.FlowOps {
				flowopElement := &element{tag: "flowop", attrs: []attr{{"type", string(op.FlowOpType())}}}
				options := Options(op)
				if len(options) > 0 {
					flowopElement.attrs = append(flowopElement.attrs, attr{"options", strings.Join(options, " ")})
				}
				transactionElement.children = append(transactionElement.children, flowopElement)
			}
			groupElement.children = append(groupElement.children, transactionElement)
		}
		root.children = append(root.children, groupElement)
	}
	return root
}

func writeElement(buf *bytes.Buffer, e *element, depth int) {
	pad := strings.Repeat(indent, depth)
	buf.WriteString(pad)
	buf.WriteByte('<')
	buf.WriteString(e.tag)
	for _, a := range e.attrs {
		fmt.Fprintf(buf, " %s=\"%s\"", a.key, escapeAttr(a.value))
	}
	if len(e.children) == 0 {
		buf.WriteString(" />\n")
		return
	}
	buf.WriteString(">\n")
	for _, c := range e.children {
		writeElement(buf, c, depth+1)
	}
	buf.WriteString(pad)
	buf.WriteString("</")
	buf.WriteString(e.tag)
	buf.WriteString(">\n")
}

// escapeAttr escapes an attribute value and replaces every non-ASCII rune with a
// numeric character reference. Control characters XML 1.0 can't carry are dropped.
func escapeAttr(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '&':
			sb.WriteString("&amp;")
		case '<':
			sb.WriteString("&lt;")
		case '>':
			sb.WriteString("&gt;")
		case '"':
			sb.WriteString("&quot;")
		case '\n':
			sb.WriteString("&#10;")
		case '\r':
			sb.WriteString("&#13;")
		case '\t':
			sb.WriteString("&#09;")
		default:
			if r < 0x20 {
				continue
			}
			if r > 0x7f {
				fmt.Fprintf(&sb, "&#%d;", r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	return sb.String()
}
