// Copyright 2025, Ripplekit Authors.
// SPDX-License-Identifier: Apache-2.0

package dom

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

// props that serialize as attributes on the initial page load
var attrProps = map[string]bool{
	"value":    true,
	"checked":  true,
	"disabled": true,
}

var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// RenderHTML serializes the subtree for the initial page load. Event
// wiring and subsequent updates happen through patches, so handlers
// and the write counters are not part of the output. The node id is
// emitted as data-node so the shell can address patch targets.
func (n *Node) RenderHTML() string {
	var sb strings.Builder
	n.renderHTML(&sb)
	return sb.String()
}

func (n *Node) renderHTML(sb *strings.Builder) {
	sb.WriteString("<")
	sb.WriteString(n.Tag)
	fmt.Fprintf(sb, ` data-node=%q`, n.Id)
	for _, key := range sortedKeys(n.Attrs) {
		fmt.Fprintf(sb, ` %s=%q`, key, html.EscapeString(n.Attrs[key]))
	}
	for prop := range attrProps {
		val, ok := n.props[prop]
		if !ok {
			continue
		}
		if bval, isBool := val.(bool); isBool {
			if bval {
				fmt.Fprintf(sb, " %s", prop)
			}
			continue
		}
		fmt.Fprintf(sb, ` %s=%q`, prop, html.EscapeString(fmt.Sprint(val)))
	}
	if voidTags[n.Tag] {
		sb.WriteString("/>")
		return
	}
	sb.WriteString(">")
	if text, ok := n.props["textContent"]; ok {
		sb.WriteString(html.EscapeString(fmt.Sprint(text)))
	}
	for _, child := range n.Children {
		child.renderHTML(sb)
	}
	sb.WriteString("</")
	sb.WriteString(n.Tag)
	sb.WriteString(">")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
