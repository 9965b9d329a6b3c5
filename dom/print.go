package dom

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bril-go/brilgo/cfg"
)

// DumpTree renders the dominator tree as ASCII art, the Go-side
// equivalent of dom-utils.py's print_tree_viz.
func DumpTree(info *Info, g *cfg.Graph) string {
	var b strings.Builder
	writeTree(&b, info, g, info.Entry, "", true, true)
	return b.String()
}

func writeTree(b *strings.Builder, info *Info, g *cfg.Graph, node int, prefix string, isTail, isRoot bool) {
	name := g.Blocks[node].Label
	if isRoot {
		fmt.Fprintln(b, name)
	} else {
		connector := "├── "
		if isTail {
			connector = "└── "
		}
		fmt.Fprintln(b, prefix+connector+name)
	}

	children := append([]int(nil), info.Children[node]...)
	sort.Ints(children)
	for i, child := range children {
		last := i == len(children)-1
		newPrefix := prefix
		if !isRoot {
			if isTail {
				newPrefix += "    "
			} else {
				newPrefix += "│   "
			}
		}
		writeTree(b, info, g, child, newPrefix, last, false)
	}
}
