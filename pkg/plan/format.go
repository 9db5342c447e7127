package plan

import (
	"strings"

	"github.com/bisegni/tsq/pkg/engine"
)

// FormatPlan renders the plan tree, one node per line.
func FormatPlan(n Node) string {
	var sb strings.Builder
	formatRecursive(n, "", true, nil, &sb)
	return sb.String()
}

// FormatPlanWithStats is FormatPlan with the statistics collected by
// CompileWithStats appended to each node.
func FormatPlanWithStats(n Node, stats map[Node]*engine.Statistics) string {
	var sb strings.Builder
	formatRecursive(n, "", true, stats, &sb)
	return sb.String()
}

func formatRecursive(n Node, prefix string, checkLast bool, stats map[Node]*engine.Statistics, sb *strings.Builder) {
	sb.WriteString(prefix)
	if checkLast {
		sb.WriteString("└─ ")
		prefix += "   "
	} else {
		sb.WriteString("├─ ")
		prefix += "│  "
	}
	sb.WriteString(n.Explain())
	if s, ok := stats[n]; ok {
		sb.WriteString("  [")
		sb.WriteString(s.String())
		sb.WriteString("]")
	}
	sb.WriteString("\n")

	children := n.Children()
	for i, child := range children {
		formatRecursive(child, prefix, i == len(children)-1, stats, sb)
	}
}

// Fingerprint identifies a plan by its structure: two plans with equal
// fingerprints explain identically at every node.
func Fingerprint(n Node) string {
	var sb strings.Builder
	fingerprint(n, &sb)
	return sb.String()
}

func fingerprint(n Node, sb *strings.Builder) {
	sb.WriteString(n.Explain())
	children := n.Children()
	if len(children) == 0 {
		return
	}
	sb.WriteString("{")
	for i, c := range children {
		if i > 0 {
			sb.WriteString(", ")
		}
		fingerprint(c, sb)
	}
	sb.WriteString("}")
}
