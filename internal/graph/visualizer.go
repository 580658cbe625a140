package graph

import (
	"fmt"
	"io"
	"strings"
)

// Visualizer renders analysis results in human-readable and DOT form.
type Visualizer struct {
	source Source
}

// NewVisualizer creates a Visualizer over the given registry view.
func NewVisualizer(src Source) *Visualizer {
	return &Visualizer{source: src}
}

// WriteTree renders a dependency tree with two spaces of indentation per
// level. Circular nodes carry a "(circular: ...)" marker with the full path
// and unregistered nodes a "(not registered)" marker.
func (v *Visualizer) WriteTree(w io.Writer, node *TreeNode) error {
	if node == nil {
		return nil
	}

	indent := strings.Repeat("  ", node.Depth)
	label := typeLabel(node.ServiceType)

	var err error
	switch node.Status {
	case StatusCircular:
		_, err = fmt.Fprintf(w, "%s%s (circular: %s)\n", indent, label, joinTypes(node.Path, " -> "))
	case StatusNotRegistered:
		_, err = fmt.Fprintf(w, "%s%s (not registered)\n", indent, label)
	default:
		_, err = fmt.Fprintf(w, "%s%s\n", indent, label)
	}
	if err != nil {
		return err
	}

	for _, dep := range node.Dependencies {
		if err := v.WriteTree(w, dep); err != nil {
			return err
		}
	}
	return nil
}

// WriteCycles renders discovered cycles as a numbered list, one per line, in
// discovery order.
func (v *Visualizer) WriteCycles(w io.Writer, cycles []Cycle) error {
	if len(cycles) == 0 {
		_, err := fmt.Fprintln(w, "no circular dependencies detected")
		return err
	}

	for i, cycle := range cycles {
		if _, err := fmt.Fprintf(w, "%d. %s\n", i+1, cycle.String()); err != nil {
			return err
		}
	}
	return nil
}

// WriteDOT renders the whole registry as a Graphviz digraph. Unregistered
// dependency targets are drawn dashed and edges participating in a cycle are
// drawn red.
func (v *Visualizer) WriteDOT(w io.Writer) error {
	cyclic := cycleEdges(FindCycles(v.source))

	if _, err := fmt.Fprintln(w, "digraph dependencies {"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "  rankdir=LR;"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "  node [shape=box];"); err != nil {
		return err
	}

	tokens := v.source.Tokens()
	for _, token := range tokens {
		if _, err := fmt.Fprintf(w, "  %q;\n", typeLabel(token)); err != nil {
			return err
		}
	}

	missing := make(map[string]bool)
	for _, token := range tokens {
		for _, dep := range v.source.Dependencies(token) {
			if !v.source.Registered(dep) {
				label := typeLabel(dep)
				if !missing[label] {
					missing[label] = true
					if _, err := fmt.Fprintf(w, "  %q [style=dashed, color=gray];\n", label); err != nil {
						return err
					}
				}
			}
		}
	}

	for _, token := range tokens {
		for _, dep := range v.source.Dependencies(token) {
			attr := ""
			if cyclic[edge{from: token, to: dep}] {
				attr = " [color=red]"
			} else if !v.source.Registered(dep) {
				attr = " [style=dashed, color=gray]"
			}
			if _, err := fmt.Fprintf(w, "  %q -> %q%s;\n", typeLabel(token), typeLabel(dep), attr); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintln(w, "}")
	return err
}

type edge struct {
	from, to any
}

func cycleEdges(cycles []Cycle) map[edge]bool {
	edges := make(map[edge]bool)
	for _, cycle := range cycles {
		for i := 0; i+1 < len(cycle.Path); i++ {
			edges[edge{from: cycle.Path[i], to: cycle.Path[i+1]}] = true
		}
	}
	return edges
}

// SprintTree renders a dependency tree to a string.
func SprintTree(node *TreeNode) string {
	var sb strings.Builder
	v := &Visualizer{}
	_ = v.WriteTree(&sb, node)
	return sb.String()
}

// SprintCycles renders a cycle list to a string.
func SprintCycles(cycles []Cycle) string {
	var sb strings.Builder
	v := &Visualizer{}
	_ = v.WriteCycles(&sb, cycles)
	return sb.String()
}
