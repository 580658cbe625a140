// Package graph analyzes the dependency relationships declared in a registry
// snapshot. Analysis is pure: it never constructs services and tolerates
// cycles, reporting them as data rather than rejecting them.
package graph

import (
	"fmt"
	"reflect"
)

// Source is the registry view the analyzer walks. Node identity is the token;
// when a token holds several descriptors, Dependencies returns every declared
// edge concatenated in registration order, without deduplication.
type Source interface {
	// Tokens returns every registered token in first-registration order.
	Tokens() []reflect.Type

	// Dependencies returns the declared dependency tokens for a token.
	Dependencies(token reflect.Type) []reflect.Type

	// Registered reports whether the token has at least one registration.
	Registered(token reflect.Type) bool
}

// NodeStatus classifies a node in a dependency tree.
type NodeStatus int

const (
	// StatusOK marks a registered node whose dependencies were expanded.
	StatusOK NodeStatus = iota

	// StatusCircular marks a node whose token already occurs earlier on the
	// active expansion path. The node records the full path and is not
	// descended into.
	StatusCircular

	// StatusNotRegistered marks a token with no registration. The node has no
	// children.
	StatusNotRegistered
)

// String returns the string representation of the NodeStatus.
func (s NodeStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusCircular:
		return "circular"
	case StatusNotRegistered:
		return "not registered"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// TreeNode is one node of a dependency tree.
type TreeNode struct {
	// ServiceType is the token this node stands for.
	ServiceType reflect.Type

	// Depth is the node's distance from the tree root.
	Depth int

	// Status classifies the node.
	Status NodeStatus

	// Path is set on circular nodes: the full expansion path from the tree
	// root down to and including the repeated token.
	Path []reflect.Type

	// Dependencies are the child nodes, one per declared dependency edge, in
	// declaration order.
	Dependencies []*TreeNode
}

// Cycle is one discovered dependency cycle: the token path from the repeated
// token's first occurrence through the repeat, so A depending on B depending
// on A yields [A B A].
type Cycle struct {
	Path []reflect.Type
}

// String renders the cycle as "A -> B -> A".
func (c Cycle) String() string {
	return joinTypes(c.Path, " -> ")
}

// BuildTree expands the dependency tree rooted at token. Requesting a tree for
// an unregistered token yields a single not-registered node.
func BuildTree(src Source, token reflect.Type) *TreeNode {
	return expand(src, token, 0, nil)
}

func expand(src Source, token reflect.Type, depth int, path []reflect.Type) *TreeNode {
	node := &TreeNode{ServiceType: token, Depth: depth}

	for _, seen := range path {
		if seen == token {
			node.Status = StatusCircular
			node.Path = make([]reflect.Type, 0, len(path)+1)
			node.Path = append(node.Path, path...)
			node.Path = append(node.Path, token)
			return node
		}
	}

	if !src.Registered(token) {
		node.Status = StatusNotRegistered
		return node
	}

	path = append(path, token)
	for _, dep := range src.Dependencies(token) {
		node.Dependencies = append(node.Dependencies, expand(src, dep, depth+1, path))
	}
	return node
}

// FindCycles discovers every dependency cycle in the registry, including
// cycles in disconnected parts of the graph. Tokens are searched in
// first-registration order and each dependency edge in declaration order, so
// discovery order is deterministic and a mutual pair is reported exactly once.
// Recording a cycle does not stop the search.
func FindCycles(src Source) []Cycle {
	f := &cycleFinder{
		src:     src,
		visited: make(map[reflect.Type]bool),
		onPath:  make(map[reflect.Type]bool),
	}

	for _, token := range src.Tokens() {
		if !f.visited[token] {
			f.walk(token)
		}
	}
	return f.cycles
}

type cycleFinder struct {
	src     Source
	visited map[reflect.Type]bool // fully explored
	onPath  map[reflect.Type]bool // currently visiting
	path    []reflect.Type
	cycles  []Cycle
}

func (f *cycleFinder) walk(token reflect.Type) {
	if !f.src.Registered(token) {
		return
	}

	f.onPath[token] = true
	f.path = append(f.path, token)

	for _, dep := range f.src.Dependencies(token) {
		if f.onPath[dep] {
			f.record(dep)
			continue
		}
		if !f.visited[dep] {
			f.walk(dep)
		}
	}

	f.path = f.path[:len(f.path)-1]
	delete(f.onPath, token)
	f.visited[token] = true
}

// record captures the cycle closed by an edge back to repeated, slicing the
// current path from the repeated token's first occurrence and appending the
// repeat.
func (f *cycleFinder) record(repeated reflect.Type) {
	start := 0
	for i, t := range f.path {
		if t == repeated {
			start = i
			break
		}
	}

	cycle := make([]reflect.Type, 0, len(f.path)-start+1)
	cycle = append(cycle, f.path[start:]...)
	cycle = append(cycle, repeated)
	f.cycles = append(f.cycles, Cycle{Path: cycle})
}

// typeLabel renders a token for human-readable output.
func typeLabel(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Pointer {
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

func joinTypes(types []reflect.Type, sep string) string {
	switch len(types) {
	case 0:
		return ""
	case 1:
		return typeLabel(types[0])
	}

	out := typeLabel(types[0])
	for _, t := range types[1:] {
		out += sep + typeLabel(t)
	}
	return out
}
