package taskgraph

import (
	"strings"

	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

// CircularDependencyError reports a cycle in the task graph.
// Path starts and ends with the same task.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return sfdeploy.ErrCircularDependency.Error() + ": " + strings.Join(e.Path, " -> ")
}

// Is reports whether target is sfdeploy.ErrCircularDependency.
func (e *CircularDependencyError) Is(target error) bool {
	return target == sfdeploy.ErrCircularDependency
}

// Graph holds task nodes keyed by name, remembering insertion order.
type Graph struct {
	nodes map[string]*Node
	order []string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// Add inserts n, replacing any node with the same name in place.
func (g *Graph) Add(n *Node) {
	if _, exists := g.nodes[n.Name]; !exists {
		g.order = append(g.order, n.Name)
	}
	g.nodes[n.Name] = n
}

// Node returns the node called name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.order))
	for i, name := range g.order {
		out[i] = g.nodes[name]
	}
	return out
}

// Parent returns the predecessor a chain walk follows from n: the first entry
// of AFTER that is defined in the graph, or the first entry when none is.
// It returns "" for roots.
func (g *Graph) Parent(n *Node) string {
	if n.IsRoot() {
		return ""
	}
	for _, dep := range n.DependsOn {
		if _, ok := g.nodes[dep]; ok {
			return dep
		}
	}
	return n.DependsOn[0]
}

// FindRoot follows Parent upward from name. It returns ("", false, nil)
// when name is itself a root or unknown. A walk that reaches a predecessor
// not in the graph reports that predecessor as the root.
func (g *Graph) FindRoot(name string) (string, bool, error) {
	visited := make(map[string]bool)
	path := []string{}
	cur := name

	for {
		node, ok := g.nodes[cur]
		if !ok || node.IsRoot() {
			if cur == name {
				return "", false, nil
			}
			return cur, true, nil
		}
		if visited[cur] {
			return "", false, &CircularDependencyError{Path: cyclePath(path, cur)}
		}
		visited[cur] = true
		path = append(path, cur)
		cur = g.Parent(node)
	}
}

// RootOf returns the chain root for name, which is name itself for roots.
func (g *Graph) RootOf(name string) (string, error) {
	root, ok, err := g.FindRoot(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return name, nil
	}
	return root, nil
}

type color int

const (
	white color = iota
	gray
	black
)

// TopologicalOrder returns all nodes with every predecessor before its
// dependents. Ties follow insertion order. Predecessors not in the graph are
// ignored.
func (g *Graph) TopologicalOrder() ([]*Node, error) {
	colors := make(map[string]color, len(g.nodes))
	out := make([]*Node, 0, len(g.nodes))
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		colors[name] = gray
		stack = append(stack, name)

		for _, dep := range g.nodes[name].DependsOn {
			if _, ok := g.nodes[dep]; !ok {
				continue
			}
			switch colors[dep] {
			case gray:
				return &CircularDependencyError{Path: cyclePath(stack, dep)}
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[name] = black
		out = append(out, g.nodes[name])
		return nil
	}

	for _, name := range g.order {
		if colors[name] == white {
			if err := visit(name); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// cyclePath returns the tail of trail starting at repeat, closed with repeat.
func cyclePath(trail []string, repeat string) []string {
	for i, name := range trail {
		if name == repeat {
			p := append([]string{}, trail[i:]...)
			return append(p, repeat)
		}
	}
	return append(append([]string{}, trail...), repeat)
}
