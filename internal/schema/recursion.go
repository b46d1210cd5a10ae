package schema

import (
	"fmt"
	"slices"
	"strings"
)

// RecursionWarning describes a cycle in the rule dependency graph.
//
// Recursion is legal; the warning exists so schema authors can confirm a
// cycle is intended. Types on a cycle are planned last within their
// resolvable tier.
type RecursionWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning"
}

// dependencyGraph maps a concluded type to the types its rules read.
type dependencyGraph map[string][]string

// analyzeRecursion marks every type on a rule dependency cycle.
//
// The algorithm:
//  1. Build conclusion -> premise graph; a premise on type P depends on
//     every concluded subtype of P, since inferred subtype instances match it
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Each SCC with size > 1 or a self-loop is recursive
func (s *Schema) analyzeRecursion() {
	s.recursive = make(map[string]bool)
	graph := s.buildDependencyGraph()

	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			slices.Sort(scc)
			for _, label := range scc {
				s.recursive[label] = true
			}
			s.warnings = append(s.warnings, sccToWarning(scc, graph))
		}
	}

	slices.SortFunc(s.warnings, func(a, b RecursionWarning) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
}

func (s *Schema) buildDependencyGraph() dependencyGraph {
	graph := make(dependencyGraph)
	for _, r := range s.rules {
		if graph[r.Then] == nil {
			graph[r.Then] = []string{}
		}
		for _, p := range r.Premises() {
			for _, sub := range s.Subs(p) {
				if len(s.concluding[sub]) == 0 {
					continue
				}
				if !slices.Contains(graph[r.Then], sub) {
					graph[r.Then] = append(graph[r.Then], sub)
				}
			}
		}
	}
	for node := range graph {
		slices.Sort(graph[node])
	}
	return graph
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so the result is deterministic.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// sccToWarning converts a sorted SCC to a warning whose path starts at the
// smallest label and follows edges inside the SCC back to it.
func sccToWarning(scc []string, graph dependencyGraph) RecursionWarning {
	if len(scc) == 1 {
		label := scc[0]
		return RecursionWarning{
			Path:    []string{label, label},
			Message: fmt.Sprintf("Self-recursive rule conclusion: %s → %s", label, label),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return RecursionWarning{
		Path:    path,
		Message: fmt.Sprintf("Recursive rule dependency: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	inSCC := make(map[string]bool, len(scc))
	for _, node := range scc {
		inSCC[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if inSCC[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
