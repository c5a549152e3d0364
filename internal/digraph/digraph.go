// Package digraph implements a directed graph over dense node indexes
// for ordering and loop detection.
//
package digraph // import "github.com/andrewarchi/netlegal/internal/digraph"

// Digraph is a directed graph.
type Digraph []graphNode

type graphNode struct {
	Edges   []int
	Visited bool
}

// AddEdge adds a directed edge from node i to j.
func (g Digraph) AddEdge(i, j int) {
	g[i].Edges = append(g[i].Edges, j)
}

// SCCs computes the strongly connected components of a graph.
func (g Digraph) SCCs() [][]int {
	postOrder := g.Reverse().PostOrder()
	var sccs [][]int
	for i := len(postOrder) - 1; i >= 0; i-- {
		if !g[postOrder[i]].Visited {
			sccs = append(sccs, g.visit(postOrder[i], nil))
		}
	}
	g.ClearVisited()
	return sccs
}

// Cycles returns the strongly connected components that contain a
// cycle: those with more than one node and single nodes with a self
// edge.
func (g Digraph) Cycles() [][]int {
	var cycles [][]int
	for _, scc := range g.SCCs() {
		if len(scc) > 1 || g.hasEdge(scc[0], scc[0]) {
			cycles = append(cycles, scc)
		}
	}
	return cycles
}

func (g Digraph) hasEdge(i, j int) bool {
	for _, edge := range g[i].Edges {
		if edge == j {
			return true
		}
	}
	return false
}

// PostOrder traverses the graph with depth first search and returns the
// post-order traversal numbers.
func (g Digraph) PostOrder() []int {
	var postOrder []int
	for i := range g {
		postOrder = g.visit(i, postOrder)
	}
	return postOrder
}

// TopoOrder returns the nodes ordered so that every edge points from an
// earlier node to a later one. The order is meaningful only for an
// acyclic graph; check Cycles first.
func (g Digraph) TopoOrder() []int {
	postOrder := g.PostOrder()
	g.ClearVisited()
	for i, j := 0, len(postOrder)-1; i < j; i, j = i+1, j-1 {
		postOrder[i], postOrder[j] = postOrder[j], postOrder[i]
	}
	return postOrder
}

func (g Digraph) visit(node int, postOrder []int) []int {
	if g[node].Visited {
		return postOrder
	}
	g[node].Visited = true
	for _, edge := range g[node].Edges {
		postOrder = g.visit(edge, postOrder)
	}
	return append(postOrder, node)
}

// Reverse creates the reverse graph of g.
func (g Digraph) Reverse() Digraph {
	r := make(Digraph, len(g))
	for node := range g {
		for _, edge := range g[node].Edges {
			r[edge].Edges = append(r[edge].Edges, node)
		}
	}
	return r
}

// ClearVisited resets the visited flags.
func (g Digraph) ClearVisited() {
	for i := range g {
		g[i].Visited = false
	}
}
