// Package sorter computes a total load order over a set of plugins by
// building a directed "loads before" graph in phases and topologically
// sorting it (spec §4.6). There is no teacher equivalent for the
// graph/topological-sort machinery itself; the teacher's
// internal/loadorder only validates an already-fixed order against a
// small set of known problems, so that package's Issue/Severity
// vocabulary is reused here for sorter diagnostics (the Hamiltonicity
// warning) rather than its analysis logic. Cycles are not diagnostics:
// they are returned as a *CyclicInteraction error.
package sorter

import (
	"strings"

	"github.com/loot-sort/loot/internal/plugin"
)

// VertexId indexes into Graph.vertices. Vertex storage is an arena: ids
// are assigned in insertion order and never reused, so a VertexId is
// stable for the lifetime of one sort.
type VertexId int

// Vertex is one plugin's entry in the sort graph, carrying exactly the
// attributes the phases consult.
type Vertex struct {
	Name              string
	IsMaster          bool
	Masters           []string
	LocalPriority     int8
	GlobalPriority    int8
	OverrideRecordIDs map[plugin.FormID]struct{}
}

// Graph is the arena-indexed "loads before" graph built across Phases
// A-F and consumed by Phase G.
type Graph struct {
	vertices []Vertex
	index    map[string]VertexId // lowercased name -> id
	edges    map[VertexId]map[VertexId]struct{}
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		index: make(map[string]VertexId),
		edges: make(map[VertexId]map[VertexId]struct{}),
	}
}

// AddVertex appends v and returns its id.
func (g *Graph) AddVertex(v Vertex) VertexId {
	id := VertexId(len(g.vertices))
	g.vertices = append(g.vertices, v)
	g.index[strings.ToLower(v.Name)] = id
	g.edges[id] = make(map[VertexId]struct{})
	return id
}

// VertexByName looks up a vertex id by case-insensitive name.
func (g *Graph) VertexByName(name string) (VertexId, bool) {
	id, ok := g.index[strings.ToLower(name)]
	return id, ok
}

// Vertex returns the vertex data for id.
func (g *Graph) Vertex(id VertexId) Vertex {
	return g.vertices[id]
}

// Len returns the number of vertices.
func (g *Graph) Len() int {
	return len(g.vertices)
}

// HasEdge reports whether an edge from->to already exists.
func (g *Graph) HasEdge(from, to VertexId) bool {
	_, ok := g.edges[from][to]
	return ok
}

// AddEdge adds an edge from->to if it does not already exist, reporting
// whether it was added.
func (g *Graph) AddEdge(from, to VertexId) bool {
	if from == to || g.HasEdge(from, to) {
		return false
	}
	g.edges[from][to] = struct{}{}
	return true
}

// HasPath reports whether there is a directed path from->to (from == to
// counts as a path of length zero).
func (g *Graph) HasPath(from, to VertexId) bool {
	if from == to {
		return true
	}
	visited := make(map[VertexId]bool)
	stack := []VertexId{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		for next := range g.edges[cur] {
			if next == to {
				return true
			}
			if !visited[next] {
				stack = append(stack, next)
			}
		}
	}
	return false
}

// WouldCreateCycle reports whether adding the edge from->to would create
// a cycle, i.e. whether a path to->from already exists.
func (g *Graph) WouldCreateCycle(from, to VertexId) bool {
	return g.HasPath(to, from)
}

// Successors returns the ids that id has a direct edge to, in no
// particular order.
func (g *Graph) Successors(id VertexId) []VertexId {
	out := make([]VertexId, 0, len(g.edges[id]))
	for next := range g.edges[id] {
		out = append(out, next)
	}
	return out
}

// sortedSuccessors returns id's direct successors in ascending VertexId
// order, i.e. Phase A's fixed lexicographic order, so DFS traversal
// (and therefore cycle reports and topological output) is deterministic.
func (g *Graph) sortedSuccessors(id VertexId) []VertexId {
	out := g.Successors(id)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// vertexColor tracks DFS state for topologicalSort's combined
// cycle-check.
type vertexColor int

const (
	colorWhite vertexColor = iota
	colorGray
	colorBlack
)

// topologicalSort is Phase G: a single deterministic DFS over the
// graph built by Phases A-F that both detects cycles (a gray-to-gray
// back edge) and produces a topological order (postorder, reversed).
// On a cycle it returns a *CyclicInteraction describing the back edge
// and the cycle trail; otherwise it returns the full vertex order.
func (g *Graph) topologicalSort() ([]VertexId, *CyclicInteraction) {
	colors := make([]vertexColor, g.Len())
	parent := make([]VertexId, g.Len())
	for i := range parent {
		parent[i] = -1
	}

	var postorder []VertexId
	var cyc *CyclicInteraction

	var visit func(id VertexId)
	visit = func(id VertexId) {
		colors[id] = colorGray
		for _, next := range g.sortedSuccessors(id) {
			if cyc != nil {
				return
			}
			switch colors[next] {
			case colorWhite:
				parent[next] = id
				visit(next)
			case colorGray:
				cyc = &CyclicInteraction{
					First: g.vertices[id].Name,
					Last:  g.vertices[next].Name,
					Trail: buildTrail(g, parent, id, next),
				}
				return
			case colorBlack:
				// already finished, no back edge
			}
		}
		colors[id] = colorBlack
		postorder = append(postorder, id)
	}

	for i := 0; i < g.Len(); i++ {
		if cyc != nil {
			return nil, cyc
		}
		if colors[i] == colorWhite {
			visit(VertexId(i))
		}
	}
	if cyc != nil {
		return nil, cyc
	}

	order := make([]VertexId, len(postorder))
	for i, id := range postorder {
		order[len(postorder)-1-i] = id
	}
	return order, nil
}

// buildTrail walks parent pointers from cur back up to next (the gray
// ancestor that closes the cycle), rendering the tree path in traversal
// order, "next -> ... -> cur".
func buildTrail(g *Graph, parent []VertexId, cur, next VertexId) string {
	var chain []VertexId
	for v := cur; v != next; v = parent[v] {
		chain = append(chain, v)
		if parent[v] == -1 {
			break
		}
	}
	chain = append(chain, next)

	names := make([]string, len(chain))
	for i, id := range chain {
		names[len(chain)-1-i] = g.vertices[id].Name
	}
	return strings.Join(names, " -> ")
}
