package sorter

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/loot-sort/loot/internal/metadata"
	"github.com/loot-sort/loot/internal/overlap"
	"github.com/loot-sort/loot/internal/plugin"
)

// PluginInput is the minimal per-plugin view the sorter needs (spec
// §4.6: vertices are "the loaded plugins", attributed from the scan and
// the masterlist/userlist merge that happens upstream of Sort).
type PluginInput struct {
	Name              string
	IsMaster          bool
	Masters           []string
	OverrideRecordIDs map[plugin.FormID]struct{}
}

// MetadataLookup returns the merged masterlist+userlist metadata for a
// plugin name, or nil if none applies. Sort calls this once per plugin
// during Phase A (spec §4.6 "locate metadata by merging masterlist and
// (if enabled) userlist entries").
type MetadataLookup func(name string) *metadata.PluginMetadata

// Result is the outcome of a successful Sort.
type Result struct {
	Order       []string
	Diagnostics []Diagnostic
}

// Sort runs Phases A-G of the load-order algorithm (spec §4.6) and
// returns the plugin names in load order, plus any non-fatal
// diagnostics. existingLoadOrder is the order supplied by the
// load-order collaborator before sorting began, consumed by Phase F.
func Sort(plugins []PluginInput, lookup MetadataLookup, existingLoadOrder []string) (*Result, error) {
	if len(plugins) == 0 {
		return &Result{}, nil
	}

	g, meta := buildGraph(plugins, lookup)
	if len(g.vertices) == 0 {
		return &Result{}, nil
	}

	phaseBSpecificEdges(g, meta)
	phaseCPriorityPropagation(g)
	phaseDPriorityEdges(g)
	phaseEOverlapEdges(g)
	phaseFTieBreakEdges(g, existingLoadOrder)

	order, cyc := g.topologicalSort()
	if cyc != nil {
		return nil, cyc
	}

	names := make([]string, len(order))
	for i, id := range order {
		names[i] = g.vertices[id].Name
	}

	var diagnostics []Diagnostic
	if !isOrderUnique(g, order) {
		diagnostics = append(diagnostics, Diagnostic{
			Type:     DiagnosticNonUniqueOrder,
			Severity: DiagnosticWarning,
			Message:  "the resulting load order is not the unique valid ordering; some adjacent plugins have no direct edge between them",
		})
	}

	return &Result{Order: names, Diagnostics: diagnostics}, nil
}

// buildGraph is Phase A: create one vertex per plugin, in lexicographic
// (case-insensitive) name order, attaching merged metadata.
func buildGraph(plugins []PluginInput, lookup MetadataLookup) (*Graph, map[VertexId]*metadata.PluginMetadata) {
	sorted := append([]PluginInput(nil), plugins...)
	sort.Slice(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})

	g := NewGraph()
	meta := make(map[VertexId]*metadata.PluginMetadata)

	for _, p := range sorted {
		var pm *metadata.PluginMetadata
		if lookup != nil {
			pm = lookup(p.Name)
		}

		v := Vertex{
			Name:              p.Name,
			IsMaster:          p.IsMaster,
			Masters:           p.Masters,
			OverrideRecordIDs: p.OverrideRecordIDs,
		}
		if pm != nil {
			v.LocalPriority = pm.LocalPriority.Clamp().Value
			v.GlobalPriority = pm.GlobalPriority.Clamp().Value
		}

		id := g.AddVertex(v)
		meta[id] = pm
	}

	return g, meta
}

// phaseBSpecificEdges is Phase B: master-before-non-master edges,
// declared-master edges, and requirement/load_after edges.
func phaseBSpecificEdges(g *Graph, meta map[VertexId]*metadata.PluginMetadata) {
	n := g.Len()

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			vi, vj := g.Vertex(VertexId(i)), g.Vertex(VertexId(j))
			if vi.IsMaster == vj.IsMaster {
				continue
			}
			if vi.IsMaster {
				g.AddEdge(VertexId(i), VertexId(j))
			} else {
				g.AddEdge(VertexId(j), VertexId(i))
			}
		}
	}

	for i := 0; i < n; i++ {
		p := VertexId(i)
		for _, masterName := range g.Vertex(p).Masters {
			if masterID, ok := g.VertexByName(masterName); ok {
				g.AddEdge(masterID, p)
			}
		}

		pm := meta[p]
		if pm == nil {
			continue
		}
		for _, srcID := range resolveFileRefs(g, pm.Requirements) {
			g.AddEdge(srcID, p)
		}
		for _, srcID := range resolveFileRefs(g, pm.LoadAfter) {
			g.AddEdge(srcID, p)
		}
	}
}

// resolveFileRefs resolves a metadata File list (each possibly a regex)
// against the loaded plugin set, returning the matching vertex ids.
func resolveFileRefs(g *Graph, files []metadata.File) []VertexId {
	var ids []VertexId
	for _, f := range files {
		if !f.IsRegex() {
			if id, ok := g.VertexByName(f.Name); ok {
				ids = append(ids, id)
			}
			continue
		}
		re, err := regexp.Compile(f.Name)
		if err != nil {
			continue
		}
		for i := 0; i < g.Len(); i++ {
			if re.MatchString(g.Vertex(VertexId(i)).Name) {
				ids = append(ids, VertexId(i))
			}
		}
	}
	return ids
}

// phaseCPriorityPropagation is Phase C: priorities flow forward along
// already-added edges so a prioritised plugin's descendants never sort
// as if less important than an ancestor.
func phaseCPriorityPropagation(g *Graph) {
	type prioritized struct {
		id    VertexId
		local int8
		glob  int8
	}

	var seeds []prioritized
	for i := 0; i < g.Len(); i++ {
		v := g.Vertex(VertexId(i))
		if v.LocalPriority > 0 || v.GlobalPriority > 0 {
			seeds = append(seeds, prioritized{VertexId(i), v.LocalPriority, v.GlobalPriority})
		}
	}

	sort.Slice(seeds, func(i, j int) bool {
		if seeds[i].local != seeds[j].local {
			return seeds[i].local > seeds[j].local
		}
		return seeds[i].glob > seeds[j].glob
	})

	for _, seed := range seeds {
		propagateFrom(g, seed.id, seed.local, seed.glob)
	}
}

func propagateFrom(g *Graph, from VertexId, local, glob int8) {
	visited := make(map[VertexId]bool)
	var walk func(id VertexId)
	walk = func(id VertexId) {
		for _, next := range g.Successors(id) {
			if visited[next] {
				continue
			}
			visited[next] = true

			v := g.vertices[next]
			alreadyAtLeast := v.LocalPriority >= local && v.GlobalPriority >= glob
			if v.LocalPriority < local {
				v.LocalPriority = local
			}
			if v.GlobalPriority < glob {
				v.GlobalPriority = glob
			}
			g.vertices[next] = v

			if alreadyAtLeast {
				continue
			}
			walk(next)
		}
	}
	walk(from)
}

// phaseDPriorityEdges is Phase D: priority pulls plugins apart when
// their priorities differ and either they conflict (override overlap)
// or at least one is globally prioritised.
func phaseDPriorityEdges(g *Graph) {
	n := g.Len()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			p, q := VertexId(i), VertexId(j)
			vp, vq := g.Vertex(p), g.Vertex(q)

			if vp.LocalPriority == vq.LocalPriority && vp.GlobalPriority == vq.GlobalPriority {
				continue
			}
			if vp.GlobalPriority == 0 && vq.GlobalPriority == 0 && !overridesIntersect(vp, vq) {
				continue
			}

			cmp := comparePriority(vp, vq)
			if cmp == 0 {
				continue
			}
			lower, higher := p, q
			if cmp > 0 {
				lower, higher = q, p
			}

			if g.HasEdge(lower, higher) || g.HasEdge(higher, lower) {
				continue
			}
			if g.WouldCreateCycle(lower, higher) {
				continue
			}
			g.AddEdge(lower, higher)
		}
	}
}

// comparePriority orders by (global, then local) ascending: negative if
// a ranks lower than b, positive if higher, zero if equal. Matches
// Phase D's "(lower global, then lower local) -> (higher)" direction
// rule.
func comparePriority(a, b Vertex) int {
	if a.GlobalPriority != b.GlobalPriority {
		return int(a.GlobalPriority) - int(b.GlobalPriority)
	}
	return int(a.LocalPriority) - int(b.LocalPriority)
}

func overridesIntersect(a, b Vertex) bool {
	small, large := a.OverrideRecordIDs, b.OverrideRecordIDs
	if len(large) < len(small) {
		small, large = large, small
	}
	for id := range small {
		if _, ok := large[id]; ok {
			return true
		}
	}
	return false
}

// phaseEOverlapEdges is Phase E: two plugins contesting the same
// override records are pulled apart so the one with more overrides
// loads later (spec §4.6 Phase E, worked example S4). Computation of
// "which overlaps, by how much" is delegated to internal/overlap, which
// the teacher's file-conflict analyzer was adapted into for exactly this
// shape of pairwise-intersection work.
func phaseEOverlapEdges(g *Graph) {
	inputs := make([]overlap.PluginOverrides, g.Len())
	for i := 0; i < g.Len(); i++ {
		v := g.Vertex(VertexId(i))
		inputs[i] = overlap.PluginOverrides{Name: v.Name, OverrideRecordIDs: v.OverrideRecordIDs}
	}

	analyzer := overlap.NewAnalyzer()
	for _, o := range analyzer.FindOverlaps(inputs) {
		winnerName, ok := o.Winner()
		if !ok {
			continue
		}
		loserName := o.PluginA
		if winnerName == o.PluginA {
			loserName = o.PluginB
		}

		winnerID, ok1 := g.VertexByName(winnerName)
		loserID, ok2 := g.VertexByName(loserName)
		if !ok1 || !ok2 {
			continue
		}
		if g.HasEdge(loserID, winnerID) || g.HasEdge(winnerID, loserID) {
			continue
		}
		if g.WouldCreateCycle(loserID, winnerID) {
			continue
		}
		// Fewer overrides loads first; more overrides "wins" by loading
		// later, so the edge runs loser -> winner.
		g.AddEdge(loserID, winnerID)
	}
}

// phaseFTieBreakEdges is Phase F: every still-unconnected pair gets an
// edge from the existing load order, or failing that, from a
// deterministic name comparison. If the preferred direction would
// create a cycle, the reverse direction is tried instead.
func phaseFTieBreakEdges(g *Graph, existingLoadOrder []string) {
	existingIndex := make(map[string]int, len(existingLoadOrder))
	for i, name := range existingLoadOrder {
		existingIndex[strings.ToLower(name)] = i
	}

	n := g.Len()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			p, q := VertexId(i), VertexId(j)
			if g.HasPath(p, q) || g.HasPath(q, p) {
				continue
			}

			first, second := tieBreakOrder(g, p, q, existingIndex)
			if tryAddAcyclic(g, first, second) {
				continue
			}
			tryAddAcyclic(g, second, first)
		}
	}
}

func tryAddAcyclic(g *Graph, from, to VertexId) bool {
	if g.WouldCreateCycle(from, to) {
		return false
	}
	return g.AddEdge(from, to)
}

// tieBreakOrder decides which of p, q should load first per Phase F's
// rules: prefer the existing load order's relative placement, then fall
// back to a case-insensitive basename-without-extension comparison,
// then a full-filename comparison. Returns (first, second).
func tieBreakOrder(g *Graph, p, q VertexId, existingIndex map[string]int) (VertexId, VertexId) {
	vp, vq := g.Vertex(p), g.Vertex(q)

	ip, pOK := existingIndex[strings.ToLower(vp.Name)]
	iq, qOK := existingIndex[strings.ToLower(vq.Name)]
	if pOK && qOK && ip != iq {
		if ip < iq {
			return p, q
		}
		return q, p
	}

	bp, bq := basenameNoExt(vp.Name), basenameNoExt(vq.Name)
	if bp != bq {
		if bp < bq {
			return p, q
		}
		return q, p
	}

	if strings.ToLower(vp.Name) < strings.ToLower(vq.Name) {
		return p, q
	}
	return q, p
}

func basenameNoExt(name string) string {
	ext := filepath.Ext(name)
	return strings.ToLower(strings.TrimSuffix(name, ext))
}

func isOrderUnique(g *Graph, order []VertexId) bool {
	for i := 0; i+1 < len(order); i++ {
		if !g.HasEdge(order[i], order[i+1]) {
			return false
		}
	}
	return true
}
