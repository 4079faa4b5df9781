package sorter

import (
	"testing"

	"github.com/loot-sort/loot/internal/metadata"
	"github.com/loot-sort/loot/internal/plugin"
)

func formIDSet(ids ...plugin.FormID) map[plugin.FormID]struct{} {
	set := make(map[plugin.FormID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestSort_EmptyInputProducesEmptyOutput(t *testing.T) {
	result, err := Sort(nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Order) != 0 {
		t.Errorf("expected empty order, got %v", result.Order)
	}
}

func TestSort_S1_MasterBeforeNonMaster(t *testing.T) {
	plugins := []PluginInput{
		{Name: "Plugin.esp", IsMaster: false},
		{Name: "Skyrim.esm", IsMaster: true},
	}

	result, err := Sort(plugins, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Order) != 2 || result.Order[0] != "Skyrim.esm" || result.Order[1] != "Plugin.esp" {
		t.Fatalf("expected [Skyrim.esm Plugin.esp], got %v", result.Order)
	}
}

func TestSort_S2_MasterChainFollowsExplicitMasters(t *testing.T) {
	plugins := []PluginInput{
		{Name: "Dawnguard.esm", IsMaster: true, Masters: []string{"Skyrim.esm"}},
		{Name: "Skyrim.esm", IsMaster: true},
		{Name: "Patch.esp", IsMaster: false, Masters: []string{"Dawnguard.esm", "Skyrim.esm"}},
	}

	result, err := Sort(plugins, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos := make(map[string]int, len(result.Order))
	for i, name := range result.Order {
		pos[name] = i
	}
	if pos["Skyrim.esm"] > pos["Dawnguard.esm"] {
		t.Errorf("expected Skyrim.esm before Dawnguard.esm, got %v", result.Order)
	}
	if pos["Dawnguard.esm"] > pos["Patch.esp"] {
		t.Errorf("expected Dawnguard.esm before Patch.esp, got %v", result.Order)
	}
}

func TestSort_S3_LoadAfterRequirementEdge(t *testing.T) {
	plugins := []PluginInput{
		{Name: "Base.esp"},
		{Name: "Patch.esp"},
	}

	lookup := func(name string) *metadata.PluginMetadata {
		if name != "Patch.esp" {
			return nil
		}
		return &metadata.PluginMetadata{
			Name:      "Patch.esp",
			LoadAfter: []metadata.File{{Name: "Base.esp"}},
		}
	}

	result, err := Sort(plugins, lookup, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Order) != 2 || result.Order[0] != "Base.esp" || result.Order[1] != "Patch.esp" {
		t.Fatalf("expected [Base.esp Patch.esp], got %v", result.Order)
	}
}

func TestSort_S3_CyclicLoadAfterIsReported(t *testing.T) {
	plugins := []PluginInput{
		{Name: "A.esp"},
		{Name: "B.esp"},
	}

	lookup := func(name string) *metadata.PluginMetadata {
		switch name {
		case "A.esp":
			return &metadata.PluginMetadata{Name: "A.esp", LoadAfter: []metadata.File{{Name: "B.esp"}}}
		case "B.esp":
			return &metadata.PluginMetadata{Name: "B.esp", LoadAfter: []metadata.File{{Name: "A.esp"}}}
		}
		return nil
	}

	_, err := Sort(plugins, lookup, nil)
	if err == nil {
		t.Fatal("expected a cyclic interaction error")
	}
	cyc, ok := err.(*CyclicInteraction)
	if !ok {
		t.Fatalf("expected *CyclicInteraction, got %T", err)
	}
	// Back edge B.esp->A.esp closes the cycle (B is visited second, A is
	// still gray), so First is the descendant and Last is the ancestor.
	if cyc.First != "B.esp" || cyc.Last != "A.esp" {
		t.Fatalf("expected CyclicInteraction{first: B.esp, last: A.esp}, got {first: %s, last: %s}", cyc.First, cyc.Last)
	}
}

func TestSort_S4_OverlapEdgeDirectionFewerOverridesLoadsFirst(t *testing.T) {
	plugins := []PluginInput{
		{Name: "A.esp", OverrideRecordIDs: formIDSet(1, 2, 3, 4, 5)},
		{Name: "B.esp", OverrideRecordIDs: formIDSet(1, 2, 3)},
	}

	result, err := Sort(plugins, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Order) != 2 || result.Order[0] != "B.esp" || result.Order[1] != "A.esp" {
		t.Fatalf("expected [B.esp A.esp] (fewer overrides first), got %v", result.Order)
	}
}

func TestSort_S5_TieBreakUsesExistingLoadOrder(t *testing.T) {
	plugins := []PluginInput{
		{Name: "Zeta.esp"},
		{Name: "Alpha.esp"},
	}
	existing := []string{"Zeta.esp", "Alpha.esp"}

	result, err := Sort(plugins, nil, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Order) != 2 || result.Order[0] != "Zeta.esp" || result.Order[1] != "Alpha.esp" {
		t.Fatalf("expected existing load order preserved [Zeta.esp Alpha.esp], got %v", result.Order)
	}
}

func TestSort_S5_TieBreakFallsBackToNameWithoutExistingOrder(t *testing.T) {
	plugins := []PluginInput{
		{Name: "Zeta.esp"},
		{Name: "Alpha.esp"},
	}

	result, err := Sort(plugins, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Order) != 2 || result.Order[0] != "Alpha.esp" || result.Order[1] != "Zeta.esp" {
		t.Fatalf("expected alphabetical fallback [Alpha.esp Zeta.esp], got %v", result.Order)
	}
}

func TestSort_PriorityPullsPluginLater(t *testing.T) {
	plugins := []PluginInput{
		{Name: "A.esp", OverrideRecordIDs: formIDSet(1, 2)},
		{Name: "B.esp", OverrideRecordIDs: formIDSet(1, 2)},
	}

	lookup := func(name string) *metadata.PluginMetadata {
		if name != "B.esp" {
			return nil
		}
		return &metadata.PluginMetadata{
			Name:          "B.esp",
			GlobalPriority: metadata.Priority{Value: 10, Explicit: true},
		}
	}

	result, err := Sort(plugins, lookup, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order[len(result.Order)-1] != "B.esp" {
		t.Fatalf("expected globally-prioritised B.esp to load last, got %v", result.Order)
	}
}

func TestSort_NoDiagnosticsWhenEveryAdjacentPairHasADirectEdge(t *testing.T) {
	// Phase F connects every pair that Phases B-E left without a path at
	// all, and any pair left only transitively connected always has its
	// intermediate vertex sit between them in the final order - so an
	// ordinary sort (no pre-existing cycles or gaps) never produces a
	// Hamiltonicity diagnostic.
	plugins := []PluginInput{
		{Name: "A.esp"},
		{Name: "B.esp"},
		{Name: "C.esp"},
	}
	existing := []string{"A.esp", "B.esp", "C.esp"}

	result, err := Sort(plugins, nil, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Diagnostics) != 0 {
		t.Errorf("expected no diagnostics, got %+v", result.Diagnostics)
	}
}

func TestSort_IsDeterministicAcrossRuns(t *testing.T) {
	build := func() []PluginInput {
		return []PluginInput{
			{Name: "Skyrim.esm", IsMaster: true},
			{Name: "Dawnguard.esm", IsMaster: true, Masters: []string{"Skyrim.esm"}},
			{Name: "Patch.esp", Masters: []string{"Skyrim.esm", "Dawnguard.esm"}, OverrideRecordIDs: formIDSet(1, 2)},
			{Name: "Other.esp", OverrideRecordIDs: formIDSet(1, 2, 3)},
		}
	}

	first, err := Sort(build(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Sort(build(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first.Order) != len(second.Order) {
		t.Fatalf("order length differs between runs: %v vs %v", first.Order, second.Order)
	}
	for i := range first.Order {
		if first.Order[i] != second.Order[i] {
			t.Fatalf("order differs between runs at %d: %v vs %v", i, first.Order, second.Order)
		}
	}
}
