package overlap

import (
	"testing"

	"github.com/loot-sort/loot/internal/plugin"
)

func formIDSet(ids ...plugin.FormID) map[plugin.FormID]struct{} {
	set := make(map[plugin.FormID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestAnalyzer_FindOverlaps_NoSharedRecords(t *testing.T) {
	analyzer := NewAnalyzer()

	plugins := []PluginOverrides{
		{Name: "Foo.esp", OverrideRecordIDs: formIDSet(0x01000800, 0x01000801)},
		{Name: "Bar.esp", OverrideRecordIDs: formIDSet(0x02000800, 0x02000801)},
	}

	overlaps := analyzer.FindOverlaps(plugins)
	if len(overlaps) != 0 {
		t.Errorf("expected no overlaps, got %d", len(overlaps))
	}
}

func TestAnalyzer_FindOverlaps_DetectsSharedRecords(t *testing.T) {
	analyzer := NewAnalyzer()

	plugins := []PluginOverrides{
		{Name: "Foo.esp", OverrideRecordIDs: formIDSet(0x01000800, 0x01000801, 0x01000802)},
		{Name: "Bar.esp", OverrideRecordIDs: formIDSet(0x01000800, 0x01000801)},
	}

	overlaps := analyzer.FindOverlaps(plugins)
	if len(overlaps) != 1 {
		t.Fatalf("expected 1 overlap, got %d", len(overlaps))
	}

	o := overlaps[0]
	if len(o.SharedRecordIDs) != 2 {
		t.Errorf("expected 2 shared records, got %d", len(o.SharedRecordIDs))
	}
	winner, ok := o.Winner()
	if !ok || winner != "Foo.esp" {
		t.Errorf("expected Foo.esp to win (more overrides), got %q, ok=%v", winner, ok)
	}
}

func TestAnalyzer_FindOverlaps_EqualCountsHaveNoWinner(t *testing.T) {
	analyzer := NewAnalyzer()

	plugins := []PluginOverrides{
		{Name: "Foo.esp", OverrideRecordIDs: formIDSet(0x01000800, 0x01000801)},
		{Name: "Bar.esp", OverrideRecordIDs: formIDSet(0x01000800, 0x01000801)},
	}

	overlaps := analyzer.FindOverlaps(plugins)
	if len(overlaps) != 1 {
		t.Fatalf("expected 1 overlap, got %d", len(overlaps))
	}
	if _, ok := overlaps[0].Winner(); ok {
		t.Error("expected no winner when override counts are equal")
	}
}

func TestAnalyzer_FindOverlaps_ZeroOverridesSkipped(t *testing.T) {
	analyzer := NewAnalyzer()

	plugins := []PluginOverrides{
		{Name: "Foo.esp", OverrideRecordIDs: nil},
		{Name: "Bar.esp", OverrideRecordIDs: formIDSet(0x01000800)},
	}

	overlaps := analyzer.FindOverlaps(plugins)
	if len(overlaps) != 0 {
		t.Errorf("expected no overlaps when one plugin has zero overrides, got %d", len(overlaps))
	}
}

func TestAnalyzer_FindOverlaps_SortedBySeverityThenScore(t *testing.T) {
	analyzer := NewAnalyzer()

	plugins := []PluginOverrides{
		{Name: "Alpha.esp", OverrideRecordIDs: formIDSet(0x01000800, 0x01000801, 0x01000802, 0x01000803)},
		{Name: "Beta.esp", OverrideRecordIDs: formIDSet(0x01000800)},
		{Name: "Gamma.esp", OverrideRecordIDs: formIDSet(0x01000800, 0x01000801, 0x01000802, 0x01000803)},
	}

	overlaps := analyzer.FindOverlaps(plugins)
	if len(overlaps) != 3 {
		t.Fatalf("expected 3 pairwise overlaps, got %d", len(overlaps))
	}
	for i := 1; i < len(overlaps); i++ {
		if severityOrder(overlaps[i-1].Severity) > severityOrder(overlaps[i].Severity) {
			t.Errorf("overlaps not sorted by descending severity at index %d", i)
		}
		if overlaps[i-1].Severity == overlaps[i].Severity && overlaps[i-1].Score < overlaps[i].Score {
			t.Errorf("overlaps of equal severity not sorted by descending score at index %d", i)
		}
	}
}

func TestAnalyzer_FindOverlaps_KnownPairRuleAddsBonus(t *testing.T) {
	rule := &KnownPairRule{
		ID:            "known-patch-hub",
		ScoreBonus:    20,
		NamePattern:   "patch",
		NameMatchType: RuleMatchContains,
	}

	plain := NewAnalyzer()
	withRule := NewAnalyzerWithRules([]*KnownPairRule{rule})

	plugins := []PluginOverrides{
		{Name: "BashedPatch.esp", OverrideRecordIDs: formIDSet(0x01000800, 0x01000801)},
		{Name: "Bar.esp", OverrideRecordIDs: formIDSet(0x01000800)},
	}

	plainOverlaps := plain.FindOverlaps(plugins)
	ruleOverlaps := withRule.FindOverlaps(plugins)

	if ruleOverlaps[0].Score <= plainOverlaps[0].Score {
		t.Errorf("expected known-pair rule to raise the score: plain=%d, withRule=%d", plainOverlaps[0].Score, ruleOverlaps[0].Score)
	}
}
