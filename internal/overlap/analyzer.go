package overlap

import (
	"fmt"
	"sort"

	"github.com/loot-sort/loot/internal/plugin"
)

// Analyzer detects override-record overlaps between plugins.
type Analyzer struct {
	scorer *Scorer
}

// NewAnalyzer creates an Analyzer with no known-pair rules configured.
func NewAnalyzer() *Analyzer {
	return &Analyzer{scorer: NewScorer()}
}

// NewAnalyzerWithRules creates an Analyzer with custom known-pair rules.
func NewAnalyzerWithRules(rules []*KnownPairRule) *Analyzer {
	return &Analyzer{scorer: NewScorerWithRules(rules)}
}

// FindOverlaps returns every unordered pair of plugins whose override
// record sets intersect, scored and ranked by severity (descending) then
// score (descending) then plugin-name pair (ascending), for deterministic
// output. plugins is iterated in the order given; callers that need
// deterministic results should pass it pre-sorted (Phase A already
// guarantees lexicographic vertex order).
func (a *Analyzer) FindOverlaps(plugins []PluginOverrides) []Overlap {
	var overlaps []Overlap

	for i := 0; i < len(plugins); i++ {
		for j := i + 1; j < len(plugins); j++ {
			p, q := plugins[i], plugins[j]
			if len(p.OverrideRecordIDs) == 0 || len(q.OverrideRecordIDs) == 0 {
				continue
			}

			shared := intersect(p.OverrideRecordIDs, q.OverrideRecordIDs)
			if len(shared) == 0 {
				continue
			}

			o := a.buildOverlap(p, q, shared)
			overlaps = append(overlaps, o)
		}
	}

	sort.Slice(overlaps, func(i, j int) bool {
		if overlaps[i].Severity != overlaps[j].Severity {
			return severityOrder(overlaps[i].Severity) < severityOrder(overlaps[j].Severity)
		}
		if overlaps[i].Score != overlaps[j].Score {
			return overlaps[i].Score > overlaps[j].Score
		}
		if overlaps[i].PluginA != overlaps[j].PluginA {
			return overlaps[i].PluginA < overlaps[j].PluginA
		}
		return overlaps[i].PluginB < overlaps[j].PluginB
	})

	return overlaps
}

func (a *Analyzer) buildOverlap(p, q PluginOverrides, shared []plugin.FormID) Overlap {
	countA, countB := len(p.OverrideRecordIDs), len(q.OverrideRecordIDs)

	smaller := countA
	if countB < smaller {
		smaller = countB
	}
	ratio := 0.0
	if smaller > 0 {
		ratio = float64(len(shared)) / float64(smaller)
	}

	o := Overlap{
		PluginA:         p.Name,
		PluginB:         q.Name,
		SharedRecordIDs: shared,
		CountA:          countA,
		CountB:          countB,
		Severity:        SeverityForRatio(ratio),
		Message:         generateMessage(p.Name, q.Name, len(shared), countA, countB),
	}

	score, _ := a.scorer.Score(&o)
	o.Score = score
	return o
}

func generateMessage(nameA, nameB string, shared, countA, countB int) string {
	winner, loser := nameA, nameB
	winnerCount, loserCount := countA, countB
	if countB > countA {
		winner, loser = nameB, nameA
		winnerCount, loserCount = countB, countA
	}
	if countA == countB {
		return fmt.Sprintf("'%s' and '%s' both override %d of the same record(s) and neither has more overrides; a tie-break edge may be needed", nameA, nameB, shared)
	}
	return fmt.Sprintf("'%s' (%d overrides) and '%s' (%d overrides) share %d overridden record(s); '%s' is expected to load later", winner, winnerCount, loser, loserCount, shared, winner)
}

func intersect(a, b map[plugin.FormID]struct{}) []plugin.FormID {
	var shared []plugin.FormID
	for id := range a {
		if _, ok := b[id]; ok {
			shared = append(shared, id)
		}
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i] < shared[j] })
	return shared
}

func severityOrder(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}
