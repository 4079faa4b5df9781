// Package overlap scores how much two plugins' override records contest
// the same records — the input Phase E of the sorter (spec §4.6) needs to
// decide which of an overlapping pair should load later. Adapted from the
// teacher's internal/conflict package: there it ranked file-path conflicts
// across mod archives, here it ranks form-id overlaps across plugins.
package overlap

import "github.com/loot-sort/loot/internal/plugin"

// Severity is a coarse-grained ranking of how disruptive an overlap is
// likely to be, independent of the numeric Score.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// PluginOverrides is the minimal view of a plugin an Analyzer needs: its
// name and the set of form IDs it overrides.
type PluginOverrides struct {
	Name              string
	OverrideRecordIDs map[plugin.FormID]struct{}
}

// Overlap describes a contested set of override records shared by two
// plugins.
type Overlap struct {
	// PluginA and PluginB are the two plugin names involved, in Phase-A
	// vertex order (not load order — Phase E decides that from CountA,
	// CountB).
	PluginA, PluginB string
	// SharedRecordIDs is the intersection of the two plugins' override
	// record sets.
	SharedRecordIDs []plugin.FormID
	// CountA and CountB are each plugin's total override-record count
	// (not just the shared ones), which Phase E uses to pick a
	// direction: the plugin with more overrides should load later.
	CountA, CountB int
	// Severity is a coarse ranking of the overlap's likely impact.
	Severity Severity
	// Score is a 0-100 ranking used to order overlaps for reporting.
	Score int
	// Message is a human-readable, non-fatal description of the
	// overlap, suitable for a "say"-type transient Message.
	Message string
}

// Winner returns the name of the plugin with more override records (the
// one Phase E would load later), and false if both counts are equal (no
// edge should be added).
func (o Overlap) Winner() (name string, ok bool) {
	switch {
	case o.CountA > o.CountB:
		return o.PluginA, true
	case o.CountB > o.CountA:
		return o.PluginB, true
	default:
		return "", false
	}
}
