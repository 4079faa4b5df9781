package overlap

import (
	"regexp"
	"strings"
)

// Score bounds, mirroring the teacher's 0-100 scale.
const (
	MaxScore = 100
	MinScore = 0
)

// Score modifiers.
const (
	// largeOverlapBonus is added per shared record beyond the first 10,
	// up to a cap, since a handful of shared records rarely matters but
	// hundreds usually signals a genuine patch/compatibility concern.
	largeOverlapBonus    = 1
	largeOverlapBonusCap = 30
	// ruleMatchBonus-equivalent: a matched KnownPairRule contributes its
	// own ScoreBonus directly (see below), so there is no flat constant
	// here, matching the teacher's per-rule ScoreBonus design.
)

// RuleMatchType defines how a KnownPairRule's NamePattern is matched
// against a plugin name.
type RuleMatchType string

const (
	RuleMatchExact    RuleMatchType = "exact"
	RuleMatchPrefix   RuleMatchType = "prefix"
	RuleMatchSuffix   RuleMatchType = "suffix"
	RuleMatchContains RuleMatchType = "contains"
	RuleMatchRegex    RuleMatchType = "regex"
)

// KnownPairRule flags a known-troublesome overlap by plugin-name pattern,
// e.g. two large patch hubs that are known to fight over the same
// records. Adapted from the teacher's IncompatibilityRule (there matched
// on file path + mod ID; here on plugin name only, since there is no
// second dimension equivalent to "file path" at this layer).
type KnownPairRule struct {
	ID            string
	Description   string
	ScoreBonus    int
	NamePattern   string
	NameMatchType RuleMatchType

	compiledRegex *regexp.Regexp
}

// Scorer calculates overlap severity scores.
type Scorer struct {
	rules []*KnownPairRule
}

// NewScorer creates a Scorer with no known-pair rules configured.
func NewScorer() *Scorer {
	return &Scorer{}
}

// NewScorerWithRules creates a Scorer with custom known-pair rules,
// compiling any regex patterns up front.
func NewScorerWithRules(rules []*KnownPairRule) *Scorer {
	for _, r := range rules {
		if r.NameMatchType == RuleMatchRegex && r.NamePattern != "" {
			r.compiledRegex, _ = regexp.Compile(r.NamePattern)
		}
	}
	return &Scorer{rules: rules}
}

// Score computes a 0-100 score and the list of matched rule IDs for an
// overlap, given the shared-record count and each plugin's total
// override count.
func (s *Scorer) Score(o *Overlap) (int, []string) {
	total := o.CountA
	if o.CountB < total {
		total = o.CountB
	}
	if total == 0 {
		total = 1
	}
	ratio := float64(len(o.SharedRecordIDs)) / float64(total)

	score := int(ratio * 80)

	bonus := len(o.SharedRecordIDs) - 10
	if bonus > 0 {
		if bonus > largeOverlapBonusCap {
			bonus = largeOverlapBonusCap
		}
		score += bonus * largeOverlapBonus
	}

	matched := s.matchRules(o)
	for _, r := range matched {
		score += r.ScoreBonus
	}

	if score > MaxScore {
		score = MaxScore
	}
	if score < MinScore {
		score = MinScore
	}

	ids := make([]string, len(matched))
	for i, r := range matched {
		ids[i] = r.ID
	}
	return score, ids
}

// SeverityForRatio buckets an overlap ratio (shared / smaller plugin's
// override count) into a coarse Severity.
func SeverityForRatio(ratio float64) Severity {
	switch {
	case ratio >= 0.75:
		return SeverityCritical
	case ratio >= 0.5:
		return SeverityHigh
	case ratio >= 0.25:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func (s *Scorer) matchRules(o *Overlap) []*KnownPairRule {
	var matched []*KnownPairRule
	for _, r := range s.rules {
		if s.ruleMatchesEither(r, o.PluginA) || s.ruleMatchesEither(r, o.PluginB) {
			matched = append(matched, r)
		}
	}
	return matched
}

func (s *Scorer) ruleMatchesEither(r *KnownPairRule, name string) bool {
	if r.NamePattern == "" {
		return false
	}
	patternLower := strings.ToLower(r.NamePattern)
	nameLower := strings.ToLower(name)

	switch r.NameMatchType {
	case RuleMatchExact:
		return nameLower == patternLower
	case RuleMatchPrefix:
		return strings.HasPrefix(nameLower, patternLower)
	case RuleMatchSuffix:
		return strings.HasSuffix(nameLower, patternLower)
	case RuleMatchRegex:
		return r.compiledRegex != nil && r.compiledRegex.MatchString(name)
	default:
		return strings.Contains(nameLower, patternLower)
	}
}
