package condition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// versionAfterLabel matches a "Version:" (or "Ver:") label followed
// by the version text, the heuristic's strongest signal per spec §4.3/
// §GLOSSARY ("prefers text after 'Version:'").
var versionAfterLabel = regexp.MustCompile(`(?i)\b(?:version|ver)[:\s]+([vV]?[0-9][0-9A-Za-z.,+_-]*)`)

// bareVersion matches a bare "v1.2.3"-shaped token anywhere in the text,
// used when no explicit label is present.
var bareVersion = regexp.MustCompile(`\bv?([0-9]+(?:[.,][0-9]+){0,3})\b`)

// ExtractVersion applies the description-field version heuristics from
// spec §4.3: prefer text after a "Version:" label, accept a leading "v",
// reject numerals containing a comma (a thousands separator, not a
// version), and fall back to the first bare dotted-numeral token. A
// comma found in either match is treated as a rejection of that numeral
// entirely, not truncated down to a shorter prefix.
func ExtractVersion(description string) (string, bool) {
	if m := versionAfterLabel.FindStringSubmatch(description); m != nil {
		if strings.Contains(m[1], ",") {
			return "", false
		}
		v := strings.TrimPrefix(strings.TrimPrefix(m[1], "v"), "V")
		return v, true
	}
	if m := bareVersion.FindStringSubmatch(description); m != nil {
		if strings.Contains(m[0], ",") {
			return "", false
		}
		return m[1], true
	}
	return "", false
}

// compareVersions returns -1, 0 or 1 as got is less than, equal to, or
// greater than want. It prefers strict semver comparison; version
// strings that aren't valid semver (e.g. the common Bethesda-mod
// 4-component "1.2.3.4") fall back to a component-wise numeric compare.
func compareVersions(got, want string) (int, error) {
	gv, gerr := semver.NewVersion(got)
	wv, werr := semver.NewVersion(want)
	if gerr == nil && werr == nil {
		return gv.Compare(wv), nil
	}
	return compareNumericComponents(got, want)
}

func compareNumericComponents(a, b string) (int, error) {
	aParts, err := splitNumericComponents(a)
	if err != nil {
		return 0, err
	}
	bParts, err := splitNumericComponents(b)
	if err != nil {
		return 0, err
	}

	for i := 0; i < len(aParts) || i < len(bParts); i++ {
		var av, bv int
		if i < len(aParts) {
			av = aParts[i]
		}
		if i < len(bParts) {
			bv = bParts[i]
		}
		if av != bv {
			if av < bv {
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, nil
}

func splitNumericComponents(v string) ([]int, error) {
	v = strings.TrimPrefix(strings.TrimPrefix(v, "v"), "V")
	parts := strings.Split(v, ".")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: non-numeric version component %q", ErrInvalidArgument, p)
		}
		nums = append(nums, n)
	}
	return nums, nil
}

// evalVersion implements the `version(path, want, comparator)` predicate,
// including the "plugin does not exist" fallback rule from spec §4.3.
func evalVersion(state GameState, path, want, comparator string) (bool, error) {
	gotVersion, found, err := state.PluginVersion(path)
	if err != nil {
		return false, err
	}

	if !found {
		switch comparator {
		case "!=", "<", "<=":
			return true, nil
		default:
			return false, nil
		}
	}

	cmp, err := compareVersions(gotVersion, want)
	if err != nil {
		return false, err
	}

	switch comparator {
	case "==":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	default:
		return false, fmt.Errorf("%w: unknown comparator %q", ErrInvalidArgument, comparator)
	}
}
