package condition

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// regexMeta is the set of characters that mark a filename portion as a
// regex rather than a literal name. Plain literal filenames only ever
// contain a single '.' as an extension separator, so treating any other
// regex metacharacter as a signal is unambiguous in practice.
const regexMeta = `\*?[]()^$+{}|`

func isRegexPath(p string) bool {
	base := path.Base(p)
	return strings.ContainsAny(base, regexMeta)
}

// splitRegexPath splits a path whose filename portion may be a regex into
// its literal directory portion and the filename pattern, rejecting any
// directory portion that itself contains regex metacharacters (spec
// §4.3: "the directory path portion must be literal").
func splitRegexPath(p string) (dir, pattern string, err error) {
	if err := validatePathSafety(p); err != nil {
		return "", "", err
	}
	dir = path.Dir(p)
	pattern = path.Base(p)
	if dir == "." {
		dir = ""
	}
	if strings.ContainsAny(dir, regexMeta) {
		return "", "", fmt.Errorf("%w: directory portion of %q is not literal", ErrInvalidArgument, p)
	}
	return dir, pattern, nil
}

// validatePathSafety rejects absolute paths and any two-consecutive-".."
// climb, per spec §4.3 ("all paths are relative to data_path"). A lone
// ".." that resolves back into data_path (e.g. "Textures/../Meshes/x.nif")
// is left alone; only a ".." immediately following another accumulated
// ".." (e.g. the worked example `file("../../etc")`) escapes far enough
// to be rejected.
func validatePathSafety(p string) error {
	if path.IsAbs(p) || strings.HasPrefix(p, "/") {
		return fmt.Errorf("%w: absolute path %q is not allowed", ErrInvalidArgument, p)
	}
	last := ""
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." {
			continue
		}
		if seg == ".." && last == ".." {
			return fmt.Errorf("%w: path %q escapes the data directory", ErrInvalidArgument, p)
		}
		last = seg
	}
	return nil
}

// parseHex parses the unquoted hex-digit CRC literal from a checksum()
// condition.
func parseHex(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid hex literal %q", ErrInvalidArgument, s)
	}
	return uint32(v), nil
}
