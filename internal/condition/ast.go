// Package condition implements the small boolean expression language used
// to gate metadata (messages, tags, file references, requirements) on
// filesystem, checksum, version, and active-plugin facts about the
// current game state.
package condition

// GameState is the minimal view of game state the evaluator needs. It is
// satisfied by the façade's concrete state; kept narrow here so this
// package never imports the façade (avoiding an import cycle) and so
// tests can supply a fake.
type GameState interface {
	// FileExists reports whether a literal relative path exists under
	// the data directory (or, for an .esp/.esm name, its ".ghost"
	// variant).
	FileExists(relPath string) (bool, error)
	// CountMatches returns how many files under the data directory match
	// the regex pattern, scoped to dirPattern's literal directory portion.
	CountMatches(dirPattern, filePattern string) (int, error)
	// IsPluginActive reports whether the named plugin is active. The
	// reserved name "LOOT" is never active.
	IsPluginActive(name string) (bool, error)
	// CountActiveMatches returns how many active plugins match pattern.
	CountActiveMatches(pattern string) (int, error)
	// CRC32 returns the checksum of a plugin or file, preferring the
	// plugin cache and falling back to disk. The reserved name "LOOT"
	// resolves to the running binary's own checksum.
	CRC32(name string) (uint32, error)
	// PluginVersion extracts the version string embedded in a plugin's
	// description field, or ok=false if none was found. The reserved
	// name "LOOT" resolves to the application's own version.
	PluginVersion(name string) (version string, ok bool, err error)
}

// Expr is a node in the parsed condition AST.
type Expr interface {
	Eval(state GameState) (bool, error)
	// String renders the expression back to its canonical condition
	// syntax, used in error messages and cache keys derived from an AST
	// rather than the original literal string.
	String() string
}

// And is a conjunction; "and" binds tighter than "or" per the grammar.
type And struct {
	Left, Right Expr
}

func (e *And) Eval(state GameState) (bool, error) {
	l, err := e.Left.Eval(state)
	if err != nil {
		return false, err
	}
	if !l {
		return false, nil
	}
	return e.Right.Eval(state)
}

func (e *And) String() string { return e.Left.String() + " and " + e.Right.String() }

// Or is a disjunction.
type Or struct {
	Left, Right Expr
}

func (e *Or) Eval(state GameState) (bool, error) {
	l, err := e.Left.Eval(state)
	if err != nil {
		return false, err
	}
	if l {
		return true, nil
	}
	return e.Right.Eval(state)
}

func (e *Or) String() string { return e.Left.String() + " or " + e.Right.String() }

// Not is a negation; it binds tightest of the boolean operators.
type Not struct {
	Inner Expr
}

func (e *Not) Eval(state GameState) (bool, error) {
	v, err := e.Inner.Eval(state)
	if err != nil {
		return false, err
	}
	return !v, nil
}

func (e *Not) String() string { return "not " + e.Inner.String() }

// File is the `file("p")` predicate.
type File struct {
	Path string
}

func (e *File) Eval(state GameState) (bool, error) {
	if isRegexPath(e.Path) {
		dir, pattern, err := splitRegexPath(e.Path)
		if err != nil {
			return false, err
		}
		n, err := state.CountMatches(dir, pattern)
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}
	if err := validatePathSafety(e.Path); err != nil {
		return false, err
	}
	return state.FileExists(e.Path)
}

func (e *File) String() string { return `file("` + e.Path + `")` }

// Many is the `many("r")` predicate.
type Many struct {
	Pattern string
}

func (e *Many) Eval(state GameState) (bool, error) {
	dir, pattern, err := splitRegexPath(e.Pattern)
	if err != nil {
		return false, err
	}
	n, err := state.CountMatches(dir, pattern)
	if err != nil {
		return false, err
	}
	return n > 1, nil
}

func (e *Many) String() string { return `many("` + e.Pattern + `")` }

// Active is the `active("p")` predicate.
type Active struct {
	Pattern string
}

func (e *Active) Eval(state GameState) (bool, error) {
	if isRegexPath(e.Pattern) {
		n, err := state.CountActiveMatches(e.Pattern)
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}
	return state.IsPluginActive(e.Pattern)
}

func (e *Active) String() string { return `active("` + e.Pattern + `")` }

// ManyActive is the `many_active("r")` predicate.
type ManyActive struct {
	Pattern string
}

func (e *ManyActive) Eval(state GameState) (bool, error) {
	n, err := state.CountActiveMatches(e.Pattern)
	if err != nil {
		return false, err
	}
	return n > 1, nil
}

func (e *ManyActive) String() string { return `many_active("` + e.Pattern + `")` }

// Checksum is the `checksum("p", HEX)` predicate.
type Checksum struct {
	Path string
	Hex  string
}

func (e *Checksum) Eval(state GameState) (bool, error) {
	if err := validatePathSafety(e.Path); err != nil {
		return false, err
	}
	want, err := parseHex(e.Hex)
	if err != nil {
		return false, err
	}
	got, err := state.CRC32(e.Path)
	if err != nil {
		return false, err
	}
	return got == want, nil
}

func (e *Checksum) String() string { return `checksum("` + e.Path + `", ` + e.Hex + `)` }

// Version is the `version("p", "V", cmp)` predicate.
type Version struct {
	Path       string
	Want       string
	Comparator string
}

func (e *Version) Eval(state GameState) (bool, error) {
	if err := validatePathSafety(e.Path); err != nil {
		return false, err
	}
	return evalVersion(state, e.Path, e.Want, e.Comparator)
}

func (e *Version) String() string {
	return `version("` + e.Path + `", "` + e.Want + `", ` + e.Comparator + `)`
}
