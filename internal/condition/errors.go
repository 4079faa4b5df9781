package condition

import "errors"

// ErrConditionSyntax is returned (wrapped with the offending fragment) for
// any malformed condition string. Parsing a syntactically valid
// expression never fails, even when the files/plugins it references
// don't exist — only Eval can fail for those reasons (see
// ErrInvalidArgument).
var ErrConditionSyntax = errors.New("condition syntax error")

// ErrInvalidArgument is returned when a condition is syntactically valid
// but an argument violates a semantic rule at evaluation time (path
// traversal, an absolute path, a malformed directory/regex split, or a
// malformed hex/comparator literal).
var ErrInvalidArgument = errors.New("invalid condition argument")
