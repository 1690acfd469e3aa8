package distconf

import "errors"

var (
	// ErrNotFound reports a missing file or a missing service lookup.
	ErrNotFound = errors.New("not found")
	// ErrParse reports malformed JSON or YAML input.
	ErrParse = errors.New("malformed document")
	// ErrSchema reports a structurally invalid document.
	ErrSchema = errors.New("invalid document schema")
	// ErrExists reports an overwrite-protected write or a directory collision.
	ErrExists = errors.New("already exists")
)
