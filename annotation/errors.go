package annotation

import "errors"

var (
	ErrNotFound       = errors.New("annotation: not found")
	ErrInvalidColor   = errors.New("annotation: invalid color")
	ErrInvalidProject = errors.New("annotation: invalid project name")
	ErrMissingID      = errors.New("annotation: missing id")
	ErrBadGlob        = errors.New("annotation: invalid url glob")
)
