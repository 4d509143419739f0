package dsl

import "errors"

var (
	ErrMissingDataSource   = errors.New("missing data source")
	ErrFilterSyntax        = errors.New("filter syntax error")
	ErrInvalidStyleMapping = errors.New("invalid style mapping")
	ErrInvalidTemplate     = errors.New("invalid template definition")
	ErrInvalidRequest      = errors.New("invalid expansion request")
	ErrInvalidPath         = errors.New("invalid variable path")
	ErrUnknownShape        = errors.New("unknown shape")
	ErrShapeAlreadyExists  = errors.New("shape already exists")
)
