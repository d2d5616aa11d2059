package services

import (
	"sort"
	"strings"
)

// FieldsError carries per-field details alongside a sentinel, e.g.
// {"username":"missing"} for ErrInvalidRequest or {"email":"taken"} for
// ErrConflict. Handlers send Fields as the response body.
type FieldsError struct {
	Err    error
	Fields map[string]string
}

func (e *FieldsError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return e.Err.Error() + ": " + strings.Join(parts, ", ")
}

func (e *FieldsError) Unwrap() error { return e.Err }

// fieldsOrNil returns nil when nothing was collected so callers can write
// `if err := fieldsOrNil(...); err != nil`.
func fieldsOrNil(sentinel error, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &FieldsError{Err: sentinel, Fields: fields}
}
