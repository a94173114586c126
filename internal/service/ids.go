package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/iliyamo/checklistpro/internal/apperr"
)

// ParseID parses a path identifier.  what names the resource in the
// error message ("template", "checklist").
func ParseID(raw, what string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.MalformedID("Invalid " + what + " ID format")
	}
	return id, nil
}

// parseOptionalID accepts a JSON number, a numeric string, an empty string
// or null.  The result is nil when no id was supplied.
func parseOptionalID(v any, what string) (*uint64, error) {
	var id uint64
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		if t <= 0 || t != math.Trunc(t) {
			return nil, apperr.MalformedID("Invalid " + what + " ID format")
		}
		id = uint64(t)
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		parsed, err := ParseID(t, what)
		if err != nil {
			return nil, err
		}
		id = parsed
	default:
		return nil, apperr.MalformedID("Invalid " + what + " ID format")
	}
	return &id, nil
}
