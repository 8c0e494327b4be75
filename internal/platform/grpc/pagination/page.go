// Package pagination holds the page size, ordering and windowing rules shared
// by the list endpoints.
package pagination

import (
	"fmt"
	"slices"
	"strings"
)

// PageSizeConfig bounds a requested page size.
type PageSizeConfig struct {
	Default int
	Max     int
}

// OrderByConfig lists the accepted orderings; the first match wins.
type OrderByConfig struct {
	Default string
	Allowed []string
}

// ClampPageSize returns requested, or Default when requested is not
// positive, capped at Max. The result is at least one.
func ClampPageSize[N ~int | ~int32 | ~int64](requested N, cfg PageSizeConfig) int {
	size := int(requested)
	if size <= 0 {
		size = cfg.Default
	}
	if cfg.Max > 0 {
		size = min(size, cfg.Max)
	}
	return max(size, 1)
}

// NormalizeOrderBy lower-cases and trims orderBy and checks it against the
// allowed set. Empty selects the default.
func NormalizeOrderBy(orderBy string, cfg OrderByConfig) (string, error) {
	orderBy = strings.Join(strings.Fields(strings.ToLower(orderBy)), " ")
	if orderBy == "" {
		return cfg.Default, nil
	}
	if !slices.Contains(cfg.Allowed, orderBy) {
		return "", fmt.Errorf("unsupported order %q, expected one of: %s", orderBy, strings.Join(cfg.Allowed, ", "))
	}
	return orderBy, nil
}

// Window returns items[offset:offset+size] and the offset of the following
// page, or zero when this page reaches the end.
func Window[T any](items []T, offset, size int) ([]T, int) {
	if offset < 0 || offset >= len(items) || size <= 0 {
		return nil, 0
	}
	end := min(offset+size, len(items))
	if end == len(items) {
		return items[offset:end], 0
	}
	return items[offset:end], end
}
