package compass

import "strings"

const (
	ZeroAddress = "0x0000000000000000000000000000000000000000"
	DeadAddress = "0x000000000000000000000000000000000000dead"
)

// Filter is a fragment of a Hasura-style where clause. Empty filters are
// dropped by Merge, so helpers return an empty Filter for unset values.
type Filter map[string]any

// Merge combines filters into one where clause. Later keys win.
func Merge(filters ...Filter) Filter {
	out := Filter{}
	for _, f := range filters {
		for k, v := range f {
			out[k] = v
		}
	}
	return out
}

func op[V comparable](key, name string, value V) Filter {
	var zero V
	if value == zero {
		return Filter{}
	}
	return Filter{key: map[string]any{name: value}}
}

func Eq[V comparable](key string, value V) Filter  { return op(key, "_eq", value) }
func Neq[V comparable](key string, value V) Filter { return op(key, "_neq", value) }
func Lt[V comparable](key string, value V) Filter  { return op(key, "_lt", value) }
func Lte[V comparable](key string, value V) Filter { return op(key, "_lte", value) }
func Gt[V comparable](key string, value V) Filter  { return op(key, "_gt", value) }
func Gte[V comparable](key string, value V) Filter { return op(key, "_gte", value) }

// Like is a case-insensitive substring match.
func Like(key, value string) Filter {
	if value == "" {
		return Filter{}
	}
	return Filter{key: map[string]any{"_ilike": "%" + value + "%"}}
}

// Bool matches string-encoded booleans as stored by Compass.
func Bool(key string, value *bool) Filter {
	if value == nil {
		return Filter{}
	}
	s := "false"
	if *value {
		s = "true"
	}
	return Filter{key: map[string]any{"_eq": s}}
}

// Address matches an address case-insensitively.
func Address(key, value string) Filter {
	return Eq(key, strings.ToLower(value))
}

// NotNullAddress excludes the zero and/or dead address.
func NotNullAddress(key string, filterZero, filterDead bool) Filter {
	switch {
	case filterZero && filterDead:
		return Filter{key: map[string]any{"_nin": []string{ZeroAddress, DeadAddress}}}
	case filterZero:
		return Filter{key: map[string]any{"_neq": ZeroAddress}}
	case filterDead:
		return Filter{key: map[string]any{"_neq": DeadAddress}}
	default:
		return Filter{}
	}
}

func In[V any](key string, values []V) Filter {
	if len(values) == 0 {
		return Filter{}
	}
	return Filter{key: map[string]any{"_in": values}}
}

func Nin[V any](key string, values []V) Filter {
	if len(values) == 0 {
		return Filter{}
	}
	return Filter{key: map[string]any{"_nin": values}}
}

// Between bounds key inclusively; either side may be unset.
func Between[V comparable](key string, from, to V) Filter {
	var zero V
	bounds := map[string]any{}
	if from != zero {
		bounds["_gte"] = from
	}
	if to != zero {
		bounds["_lte"] = to
	}
	if len(bounds) == 0 {
		return Filter{}
	}
	return Filter{key: bounds}
}

// SortDirection orders query results.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Order builds an order_by clause, or nil when field is empty.
func Order(field string, dir SortDirection) map[string]SortDirection {
	if field == "" {
		return nil
	}
	if dir == "" {
		dir = SortAsc
	}
	return map[string]SortDirection{field: dir}
}

// NextCursor returns the offset of the next page, or nil when the current
// page was not full.
func NextCursor(count, limit, offset int) *int {
	if limit <= 0 || count < limit {
		return nil
	}
	next := offset + count
	return &next
}
