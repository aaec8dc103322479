package manila

import (
	"fmt"
	"reflect"
	"sort"
)

// FindOption is an optional paging or ordering hint for FindDocuments.
type FindOption func(*FindHints)

// FindHints is the collected form of the find options. Adapters apply what
// they can push down to the backend and leave the rest to the shared helpers.
type FindHints struct {
	// Skip drops this many matching records before collecting results.
	Skip int
	// Count caps the number of returned records. Non-positive means all.
	Count int
	// SortKey orders results by the value at this (possibly dotted) key.
	SortKey string
	// Descending reverses the result order.
	Descending bool
}

func Skip(skip int) FindOption {
	return func(h *FindHints) {
		h.Skip = skip
	}
}

func Count(count int) FindOption {
	return func(h *FindHints) {
		h.Count = count
	}
}

func SortBy(key string) FindOption {
	return func(h *FindHints) {
		h.SortKey = key
	}
}

func Reverse() FindOption {
	return func(h *FindHints) {
		h.Descending = true
	}
}

// CollectHints applies opts to a zero FindHints and returns the result.
func CollectHints(opts ...FindOption) FindHints {
	hints := FindHints{}
	for _, opt := range opts {
		opt(&hints)
	}
	return hints
}

// matchRecord reports whether record satisfies every entry of query. Keys may
// be dotted paths into nested mappings, values compare by their JSON forms.
// A nil or empty query matches everything.
func matchRecord(record, query map[string]any) bool {
	for key, want := range query {
		got, ok := GetKeyPath(record, key)
		if !ok {
			return false
		}
		if !valueEqual(got, want) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// sortRecords orders records by the value under key, grouping mixed types so
// the order is total: nils first, then booleans, numbers, strings, and
// everything else by its printed form.
func sortRecords(records []map[string]any, key string) {
	sort.SliceStable(records, func(i, j int) bool {
		a, _ := GetKeyPath(records[i], key)
		b, _ := GetKeyPath(records[j], key)
		return lessValue(a, b)
	})
}

func lessValue(a, b any) bool {
	ra, rb := valueRank(a), valueRank(b)
	if ra != rb {
		return ra < rb
	}
	switch ra {
	case rankBool:
		return !a.(bool) && b.(bool)
	case rankNumber:
		af, _ := toFloat(a)
		bf, _ := toFloat(b)
		return af < bf
	case rankString:
		return a.(string) < b.(string)
	case rankOther:
		return fmt.Sprint(a) < fmt.Sprint(b)
	}
	return false
}

const (
	rankNil = iota
	rankBool
	rankNumber
	rankString
	rankOther
)

func valueRank(v any) int {
	switch v.(type) {
	case nil:
		return rankNil
	case bool:
		return rankBool
	case string:
		return rankString
	}
	if _, ok := toFloat(v); ok {
		return rankNumber
	}
	return rankOther
}

func reverseRecords(records []map[string]any) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}

// pageRecords applies skip and count to an already ordered result set.
func pageRecords(records []map[string]any, skip, count int) []map[string]any {
	if skip > 0 {
		if skip >= len(records) {
			return nil
		}
		records = records[skip:]
	}
	if count > 0 && len(records) > count {
		records = records[:count]
	}
	return records
}

// applyHints is the shared tail for adapters that execute queries client
// side: sort when asked, reverse when asked, then page.
func applyHints(records []map[string]any, hints FindHints) []map[string]any {
	if hints.SortKey != "" {
		sortRecords(records, hints.SortKey)
	}
	if hints.Descending {
		reverseRecords(records)
	}
	return pageRecords(records, hints.Skip, hints.Count)
}
