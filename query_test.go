package manila

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectHints(t *testing.T) {
	t.Run("zero value without options", func(t *testing.T) {
		hints := CollectHints()
		assert.Equal(t, FindHints{}, hints)
	})

	t.Run("options accumulate", func(t *testing.T) {
		hints := CollectHints(Skip(2), Count(5), SortBy("name"), Reverse())
		assert.Equal(t, 2, hints.Skip)
		assert.Equal(t, 5, hints.Count)
		assert.Equal(t, "name", hints.SortKey)
		assert.True(t, hints.Descending)
	})

	t.Run("later option wins", func(t *testing.T) {
		hints := CollectHints(Skip(2), Skip(7))
		assert.Equal(t, 7, hints.Skip)
	})
}

func TestMatchRecord(t *testing.T) {
	record := map[string]any{
		"name":  "Ada",
		"level": float64(3),
		"meta":  map[string]any{"active": true},
	}

	t.Run("nil query matches everything", func(t *testing.T) {
		assert.True(t, matchRecord(record, nil))
		assert.True(t, matchRecord(record, map[string]any{}))
	})

	t.Run("equality on present key", func(t *testing.T) {
		assert.True(t, matchRecord(record, map[string]any{"name": "Ada"}))
		assert.False(t, matchRecord(record, map[string]any{"name": "Bob"}))
	})

	t.Run("missing key never matches", func(t *testing.T) {
		assert.False(t, matchRecord(record, map[string]any{"ghost": 1}))
	})

	t.Run("numbers compare across types", func(t *testing.T) {
		assert.True(t, matchRecord(record, map[string]any{"level": 3}))
		assert.True(t, matchRecord(record, map[string]any{"level": float64(3)}))
		assert.False(t, matchRecord(record, map[string]any{"level": 4}))
	})

	t.Run("dotted keys reach into nested mappings", func(t *testing.T) {
		assert.True(t, matchRecord(record, map[string]any{"meta.active": true}))
		assert.False(t, matchRecord(record, map[string]any{"meta.active": false}))
		assert.False(t, matchRecord(record, map[string]any{"meta.missing": true}))
	})

	t.Run("every entry must hold", func(t *testing.T) {
		assert.True(t, matchRecord(record, map[string]any{"name": "Ada", "level": 3}))
		assert.False(t, matchRecord(record, map[string]any{"name": "Ada", "level": 9}))
	})
}

func TestSortRecords(t *testing.T) {
	records := []map[string]any{
		{"name": "Carol", "level": float64(2)},
		{"name": "Ada"},
		{"name": "Bob", "level": float64(1)},
	}

	t.Run("orders by key with missing values first", func(t *testing.T) {
		sortRecords(records, "level")
		assert.Equal(t, "Ada", records[0]["name"])
		assert.Equal(t, "Bob", records[1]["name"])
		assert.Equal(t, "Carol", records[2]["name"])
	})

	t.Run("orders strings", func(t *testing.T) {
		sortRecords(records, "name")
		assert.Equal(t, "Ada", records[0]["name"])
		assert.Equal(t, "Carol", records[2]["name"])
	})

	t.Run("stable across equal values", func(t *testing.T) {
		same := []map[string]any{
			{"n": 1, "pos": "first"},
			{"n": 1, "pos": "second"},
		}
		sortRecords(same, "n")
		assert.Equal(t, "first", same[0]["pos"])
	})
}

func TestPageRecords(t *testing.T) {
	records := []map[string]any{
		{"n": 1}, {"n": 2}, {"n": 3}, {"n": 4},
	}

	t.Run("skip drops leading records", func(t *testing.T) {
		out := pageRecords(records, 1, 0)
		assert.Len(t, out, 3)
		assert.Equal(t, 2, out[0]["n"])
	})

	t.Run("count caps the result", func(t *testing.T) {
		out := pageRecords(records, 0, 2)
		assert.Len(t, out, 2)
	})

	t.Run("skip past the end yields nothing", func(t *testing.T) {
		assert.Empty(t, pageRecords(records, 10, 0))
	})

	t.Run("count past the end keeps everything", func(t *testing.T) {
		assert.Len(t, pageRecords(records, 0, 99), 4)
	})

	t.Run("skip and count compose", func(t *testing.T) {
		out := pageRecords(records, 1, 2)
		assert.Len(t, out, 2)
		assert.Equal(t, 2, out[0]["n"])
		assert.Equal(t, 3, out[1]["n"])
	})
}

func TestApplyHints(t *testing.T) {
	records := func() []map[string]any {
		return []map[string]any{
			{"name": "Bob", "level": float64(1)},
			{"name": "Ada", "level": float64(3)},
			{"name": "Carol", "level": float64(2)},
		}
	}

	t.Run("sort then reverse", func(t *testing.T) {
		out := applyHints(records(), FindHints{SortKey: "level", Descending: true})
		assert.Equal(t, "Ada", out[0]["name"])
		assert.Equal(t, "Bob", out[2]["name"])
	})

	t.Run("reverse without sort flips the input order", func(t *testing.T) {
		out := applyHints(records(), FindHints{Descending: true})
		assert.Equal(t, "Carol", out[0]["name"])
	})

	t.Run("paging happens after ordering", func(t *testing.T) {
		out := applyHints(records(), FindHints{SortKey: "name", Skip: 1, Count: 1})
		assert.Len(t, out, 1)
		assert.Equal(t, "Bob", out[0]["name"])
	})
}

func TestValueEqual(t *testing.T) {
	assert.True(t, valueEqual("a", "a"))
	assert.True(t, valueEqual(1, float64(1)))
	assert.True(t, valueEqual(nil, nil))
	assert.False(t, valueEqual("1", 1))
	assert.False(t, valueEqual(true, 1))
	assert.True(t, valueEqual(
		map[string]any{"x": float64(1)},
		map[string]any{"x": float64(1)},
	))
}
