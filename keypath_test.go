package manila

import (
	"reflect"
	"testing"
)

func TestSetKeyPathBuildsIntermediates(t *testing.T) {
	got := SetKeyPath(nil, "a.b.c", 5)
	want := map[string]any{"a": map[string]any{"b": map[string]any{"c": 5}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSetKeyPathIntoExistingMapping(t *testing.T) {
	root := map[string]any{"a": map[string]any{"x": 1}}
	got := SetKeyPath(root, "a.b", 2)
	want := map[string]any{"a": map[string]any{"x": 1, "b": 2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSetKeyPathSingleSegment(t *testing.T) {
	got := SetKeyPath(map[string]any{}, "only", "value")
	if got["only"] != "value" {
		t.Fatalf("got %v", got)
	}
}

// A non-mapping intermediate is replaced wholesale, its old value is gone.
func TestSetKeyPathOverwritesNonMappingIntermediate(t *testing.T) {
	root := map[string]any{"a": "not a mapping"}
	got := SetKeyPath(root, "a.b", 2)
	want := map[string]any{"a": map[string]any{"b": 2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	deep := map[string]any{"a": map[string]any{"b": "not-a-map"}}
	got = SetKeyPath(deep, "a.b.c", 5)
	want = map[string]any{"a": map[string]any{"b": map[string]any{"c": 5}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// A non-mapping root folds into {value: 1} before the path is applied.
func TestSetKeyPathFoldsNonMappingRoot(t *testing.T) {
	got := SetKeyPath("hello", "a.b", 2)
	want := map[string]any{"hello": 1, "a": map[string]any{"b": 2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSetKeyPathMutatesAndReturnsRoot(t *testing.T) {
	root := map[string]any{}
	got := SetKeyPath(root, "a.b", 1)
	if !reflect.DeepEqual(root, got) {
		t.Fatal("expected the returned mapping to be the root")
	}
	if _, ok := root["a"]; !ok {
		t.Fatal("expected the root to gain the path in place")
	}
}

func TestGetKeyPath(t *testing.T) {
	dic := map[string]any{
		"a": map[string]any{"b": map[string]any{"c": 5}},
		"s": "flat",
	}

	if v, ok := GetKeyPath(dic, "a.b.c"); !ok || v != 5 {
		t.Fatalf("a.b.c = %v (%v)", v, ok)
	}
	if v, ok := GetKeyPath(dic, "s"); !ok || v != "flat" {
		t.Fatalf("s = %v (%v)", v, ok)
	}
	if _, ok := GetKeyPath(dic, "a.missing"); ok {
		t.Fatal("missing leaf should not be found")
	}
	if _, ok := GetKeyPath(dic, "s.b"); ok {
		t.Fatal("descending through a non-mapping should not be found")
	}
	if _, ok := GetKeyPath(nil, "a"); ok {
		t.Fatal("nil mapping holds nothing")
	}
}
