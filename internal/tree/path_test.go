package tree

import (
	"reflect"
	"testing"

	"pagecomposer/internal/domain"
)

func TestSplitPath(t *testing.T) {
	cases := map[string][]string{
		"title":            {"title"},
		"items.2.title":    {"items", "2", "title"},
		"items[2].title":   {"items", "2", "title"},
		"a..b":             {"a", "b"},
		"grid[0][1].label": {"grid", "0", "1", "label"},
	}
	for in, want := range cases {
		if got := SplitPath(in); !reflect.DeepEqual(got, want) {
			t.Fatalf("SplitPath(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetAtPathCreatesIntermediates(t *testing.T) {
	cfg := domain.Config{}
	SetAtPath(cfg, "items.1.title", "Second")
	arr, ok := cfg["items"].([]any)
	if !ok || len(arr) != 2 || arr[0] != nil {
		t.Fatalf("items = %#v", cfg["items"])
	}
	m, ok := arr[1].(map[string]any)
	if !ok || m["title"] != "Second" {
		t.Fatalf("items[1] = %#v", arr[1])
	}
	SetAtPath(cfg, "style.color", "red")
	if v, _ := GetAtPath(cfg, "style.color"); v != "red" {
		t.Fatalf("style.color = %v", v)
	}
}

func TestSetAtPathEditsExistingArrayElement(t *testing.T) {
	cfg := domain.Config{"items": []any{
		map[string]any{"question": "Q1", "answer": "A1"},
		map[string]any{"question": "Q2", "answer": "A2"},
	}}
	SetAtPath(cfg, "items[1].answer", "changed")
	if v, _ := GetAtPath(cfg, "items.1.answer"); v != "changed" {
		t.Fatalf("answer = %v", v)
	}
	if v, _ := GetAtPath(cfg, "items.1.question"); v != "Q2" {
		t.Fatalf("sibling field lost: %v", v)
	}
	if v, _ := GetAtPath(cfg, "items.0.answer"); v != "A1" {
		t.Fatalf("other element touched: %v", v)
	}
}

func TestSetAtPathOverwritesConflictingScalar(t *testing.T) {
	cfg := domain.Config{"items": "not an array", "size": float64(3)}
	SetAtPath(cfg, "items.0", "x")
	if !reflect.DeepEqual(cfg["items"], []any{"x"}) {
		t.Fatalf("items = %#v", cfg["items"])
	}
	SetAtPath(cfg, "size.unit", "px")
	if !reflect.DeepEqual(cfg["size"], map[string]any{"unit": "px"}) {
		t.Fatalf("size = %#v", cfg["size"])
	}
}

func TestSetAtPathEmptyPathIsNoop(t *testing.T) {
	cfg := domain.Config{"a": 1}
	SetAtPath(cfg, "", "x")
	SetAtPath(nil, "a", "x")
	if len(cfg) != 1 || cfg["a"] != 1 {
		t.Fatalf("cfg changed: %#v", cfg)
	}
}

func TestGetAtPathMissing(t *testing.T) {
	cfg := domain.Config{"items": []any{map[string]any{"a": "b"}}}
	for _, p := range []string{"nope", "items.3", "items.0.z", "items.x"} {
		if _, ok := GetAtPath(cfg, p); ok {
			t.Fatalf("GetAtPath(%q) should be missing", p)
		}
	}
}

func TestSetAtPathKeepsTypedContainers(t *testing.T) {
	cfg := domain.Config{
		"items": []map[string]any{{"q": "one", "a": "x"}, {"q": "two"}},
		"tags":  []string{"a", "b"},
		"meta":  map[string]string{"k": "v"},
	}
	if !SetAtPath(cfg, "items.0.q", "ONE") {
		t.Fatalf("write refused")
	}
	want := []any{map[string]any{"q": "ONE", "a": "x"}, map[string]any{"q": "two"}}
	if !reflect.DeepEqual(cfg["items"], want) {
		t.Fatalf("items = %#v", cfg["items"])
	}
	SetAtPath(cfg, "tags.2", "c")
	if !reflect.DeepEqual(cfg["tags"], []any{"a", "b", "c"}) {
		t.Fatalf("tags = %#v", cfg["tags"])
	}
	SetAtPath(cfg, "meta.n", "w")
	if !reflect.DeepEqual(cfg["meta"], map[string]any{"k": "v", "n": "w"}) {
		t.Fatalf("meta = %#v", cfg["meta"])
	}
	if v, ok := GetAtPath(domain.Config{"tags": []string{"x"}}, "tags.0"); !ok || v != "x" {
		t.Fatalf("GetAtPath typed slice = %v, %v", v, ok)
	}
}

func TestSetAtPathRefusesHugeIndex(t *testing.T) {
	cfg := domain.Config{"items": []any{"a"}}
	if SetAtPath(cfg, "items.99999999999", "x") {
		t.Fatalf("huge index accepted")
	}
	if SetAtPath(cfg, "items.10000.title", "x") {
		t.Fatalf("index past MaxArrayIndex accepted")
	}
	if !reflect.DeepEqual(cfg["items"], []any{"a"}) {
		t.Fatalf("items changed: %#v", cfg["items"])
	}
	if !SetAtPath(cfg, "items.3", "d") {
		t.Fatalf("small index refused")
	}
	if arr := cfg["items"].([]any); len(arr) != 4 || arr[3] != "d" {
		t.Fatalf("items = %#v", arr)
	}
}
