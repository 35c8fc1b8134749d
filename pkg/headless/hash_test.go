package headless

import (
	"regexp"
	"testing"
)

var hexHash = regexp.MustCompile(`^[0-9a-f]{16}$`)

func TestHashes_Format(t *testing.T) {
	for _, h := range []string{
		BrickHash("content:0"),
		BrickHash(""),
		EditableHash("content:0.headline"),
		BlockHash("slides", 3),
	} {
		if !hexHash.MatchString(h) {
			t.Errorf("hash %q is not 16 lowercase hex digits", h)
		}
	}
}

func TestHashes_Stable(t *testing.T) {
	if BrickHash("content:2:sidebar:0") != BrickHash("content:2:sidebar:0") {
		t.Error("BrickHash is not stable")
	}
	if EditableHash("headline") != EditableHash("headline") {
		t.Error("EditableHash is not stable")
	}
}

func TestHashes_SiblingsDiffer(t *testing.T) {
	seen := map[string]string{}
	for _, ns := range []string{"content:0", "content:1", "content:10", "content:1:inner:0", "sidebar:0"} {
		h := BrickHash(ns)
		if other, ok := seen[h]; ok {
			t.Errorf("BrickHash(%q) collides with BrickHash(%q)", ns, other)
		}
		seen[h] = ns
	}

	if BlockHash("slides", 0) == BlockHash("slides", 1) {
		t.Error("block repetitions share a hash")
	}
}

func TestHashes_SeparatorsEquivalent(t *testing.T) {
	// ":" and "." both map to "_" before hashing.
	if EditableHash("content:0.headline") != EditableHash("content_0_headline") {
		t.Error("separators are not normalized")
	}
}

func TestEditableNamespace(t *testing.T) {
	if got := EditableNamespace("content:0.headline"); got != "content:0:headline" {
		t.Errorf("EditableNamespace() = %q", got)
	}
}
