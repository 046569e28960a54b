package docsync

import (
	"testing"

	types "github.com/specbridge/specbridge-backend/internal/domain"
)

func TestResolvePrefixDocumentOnly(t *testing.T) {
	doc := &types.Document{Slug: "srd", ShortCode: "SRD"}
	if got := ResolvePrefix("proj", doc, nil); got != "SRD" {
		t.Fatalf("expected SRD, got %q", got)
	}
}

func TestResolvePrefixFallsBackToSlug(t *testing.T) {
	doc := &types.Document{Slug: "srd"}
	if got := ResolvePrefix("proj", doc, nil); got != "SRD" {
		t.Fatalf("expected uppercased slug SRD, got %q", got)
	}
}

func TestResolvePrefixWithSection(t *testing.T) {
	doc := &types.Document{Slug: "srd", ShortCode: "SRD"}
	sec := &types.Section{Name: "Functional", ShortCode: "FUN"}
	if got := ResolvePrefix("proj", doc, sec); got != "SRD-FUN" {
		t.Fatalf("expected SRD-FUN, got %q", got)
	}
}

func TestResolvePrefixSectionNameFallback(t *testing.T) {
	doc := &types.Document{Slug: "srd"}
	sec := &types.Section{Name: "User Interface"}
	if got := ResolvePrefix("proj", doc, sec); got != "SRD-USERINTERFACE" {
		t.Fatalf("expected SRD-USERINTERFACE, got %q", got)
	}
}

func TestResolvePrefixLegacyProjectFallback(t *testing.T) {
	if got := ResolvePrefix("my-project", nil, nil); got != "REQ-MYPROJECT" {
		t.Fatalf("expected REQ-MYPROJECT, got %q", got)
	}
}

func TestSplitRef(t *testing.T) {
	prefix, n, ok := SplitRef("SRD-FUN-001")
	if !ok || prefix != "SRD-FUN" || n != 1 {
		t.Fatalf("unexpected split %q %d %v", prefix, n, ok)
	}
	if _, _, ok := SplitRef("NOSUFFIX"); ok {
		t.Fatal("expected not ok for ref without numeric suffix")
	}
	if got := FormatRef("SRD-FUN", 12); got != "SRD-FUN-012" {
		t.Fatalf("expected SRD-FUN-012, got %q", got)
	}
	if got := FormatRef("SRD", 1000); got != "SRD-1000" {
		t.Fatalf("expected suffix to widen past 999, got %q", got)
	}
}
