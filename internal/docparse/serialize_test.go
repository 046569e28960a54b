package docparse

import (
	"testing"

	"github.com/google/uuid"

	types "github.com/specbridge/specbridge-backend/internal/domain"
)

func TestSerializeParseRoundTrip(t *testing.T) {
	doc := &types.Document{Slug: "srd", Name: "System Requirements", ShortCode: "SRD"}
	sec := &types.Section{ID: uuid.New(), Name: "Functional", ShortCode: "FUN", Order: 0}
	secID := sec.ID

	reqs := []*types.Requirement{
		{
			ID:           uuid.New(),
			Ref:          "SRD-FUN-001",
			Text:         "The system shall boot in 5s.",
			Pattern:      "ubiquitous",
			Verification: "Test",
			SectionID:    &secID,
		},
		{
			ID:   uuid.New(),
			Ref:  "SRD-002",
			Text: "The system shall log faults.",
		},
	}
	infos := []*types.InfoBlock{
		{
			ID:        uuid.New(),
			Ref:       "SRD-INFO-001",
			Title:     "Scope",
			Text:      "Applies to unit A only.",
			SectionID: &secID,
		},
	}

	text := Serialize(doc, []*types.Section{sec}, reqs, infos)
	parsed := Parse(text)

	if parsed.HasErrors() {
		t.Fatalf("serialized output did not parse cleanly: %+v", parsed.Diagnostics)
	}
	if len(parsed.Sections) != 1 || parsed.Sections[0].Name != "Functional" || parsed.Sections[0].ShortCode != "FUN" {
		t.Fatalf("section did not round trip: %+v", parsed.Sections)
	}
	if len(parsed.Requirements) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(parsed.Requirements))
	}

	byRef := map[string]types.ParsedRequirement{}
	for _, r := range parsed.Requirements {
		byRef[r.Ref] = r
	}
	got, ok := byRef["SRD-FUN-001"]
	if !ok {
		t.Fatal("SRD-FUN-001 missing after round trip")
	}
	if got.Text != "The system shall boot in 5s." || got.Pattern != "ubiquitous" || got.Verification != "Test" {
		t.Fatalf("requirement fields did not round trip: %+v", got)
	}
	if got.SectionName != "Functional" {
		t.Fatalf("expected section Functional, got %q", got.SectionName)
	}
	if unsectioned := byRef["SRD-002"]; unsectioned.SectionName != "" {
		t.Fatalf("expected SRD-002 unsectioned, got %q", unsectioned.SectionName)
	}

	if len(parsed.Infos) != 1 {
		t.Fatalf("expected 1 info, got %d", len(parsed.Infos))
	}
	in := parsed.Infos[0]
	if in.Ref != "SRD-INFO-001" || in.Title != "Scope" || in.Text != "Applies to unit A only." {
		t.Fatalf("info did not round trip: %+v", in)
	}
}

func TestRoundTripKeepsLiteralKeyLineInText(t *testing.T) {
	req := &types.Requirement{
		ID:      uuid.New(),
		Ref:     "SRD-001",
		Text:    "See the note below.\n**Pattern:** quoted in prose",
		Pattern: "ubiquitous",
	}

	parsed := Parse(Serialize(nil, nil, []*types.Requirement{req}, nil))

	if len(parsed.Requirements) != 1 {
		t.Fatalf("expected 1 requirement, got %d", len(parsed.Requirements))
	}
	got := parsed.Requirements[0]
	if got.Pattern != "ubiquitous" {
		t.Fatalf("pattern mutated by round trip: %q", got.Pattern)
	}
	if got.Text != req.Text {
		t.Fatalf("text mutated by round trip: %q", got.Text)
	}
}

func TestSerializeSkipsSoftDeleted(t *testing.T) {
	doc := &types.Document{Slug: "srd", ShortCode: "SRD"}
	reqs := []*types.Requirement{
		{ID: uuid.New(), Ref: "SRD-001", Text: "kept"},
		{ID: uuid.New(), Ref: "SRD-002", Text: "gone", Deleted: true},
	}

	parsed := Parse(Serialize(doc, nil, reqs, nil))

	if len(parsed.Requirements) != 1 || parsed.Requirements[0].Ref != "SRD-001" {
		t.Fatalf("soft-deleted requirement leaked into serialization: %+v", parsed.Requirements)
	}
}
