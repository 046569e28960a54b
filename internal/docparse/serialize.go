package docparse

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	types "github.com/specbridge/specbridge-backend/internal/domain"
)

// Serialize renders persisted entities back into the block syntax the parser
// consumes. Parsing the output recovers every requirement's ref, text,
// pattern and verification unchanged.
func Serialize(doc *types.Document, sections []*types.Section, requirements []*types.Requirement, infos []*types.InfoBlock) string {
	var b strings.Builder

	if doc != nil && doc.Name != "" {
		fmt.Fprintf(&b, "# %s\n\n", doc.Name)
	}

	bySection := func(sectionID *uuid.UUID) (reqs []*types.Requirement, infs []*types.InfoBlock) {
		for _, r := range requirements {
			if r == nil || r.Deleted {
				continue
			}
			if sameSection(r.SectionID, sectionID) {
				reqs = append(reqs, r)
			}
		}
		for _, in := range infos {
			if in == nil || in.Deleted {
				continue
			}
			if sameSection(in.SectionID, sectionID) {
				infs = append(infs, in)
			}
		}
		return reqs, infs
	}

	writeEntities := func(reqs []*types.Requirement, infs []*types.InfoBlock) {
		for _, r := range reqs {
			writeRequirement(&b, r)
		}
		for _, in := range infs {
			writeInfo(&b, in)
		}
	}

	writeEntities(bySection(nil))

	for _, s := range sections {
		if s == nil {
			continue
		}
		if s.ShortCode != "" {
			fmt.Fprintf(&b, "## [%s] %s\n\n", s.ShortCode, s.Name)
		} else {
			fmt.Fprintf(&b, "## %s\n\n", s.Name)
		}
		id := s.ID
		writeEntities(bySection(&id))
	}

	return b.String()
}

func writeRequirement(b *strings.Builder, r *types.Requirement) {
	if r.Ref != "" {
		fmt.Fprintf(b, ":::requirement{#%s}\n", r.Ref)
	} else {
		b.WriteString(":::requirement\n")
	}
	// Key lines come before the text so a literal **Pattern:** line inside
	// the text is not re-read as metadata.
	if r.Pattern != "" {
		fmt.Fprintf(b, "**Pattern:** %s\n", r.Pattern)
	}
	if r.Verification != "" {
		fmt.Fprintf(b, "**Verification:** %s\n", r.Verification)
	}
	if r.Text != "" {
		b.WriteString(r.Text)
		b.WriteString("\n")
	}
	b.WriteString(":::\n\n")
}

func writeInfo(b *strings.Builder, in *types.InfoBlock) {
	attrs := ""
	if in.Ref != "" {
		attrs = "#" + in.Ref
	}
	if in.Title != "" {
		if attrs != "" {
			attrs += " "
		}
		attrs += fmt.Sprintf("title=%q", in.Title)
	}
	if attrs != "" {
		fmt.Fprintf(b, ":::info{%s}\n", attrs)
	} else {
		b.WriteString(":::info\n")
	}
	if in.Text != "" {
		b.WriteString(in.Text)
		b.WriteString("\n")
	}
	b.WriteString(":::\n\n")
}

func sameSection(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
