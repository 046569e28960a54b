package docsync

import (
	"strings"

	types "github.com/specbridge/specbridge-backend/internal/domain"
)

// ResolvePrefix derives the ref prefix for an entity from its owning document
// and, when present, its owning section. The function is pure: creation and
// later bulk prefix rewrites must agree on the prefix regardless of call
// site.
//
// Rules:
//   - document + section: "<docCode>-<sectionCode>"
//   - document only:      "<docCode>"
//   - no document (legacy project-level requirements): "REQ-<PROJECTSLUG>"
//
// where docCode falls back to the uppercased slug and sectionCode to the
// uppercased section name with spaces removed.
func ResolvePrefix(projectSlug string, doc *types.Document, sec *types.Section) string {
	if doc == nil {
		return "REQ-" + strings.ToUpper(strings.ReplaceAll(projectSlug, "-", ""))
	}
	docCode := doc.ShortCode
	if docCode == "" {
		docCode = strings.ToUpper(doc.Slug)
	}
	if sec == nil {
		return docCode
	}
	secCode := sec.ShortCode
	if secCode == "" {
		secCode = strings.ToUpper(strings.ReplaceAll(sec.Name, " ", ""))
	}
	return docCode + "-" + secCode
}
