package domain

// Severity levels for structural diagnostics. Only error-severity diagnostics
// block a validated save.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Diagnostic is a structural issue found while parsing document text.
type Diagnostic struct {
	Line     int    `json:"line"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// ParsedSection is a heading extracted from document text.
type ParsedSection struct {
	Name      string `json:"name"`
	ShortCode string `json:"short_code,omitempty"`
	Line      int    `json:"line"`
	Level     int    `json:"level"`
}

// ParsedRequirement is a requirement block extracted from document text.
// Ref may be empty: assigning one is the allocator's job, not the parser's.
// SectionName is the name of the most recently opened section, or empty for
// unsectioned requirements.
type ParsedRequirement struct {
	Ref          string `json:"ref,omitempty"`
	Text         string `json:"text"`
	Pattern      string `json:"pattern,omitempty"`
	Verification string `json:"verification,omitempty"`
	SectionName  string `json:"section_name,omitempty"`
	Line         int    `json:"line"`
}

// ParsedInfo is an info block extracted from document text. ID holds the
// block's id attribute when the anchor ref is absent.
type ParsedInfo struct {
	Ref         string `json:"ref,omitempty"`
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Text        string `json:"text"`
	SectionName string `json:"section_name,omitempty"`
	Line        int    `json:"line"`
}

// ParsedDocument is the parser's complete output for one document text.
// Parsing is deterministic: identical text yields an identical ParsedDocument.
// Name and ShortCode come from the level-1 title heading when present.
type ParsedDocument struct {
	Name         string              `json:"name,omitempty"`
	ShortCode    string              `json:"short_code,omitempty"`
	Sections     []ParsedSection     `json:"sections"`
	Requirements []ParsedRequirement `json:"requirements"`
	Infos        []ParsedInfo        `json:"infos"`
	Diagnostics  []Diagnostic        `json:"diagnostics"`
}

// HasErrors reports whether any diagnostic is error severity.
func (p *ParsedDocument) HasErrors() bool {
	if p == nil {
		return false
	}
	for _, d := range p.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
