package docparse

import (
	"fmt"
	"regexp"
	"strings"

	types "github.com/specbridge/specbridge-backend/internal/domain"
)

var (
	headingRe   = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	shortCodeRe = regexp.MustCompile(`^\[([A-Za-z0-9_-]+)\]\s*(.*)$`)
	fenceRe     = regexp.MustCompile(`^:::([A-Za-z][A-Za-z0-9_-]*)(\{.*)?\s*$`)
	anchorRe    = regexp.MustCompile(`#([A-Za-z0-9][A-Za-z0-9_-]*)`)
	attrPairRe  = regexp.MustCompile(`([A-Za-z][A-Za-z0-9_-]*)="([^"]*)"`)
	keyLineRe   = regexp.MustCompile(`^\*\*(Pattern|Verification):\*\*\s*(.*)$`)
)

const closingFence = ":::"

// openBlock is the parser's in-flight fenced block.
type openBlock struct {
	directive   string
	ref         string
	id          string
	title       string
	sectionName string
	line        int
	body        []string
}

// sectionFrame is one entry of the heading stack. The stack replaces the
// ambient "last heading seen" variable: opening a heading at level L pops
// every frame at level >= L, so the innermost open section is always the top.
type sectionFrame struct {
	name  string
	level int
}

// Parse turns raw document text into an ordered parse tree of sections,
// requirement blocks and info blocks. It is pure and re-entrant: identical
// text always yields an identical result, which is what makes repeated saves
// idempotent. Malformed syntax is reported through diagnostics instead of
// aborting the parse.
func Parse(text string) *types.ParsedDocument {
	out := &types.ParsedDocument{
		Sections:     []types.ParsedSection{},
		Requirements: []types.ParsedRequirement{},
		Infos:        []types.ParsedInfo{},
		Diagnostics:  []types.Diagnostic{},
	}

	var (
		stack []sectionFrame
		block *openBlock
	)

	currentSection := func() string {
		if len(stack) == 0 {
			return ""
		}
		return stack[len(stack)-1].name
	}

	lines := strings.Split(text, "\n")
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimRight(raw, " \t")

		if block != nil {
			if strings.TrimSpace(line) == closingFence {
				closeBlock(out, block)
				block = nil
				continue
			}
			if m := fenceRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				// A new opening fence while a block is still open means the
				// previous block never closed.
				out.Diagnostics = append(out.Diagnostics, types.Diagnostic{
					Line:     block.line,
					Message:  fmt.Sprintf("block %q is missing its closing fence", block.directive),
					Severity: types.SeverityError,
				})
				closeBlock(out, block)
				block = parseFence(out, m, currentSection(), lineNo)
				continue
			}
			block.body = append(block.body, line)
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			level := len(m[1])
			name := strings.TrimSpace(m[2])
			shortCode := ""
			if sm := shortCodeRe.FindStringSubmatch(name); sm != nil {
				shortCode = sm[1]
				name = strings.TrimSpace(sm[2])
			}
			if name == "" {
				out.Diagnostics = append(out.Diagnostics, types.Diagnostic{
					Line:     lineNo,
					Message:  "heading has no name",
					Severity: types.SeverityWarning,
				})
				continue
			}
			if level == 1 {
				// Level-1 heading is the document title, not a section.
				// The first one names the document.
				if out.Name == "" {
					out.Name = name
					out.ShortCode = shortCode
				}
				stack = stack[:0]
				continue
			}
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, sectionFrame{name: name, level: level})
			out.Sections = append(out.Sections, types.ParsedSection{
				Name:      name,
				ShortCode: shortCode,
				Line:      lineNo,
				Level:     level,
			})
			continue
		}

		if m := fenceRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			block = parseFence(out, m, currentSection(), lineNo)
			continue
		}

		if strings.TrimSpace(line) == closingFence {
			out.Diagnostics = append(out.Diagnostics, types.Diagnostic{
				Line:     lineNo,
				Message:  "closing fence without an open block",
				Severity: types.SeverityWarning,
			})
		}
	}

	if block != nil {
		out.Diagnostics = append(out.Diagnostics, types.Diagnostic{
			Line:     block.line,
			Message:  fmt.Sprintf("block %q is missing its closing fence", block.directive),
			Severity: types.SeverityError,
		})
		closeBlock(out, block)
	}

	return out
}

// ValidateStructure parses the text and returns only the structural
// diagnostics. It never mutates anything.
func ValidateStructure(text string) []types.Diagnostic {
	return Parse(text).Diagnostics
}

func parseFence(out *types.ParsedDocument, m []string, sectionName string, lineNo int) *openBlock {
	directive := m[1]
	attrs := m[2]

	// The owning section is pinned at open time so a heading inside a
	// malformed block cannot retroactively move it.
	block := &openBlock{directive: directive, sectionName: sectionName, line: lineNo}
	block.ref, block.id, block.title = parseAttrs(out, attrs, lineNo)

	switch directive {
	case "requirement", "info":
	default:
		out.Diagnostics = append(out.Diagnostics, types.Diagnostic{
			Line:     lineNo,
			Message:  fmt.Sprintf("unknown block directive %q", directive),
			Severity: types.SeverityWarning,
		})
	}
	return block
}

func parseAttrs(out *types.ParsedDocument, attrs string, lineNo int) (ref, id, title string) {
	attrs = strings.TrimSpace(attrs)
	if attrs == "" {
		return "", "", ""
	}
	if !strings.HasPrefix(attrs, "{") || !strings.HasSuffix(attrs, "}") {
		out.Diagnostics = append(out.Diagnostics, types.Diagnostic{
			Line:     lineNo,
			Message:  "malformed block attributes, expected {...}",
			Severity: types.SeverityWarning,
		})
		return "", "", ""
	}
	inner := attrs[1 : len(attrs)-1]
	if m := anchorRe.FindStringSubmatch(inner); m != nil {
		ref = m[1]
	}
	for _, pair := range attrPairRe.FindAllStringSubmatch(inner, -1) {
		switch pair[1] {
		case "id":
			id = pair[2]
		case "title":
			title = pair[2]
		}
	}
	return ref, id, title
}

func closeBlock(out *types.ParsedDocument, b *openBlock) {
	switch b.directive {
	case "requirement":
		req := types.ParsedRequirement{
			Ref:         b.ref,
			SectionName: b.sectionName,
			Line:        b.line,
		}
		if req.Ref == "" {
			// The id attribute stands in for the anchor when only one is set.
			req.Ref = b.id
		}
		var textLines []string
		for _, line := range b.body {
			if m := keyLineRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				// Only the first occurrence of each key is metadata; later
				// ones stay part of the text.
				val := strings.TrimSpace(m[2])
				if m[1] == "Pattern" && req.Pattern == "" {
					req.Pattern = val
					continue
				}
				if m[1] == "Verification" && req.Verification == "" {
					req.Verification = val
					continue
				}
			}
			textLines = append(textLines, line)
		}
		req.Text = strings.TrimSpace(strings.Join(textLines, "\n"))
		if req.Text == "" {
			out.Diagnostics = append(out.Diagnostics, types.Diagnostic{
				Line:     b.line,
				Message:  "requirement block has no text",
				Severity: types.SeverityWarning,
			})
		}
		out.Requirements = append(out.Requirements, req)
	case "info":
		info := types.ParsedInfo{
			Ref:         b.ref,
			ID:          b.id,
			Title:       b.title,
			SectionName: b.sectionName,
			Line:        b.line,
		}
		info.Text = strings.TrimSpace(strings.Join(b.body, "\n"))
		out.Infos = append(out.Infos, info)
	default:
		// Unknown directives were already flagged at open time.
	}
}
