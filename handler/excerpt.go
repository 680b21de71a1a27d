package handler

import (
	"strings"

	"github.com/inteligo-bi/go-query-rag/internal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// headingExcerpt bounds free-form background text to roughly maxTokens.
// Content within the budget passes through untouched. Oversized content is
// cut at markdown heading boundaries: leading sections are kept whole while
// they fit. When even the first section is too large, the text is
// truncated at the exact token boundary instead.
func headingExcerpt(content string, maxTokens int) string {
	content = strings.TrimSpace(content)
	if content == "" || maxTokens <= 0 {
		return content
	}
	if internal.CountTokens(content) <= maxTokens {
		return content
	}

	kept := make([]string, 0)
	budget := maxTokens
	for _, section := range headingSections(content) {
		size := internal.CountTokens(section)
		if size > budget {
			break
		}
		kept = append(kept, section)
		budget -= size
	}

	if len(kept) == 0 {
		return tokenTruncate(content, maxTokens)
	}
	return strings.TrimSpace(strings.Join(kept, "\n\n"))
}

// headingSections splits markdown text into segments, each starting at a
// top-level heading. Text before the first heading forms its own segment.
func headingSections(content string) []string {
	source := []byte(content)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	sections := make([]string, 0)
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sections = append(sections, s)
		}
		current.Reset()
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if node.Kind() == ast.KindHeading {
			flush()
		}
		block := nodeText(node, source)
		if block != "" {
			current.WriteString(block)
			current.WriteString("\n\n")
		}
	}
	flush()

	if len(sections) == 0 {
		return []string{content}
	}
	return sections
}

// nodeText reconstructs the raw source span of a block node, descending
// into containers (lists, quotes) that carry no lines themselves.
func nodeText(node ast.Node, source []byte) string {
	lines := node.Lines()
	if lines != nil && lines.Len() > 0 {
		var sb strings.Builder
		for i := 0; i < lines.Len(); i++ {
			segment := lines.At(i)
			sb.Write(segment.Value(source))
		}
		return strings.TrimRight(sb.String(), "\n")
	}

	var sb strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		part := nodeText(child, source)
		if part != "" {
			sb.WriteString(part)
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func tokenTruncate(content string, maxTokens int) string {
	ids, err := internal.EncodeStringByTiktoken(content)
	if err != nil || len(ids) <= maxTokens {
		return content
	}
	truncated, err := internal.DecodeTokensByTiktoken(ids[:maxTokens])
	if err != nil {
		return content
	}
	return strings.TrimSpace(truncated)
}
