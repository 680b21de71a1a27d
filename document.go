package goqueryrag

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/inteligo-bi/go-query-rag/internal"
)

// ParsedDocumentation holds the typed collections extracted from one
// knowledge document. Each collection is either nil (section missing or
// unparseable) or non-empty; Errors records which sections could not be
// parsed. The struct is built once per raw document and never mutated.
type ParsedDocumentation struct {
	Base     string
	Measures []Measure
	Tables   []Table
	Queries  []CannedQuery
	Examples []Example
	Errors   []string
}

// Measure describes one analytical measure of the data model. Name is the
// unique key within a document. Formula, SourceTable, Format and Columns are
// only populated when the document carries a detail block for the measure.
type Measure struct {
	Name        string
	Description string
	WhenToUse   string
	Area        string
	Formula     string
	SourceTable string
	Format      string
	Columns     []string
}

// Table groups the documented columns of one physical table.
type Table struct {
	Table       string
	Description string
	Columns     []Column
}

// Column describes one "Table.Column" reference with its declared type and
// usage flags.
type Column struct {
	Name     string
	Type     string
	Usage    ColumnUsage
	Examples []string
}

// ColumnUsage flags how a column is meant to be used in generated queries.
type ColumnUsage struct {
	Filter bool
	Group  bool
}

// CannedQuery is a pre-authored question/query mapping from the QUERIES
// section, identified by an id such as "Q12".
type CannedQuery struct {
	ID       string
	Question string
	Measures []string
	Groupers []string
	Filters  []string
	Category string
}

// Example is a worked question from the EXAMPLES section, including the
// expected model response.
type Example struct {
	Question string
	Measures []string
	Groupers []string
	Filters  []string
	Ordering string
	Limit    int
	Response string
}

// Section names recognized by ParseDocumentation. Every section is delimited
// by a `<<<NAME>>>` start marker and a `<<<END NAME>>>` end marker. Markers
// must not be nested or repeated; the first pair per name wins.
const (
	sectionBase     = "BASE"
	sectionMeasures = "MEASURES"
	sectionTables   = "TABLES"
	sectionQueries  = "QUERIES"
	sectionExamples = "EXAMPLES"
)

var (
	headingPattern  = regexp.MustCompile(`^#+\s+(.+?)\s*$`)
	columnRefRegexp = regexp.MustCompile(`^\w+\.\w+$`)
	queryIDRegexp   = regexp.MustCompile(`^[Qq]\d+$`)
	exampleHeading  = regexp.MustCompile(`(?im)^#*\s*(?:exemplo|example)\s+\d+.*$`)
)

// ParseDocumentation turns one raw knowledge document into typed
// collections. Parsing is purely textual: it performs no external calls and
// never fails hard. Sections that are missing or yield nothing are reported
// through Errors and left nil, so callers must tolerate partial results.
func ParseDocumentation(raw string) ParsedDocumentation {
	raw = cleanContent(raw)

	doc := ParsedDocumentation{}

	if body, ok := sectionBody(raw, sectionBase); ok && strings.TrimSpace(body) != "" {
		doc.Base = strings.TrimSpace(body)
	} else {
		doc.Errors = append(doc.Errors, sectionError(sectionBase, ok))
	}

	if body, ok := sectionBody(raw, sectionMeasures); ok {
		doc.Measures = parseMeasures(body)
		if len(doc.Measures) == 0 {
			doc.Errors = append(doc.Errors, sectionError(sectionMeasures, true))
		}
	} else {
		doc.Errors = append(doc.Errors, sectionError(sectionMeasures, false))
	}

	if body, ok := sectionBody(raw, sectionTables); ok {
		doc.Tables = parseTables(body)
		if len(doc.Tables) == 0 {
			doc.Errors = append(doc.Errors, sectionError(sectionTables, true))
		}
	} else {
		doc.Errors = append(doc.Errors, sectionError(sectionTables, false))
	}

	if body, ok := sectionBody(raw, sectionQueries); ok {
		doc.Queries = parseQueries(body)
		if len(doc.Queries) == 0 {
			doc.Errors = append(doc.Errors, sectionError(sectionQueries, true))
		}
	} else {
		doc.Errors = append(doc.Errors, sectionError(sectionQueries, false))
	}

	if body, ok := sectionBody(raw, sectionExamples); ok {
		doc.Examples = parseExamples(body)
		if len(doc.Examples) == 0 {
			doc.Errors = append(doc.Errors, sectionError(sectionExamples, true))
		}
	} else {
		doc.Errors = append(doc.Errors, sectionError(sectionExamples, false))
	}

	return doc
}

func sectionError(name string, found bool) string {
	if !found {
		return fmt.Sprintf("%s section not found", name)
	}
	return fmt.Sprintf("%s section yielded no entries", name)
}

func sectionBody(raw, name string) (string, bool) {
	start := "<<<" + name + ">>>"
	end := "<<<END " + name + ">>>"

	i := strings.Index(raw, start)
	if i < 0 {
		return "", false
	}
	rest := raw[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

// splitPipeRow returns the trimmed cells of a pipe-delimited table row, or
// nil when the line is not a row.
func splitPipeRow(line string) []string {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "|") {
		return nil
	}
	line = strings.Trim(line, "|")

	parts := strings.Split(line, "|")
	cells := make([]string, len(parts))
	for i, part := range parts {
		cells[i] = strings.TrimSpace(part)
	}
	return cells
}

func isSeparatorRow(cells []string) bool {
	for _, cell := range cells {
		if strings.Trim(cell, "-: ") != "" {
			return false
		}
	}
	return true
}

// cellValue maps the literal placeholder "-" to empty.
func cellValue(cell string) string {
	if cell == "-" {
		return ""
	}
	return cell
}

// splitList splits a comma or semicolon separated cell into trimmed items,
// dropping empties and the "-" placeholder.
func splitList(cell string) []string {
	cell = cellValue(strings.TrimSpace(cell))
	if cell == "" {
		return nil
	}

	items := make([]string, 0)
	for _, part := range strings.FieldsFunc(cell, func(r rune) bool { return r == ',' || r == ';' }) {
		part = strings.TrimSpace(part)
		if part == "" || part == "-" {
			continue
		}
		items = append(items, part)
	}
	if len(items) == 0 {
		return nil
	}
	return items
}

// labelValue splits "Label: value" lines. The label is returned folded so
// that "Fórmula" and "formula" compare equal.
func labelValue(line string) (label, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	label = internal.Fold(strings.TrimSpace(strings.Trim(strings.TrimSpace(line[:idx]), "*_")))
	value = strings.TrimSpace(line[idx+1:])
	return label, value, true
}

func measureHeaderCell(cell string) bool {
	switch internal.Fold(cell) {
	case "medida", "measure", "nome", "name", "indicador":
		return true
	}
	return false
}

// parseMeasures reads the pipe-delimited summary table first, then enriches
// each row from a detail block headed by the measure's name. When the
// section has no table rows at all, measures are built purely from the
// detail blocks.
func parseMeasures(section string) []Measure {
	measures := make([]Measure, 0)
	index := make(map[string]int)

	for _, line := range strings.Split(section, "\n") {
		cells := splitPipeRow(line)
		if len(cells) < 2 || isSeparatorRow(cells) {
			continue
		}
		if measureHeaderCell(cells[0]) {
			continue
		}
		name := strings.TrimSpace(cells[0])
		if name == "" || name == "-" {
			continue
		}
		if _, dup := index[internal.Fold(name)]; dup {
			continue
		}
		m := Measure{Name: name, Description: cellValue(cells[1])}
		if len(cells) > 2 {
			m.WhenToUse = cellValue(cells[2])
		}
		if len(cells) > 3 {
			m.Area = cellValue(cells[3])
		}
		measures = append(measures, m)
		index[internal.Fold(name)] = len(measures) - 1
	}

	blocks := detailBlocks(section)
	if len(measures) == 0 {
		// No summary table; fall back to the detail blocks alone.
		for _, block := range blocks {
			m := Measure{Name: block.name}
			applyMeasureDetails(&m, block.lines)
			if m.Description == "" && m.Formula == "" && m.SourceTable == "" {
				continue
			}
			measures = append(measures, m)
		}
		if len(measures) == 0 {
			return nil
		}
		return measures
	}

	for _, block := range blocks {
		if i, ok := index[internal.Fold(block.name)]; ok {
			applyMeasureDetails(&measures[i], block.lines)
		}
	}

	return measures
}

type detailBlock struct {
	name  string
	lines []string
}

func detailBlocks(section string) []detailBlock {
	blocks := make([]detailBlock, 0)
	var current *detailBlock

	for _, line := range strings.Split(section, "\n") {
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			blocks = append(blocks, detailBlock{name: m[1]})
			current = &blocks[len(blocks)-1]
			continue
		}
		if current != nil {
			current.lines = append(current.lines, line)
		}
	}

	return blocks
}

func applyMeasureDetails(m *Measure, lines []string) {
	for _, line := range lines {
		label, value, ok := labelValue(line)
		if !ok || value == "" {
			continue
		}
		switch label {
		case "formula":
			m.Formula = value
		case "tabela", "tabela de origem", "origem", "source table":
			m.SourceTable = value
		case "formato", "format":
			m.Format = value
		case "colunas", "colunas utilizadas", "columns", "used columns":
			m.Columns = splitList(value)
		case "descricao", "description":
			if m.Description == "" {
				m.Description = value
			}
		case "quando usar", "uso", "when to use":
			if m.WhenToUse == "" {
				m.WhenToUse = value
			}
		case "area", "área":
			if m.Area == "" {
				m.Area = value
			}
		}
	}
}

// parseTables scans pipe rows whose first cell is in Table.Column form and
// groups them by table. A heading right before a table's first row becomes
// its description.
func parseTables(section string) []Table {
	tables := make([]Table, 0)
	index := make(map[string]int)

	heading := ""
	headingText := make([]string, 0)

	for _, line := range strings.Split(section, "\n") {
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			heading = m[1]
			headingText = headingText[:0]
			continue
		}

		cells := splitPipeRow(line)
		if cells == nil {
			if heading != "" && strings.TrimSpace(line) != "" {
				headingText = append(headingText, strings.TrimSpace(line))
			}
			continue
		}
		if len(cells) < 2 || isSeparatorRow(cells) || !columnRefRegexp.MatchString(cells[0]) {
			continue
		}

		tableName := cells[0][:strings.Index(cells[0], ".")]
		idx, ok := index[internal.Fold(tableName)]
		if !ok {
			tbl := Table{Table: tableName}
			if internal.Fold(heading) == internal.Fold(tableName) {
				tbl.Description = strings.Join(headingText, " ")
			}
			tables = append(tables, tbl)
			idx = len(tables) - 1
			index[internal.Fold(tableName)] = idx
		}

		col := Column{Name: cells[0], Type: cellValue(cells[1])}
		if len(cells) > 2 {
			col.Usage = parseUsage(cells[2])
		}
		if len(cells) > 3 {
			col.Examples = splitList(cells[3])
		}
		tables[idx].Columns = append(tables[idx].Columns, col)
	}

	if len(tables) == 0 {
		return nil
	}
	return tables
}

// parseUsage keyword-matches the usage cell against the filter/group
// vocabulary, accepting both Portuguese and English forms.
func parseUsage(cell string) ColumnUsage {
	folded := internal.Fold(cell)
	return ColumnUsage{
		Filter: strings.Contains(folded, "filtr") || strings.Contains(folded, "filter"),
		Group:  strings.Contains(folded, "agrup") || strings.Contains(folded, "group"),
	}
}

// parseQueries reads canned query rows, tracking the most recent heading as
// the current category. Rows are recognized by a Q<number> id in the first
// cell; a literal "-" cell is treated as empty.
func parseQueries(section string) []CannedQuery {
	queries := make([]CannedQuery, 0)
	seen := make(map[string]struct{})
	category := ""

	for _, line := range strings.Split(section, "\n") {
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			category = m[1]
			continue
		}

		cells := splitPipeRow(line)
		if len(cells) < 2 || isSeparatorRow(cells) || !queryIDRegexp.MatchString(cells[0]) {
			continue
		}

		id := strings.ToUpper(cells[0])
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		q := CannedQuery{ID: id, Question: cellValue(cells[1]), Category: category}
		if len(cells) > 2 {
			q.Measures = splitList(cells[2])
		}
		if len(cells) > 3 {
			q.Groupers = splitList(cells[3])
		}
		if len(cells) > 4 {
			q.Filters = splitList(cells[4])
		}
		queries = append(queries, q)
	}

	if len(queries) == 0 {
		return nil
	}
	return queries
}

// parseExamples splits the section on the repeating "Example N" heading and
// extracts labeled key/value lines from each block.
func parseExamples(section string) []Example {
	headings := exampleHeading.FindAllStringIndex(section, -1)
	if headings == nil {
		return nil
	}

	examples := make([]Example, 0, len(headings))
	for i, loc := range headings {
		end := len(section)
		if i+1 < len(headings) {
			end = headings[i+1][0]
		}

		example, ok := parseExampleBlock(section[loc[1]:end])
		if ok {
			examples = append(examples, example)
		}
	}

	if len(examples) == 0 {
		return nil
	}
	return examples
}

func parseExampleBlock(block string) (Example, bool) {
	example := Example{}

	for _, line := range strings.Split(block, "\n") {
		label, value, ok := labelValue(line)
		if !ok || value == "" {
			continue
		}
		switch label {
		case "pergunta", "question":
			example.Question = value
		case "medidas", "measures":
			example.Measures = splitList(value)
		case "agrupadores", "groupers":
			example.Groupers = splitList(value)
		case "filtros", "filters":
			example.Filters = splitList(value)
		case "ordenacao", "ordering", "order":
			example.Ordering = cellValue(value)
		case "limite", "limit":
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				example.Limit = n
			}
		case "resposta", "response":
			example.Response = strings.Trim(value, `"`)
		}
	}

	return example, example.Question != ""
}
