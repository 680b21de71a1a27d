package goqueryrag

// The assembled context renders its sections in fixed priority order:
// curated training examples first, then previously successful queries, then
// suggested measures, then the optimized document excerpt. Curated,
// human-verified material must outrank ambient history and raw
// documentation in whatever consumes the block. Sections with no backing
// data are omitted entirely.
const queryContextTemplate = `{{- if .TrainingExamples -}}
---Curated Examples---
{{range $i, $ex := .TrainingExamples}}Example {{add $i 1}}:
Question: {{$ex.Question}}
Query: {{$ex.Query}}
{{- if $ex.Response}}
Response: {{$ex.Response}}
{{- end}}
{{end}}
{{end -}}
{{- if .SimilarQueries -}}
---Previously Successful Queries---
{{range .SimilarQueries}}Question: {{.Question}} (similarity {{printf "%.2f" .Similarity}}, reused {{.TimesReused}}x)
Query: {{.Query}}
{{end}}
{{end -}}
{{- if .SuggestedMeasures -}}
---Suggested Measures---
Measures that worked well for similar questions: {{join .SuggestedMeasures ", "}}

{{end -}}
{{- if .Base -}}
---Background---
{{.Base}}

{{end -}}
{{- if .Measures -}}
---Measures---
{{range .Measures}}- {{.Name}}: {{.Description}}
{{- if .WhenToUse}} Use when: {{.WhenToUse}}.{{end}}
{{- if .Formula}} Formula: {{.Formula}}{{end}}
{{- if .Format}} Format: {{.Format}}{{end}}
{{end}}
{{end -}}
{{- if .Queries -}}
---Reference Queries---
{{range .Queries}}- {{.ID}}{{if .Category}} [{{.Category}}]{{end}}: {{.Question}}
  measures: {{join .Measures ", "}}{{if .Groupers}}; grouped by: {{join .Groupers ", "}}{{end}}{{if .Filters}}; filters: {{join .Filters ", "}}{{end}}
{{end}}
{{end -}}
{{- if .Examples -}}
---Worked Examples---
{{range $i, $ex := .Examples}}Example {{add $i 1}}:
Question: {{$ex.Question}}
Measures: {{join $ex.Measures ", "}}
{{- if $ex.Groupers}}
Groupers: {{join $ex.Groupers ", "}}
{{- end}}
{{- if $ex.Filters}}
Filters: {{join $ex.Filters ", "}}
{{- end}}
{{- if $ex.Ordering}}
Ordering: {{$ex.Ordering}}
{{- end}}
{{- if $ex.Limit}}
Limit: {{$ex.Limit}}
{{- end}}
Response: "{{$ex.Response}}"
{{end}}
{{end -}}
{{- if .Tables -}}
---Tables---
{{range .Tables}}- {{.Table}}{{if .Description}} ({{.Description}}){{end}}: {{join .Columns ", "}}{{if .Omitted}} (+{{.Omitted}} more){{end}}
{{end}}
{{- end -}}`

type contextTemplateData struct {
	TrainingExamples  []contextExampleData
	SimilarQueries    []contextQueryData
	SuggestedMeasures []string

	Base     string
	Measures []Measure
	Queries  []CannedQuery
	Examples []Example
	Tables   []TableSummary
}

type contextExampleData struct {
	Question string
	Query    string
	Response string
}

type contextQueryData struct {
	Question    string
	Query       string
	Similarity  float64
	TimesReused int
}

// renderContext renders the fixed-order text block for a QueryContext.
func renderContext(ctx QueryContext) (string, error) {
	data := contextTemplateData{
		SuggestedMeasures: ctx.SuggestedMeasures,
		Base:              ctx.Document.Base,
		Measures:          ctx.Document.Measures,
		Queries:           ctx.Document.Queries,
		Examples:          ctx.Document.Examples,
		Tables:            ctx.Document.Tables,
	}

	for _, example := range ctx.TrainingExamples {
		data.TrainingExamples = append(data.TrainingExamples, contextExampleData{
			Question: example.QuestionText,
			Query:    example.QueryText,
			Response: example.ResponseText,
		})
	}
	for _, query := range ctx.SimilarQueries {
		data.SimilarQueries = append(data.SimilarQueries, contextQueryData{
			Question:    query.QuestionText,
			Query:       query.QueryText,
			Similarity:  query.Similarity,
			TimesReused: query.TimesReused,
		})
	}

	return promptTemplate("query-context", queryContextTemplate, data)
}
