// Package explorer turns natural language questions into SQL queries, runs
// them against the wellness store, and asks an LLM to summarize and suggest a
// visualization for the results.
package explorer

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ortalis97/garmin-ai-explorer/internal/llm"
)

const previewRows = 50

// Querier runs a read-only SQL query and returns column names plus rows
// rendered as strings.
type Querier interface {
	Query(ctx context.Context, sql string) (columns []string, rows [][]string, err error)
}

// Result carries everything one question produced.
type Result struct {
	Question string
	SQL      string
	Columns  []string
	Rows     [][]string
	Summary  string
	Chart    ChartSpec
}

// Option configures optional behaviour for the Explorer.
type Option func(*Explorer)

// WithLogger overrides the logger used for pipeline progress.
func WithLogger(logger *log.Logger) Option {
	return func(e *Explorer) {
		e.logger = logger
	}
}

// Explorer is the question-to-insight pipeline.
type Explorer struct {
	llm     llm.Client
	querier Querier
	logger  *log.Logger
}

func New(client llm.Client, querier Querier, opts ...Option) *Explorer {
	e := &Explorer{
		llm:     client,
		querier: querier,
		logger:  log.New(log.Writer(), "[explorer] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ask runs the full pipeline: generate SQL, execute it, summarize the rows,
// and suggest a chart. Chart suggestion failures degrade to a table spec
// rather than failing the question.
func (e *Explorer) Ask(ctx context.Context, question string) (*Result, error) {
	sql, err := e.QuestionToSQL(ctx, question)
	if err != nil {
		return nil, err
	}
	e.logger.Printf("generated SQL: %s", strings.Join(strings.Fields(sql), " "))

	columns, rows, err := e.querier.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w\n\nquery:\n%s", err, sql)
	}
	e.logger.Printf("retrieved %d rows", len(rows))

	summary, err := e.Summarize(ctx, question, columns, rows)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Question: question,
		SQL:      sql,
		Columns:  columns,
		Rows:     rows,
		Summary:  summary,
	}

	chart, err := e.SuggestChart(ctx, question, columns, rows)
	if err != nil {
		e.logger.Printf("chart suggestion failed, falling back to table: %v", err)
		chart = ChartSpec{ChartType: "table", Title: "Query results"}
	}
	res.Chart = chart
	return res, nil
}

// QuestionToSQL asks the LLM for a single read-only PostgreSQL query
// answering the question.
func (e *Explorer) QuestionToSQL(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf(`You are an expert SQL assistant. Your job is to write a PostgreSQL query that answers the user's question.

%s

User question: %q

Instructions:
- Write a single SELECT query that answers the question
- Use proper PostgreSQL syntax
- Return ONLY the SQL query, no explanation, no markdown, no code blocks
- Do not include semicolons at the end
- Use appropriate JOINs if multiple tables are needed
- Add LIMIT clauses for large result sets when appropriate

SQL Query:`, schemaDescription, question)

	raw, err := e.llm.Generate(ctx, prompt, 0)
	if err != nil {
		return "", fmt.Errorf("generate SQL: %w", err)
	}

	sql := cleanSQL(raw)
	if err := validateReadOnly(sql); err != nil {
		return "", err
	}
	return sql, nil
}

// Summarize asks the LLM for insights over the query results.
func (e *Explorer) Summarize(ctx context.Context, question string, columns []string, rows [][]string) (string, error) {
	prompt := fmt.Sprintf(`You are a fitness data analyst. Answer the user's question based on the query results.

User's question: %q

Query results:
%s

Instructions:
- Start with the direct answer (1-2 sentences)
- Then provide 2-3 key insights or patterns you notice
- Be specific with numbers and dates from the results
- Use **bold** for important metrics, numbers, and key terms
- Be concise and encouraging
- Do NOT use section titles like "Answer:" or "Insights:"
- Do NOT provide actionable recommendations`, question, renderTable(columns, rows))

	summary, err := e.llm.Generate(ctx, prompt, 0.3)
	if err != nil {
		return "", fmt.Errorf("summarize results: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

// SuggestChart asks the LLM to pick a visualization for the result set.
func (e *Explorer) SuggestChart(ctx context.Context, question string, columns []string, rows [][]string) (ChartSpec, error) {
	if len(rows) == 0 {
		return ChartSpec{ChartType: "table", Title: "No data to visualize"}, nil
	}

	sample := rows
	if len(sample) > 3 {
		sample = sample[:3]
	}
	prompt := fmt.Sprintf(`Based on the user's question and the query results, suggest an appropriate data visualization.

User's question: %q

Data shape: %d rows, %d columns
Columns: %s

Sample data (first rows):
%s

Choose the most appropriate visualization and return ONLY a JSON object with this structure:
{
  "chart_type": "line|bar|scatter|pie|table",
  "x_axis": "column_name",
  "y_axis": "column_name_or_list",
  "title": "Descriptive chart title",
  "color_by": "optional_column_name"
}

Guidelines:
- Use "line" for time series or trends over dates
- Use "bar" for comparisons between categories or counts
- Use "scatter" for showing correlations between two numeric variables
- Use "pie" for showing proportions or percentages (max 8 categories)
- Use "table" only if data is not suitable for visualization
- For x_axis and y_axis, use exact column names from the data
- Make the title descriptive and specific to the data

Return ONLY the JSON, no explanation.`,
		question, len(rows), len(columns), strings.Join(columns, ", "), renderTable(columns, sample))

	raw, err := e.llm.Generate(ctx, prompt, 0)
	if err != nil {
		return ChartSpec{}, fmt.Errorf("suggest chart: %w", err)
	}
	return parseChartSpec(raw)
}

// renderTable formats rows as a markdown table capped at previewRows, the
// shape the summarization prompt expects.
func renderTable(columns []string, rows [][]string) string {
	if len(rows) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", len(columns)) + "\n")

	shown := rows
	if len(shown) > previewRows {
		shown = shown[:previewRows]
	}
	for _, row := range shown {
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	if len(rows) > previewRows {
		sb.WriteString(fmt.Sprintf("\n... (%d total rows)", len(rows)))
	}
	return sb.String()
}
