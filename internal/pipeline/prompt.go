package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/datachat/datachat/internal/store"
)

// FormatSchema serializes a schema snapshot as one block per table. The
// output is deterministic for a given snapshot; it becomes instruction text
// inside the SQL prompt.
func FormatSchema(tables []store.Table) string {
	var b strings.Builder
	for _, table := range tables {
		fmt.Fprintf(&b, "Table: %s\n", table.Name)
		for _, column := range table.Columns {
			fmt.Fprintf(&b, "  - %s (%s)\n", column.Name, column.Type)
		}
	}
	return b.String()
}

// BuildSQLPrompt renders the instruction template asking for a single SQL
// statement. The embedded guidelines steer generation quality and must stay
// aligned with how uploaded data is stored: percentages as raw numbers,
// monetary values needing fixed precision, LEFT JOINs from the primary
// entity so zero-value rows survive aggregation.
func BuildSQLPrompt(tables []store.Table, question string) string {
	var b strings.Builder
	b.WriteString("Given these database tables and their structure:\n")
	b.WriteString(FormatSchema(tables))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Write a SQL query to answer this question: %q\n\n", question)
	b.WriteString(`Guidelines:
1. Percentage fields (like discounts) are stored as raw numbers, so 10 means 10%. Always divide percentage values by 100 in arithmetic, e.g. use (1 - discount/100) for discount calculations.
2. Use ROUND() on monetary calculations for consistent decimal places.
3. Start FROM the table containing the main entity and ALWAYS use LEFT JOIN (not regular JOIN) outward to related tables so every record is preserved. Use COALESCE for NULL aggregates, e.g. COALESCE(SUM(...), 0), so zero and empty values still appear.
4. Choose appropriate aggregate functions (SUM, AVG, COUNT), group by the main entity identifiers, order results meaningfully, and name columns descriptively (e.g. number_of_orders instead of count).

Return only the SQL query. No explanations, no markdown fencing.`)
	return b.String()
}

// BuildExplanationPrompt renders the template asking for a natural-language
// explanation of the executed query's results.
func BuildExplanationPrompt(question, sqlQuery string, rows []store.Row, currencySymbol string) string {
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		rowsJSON = []byte("[]")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on the original question: %q\n\n", question)
	fmt.Fprintf(&b, "And the SQL query used to retrieve the data: %s\n\n", sqlQuery)
	fmt.Fprintf(&b, "And the result data retrieved: %s\n\n", rowsJSON)
	fmt.Fprintf(&b, `Provide a clear analysis that directly answers the question with the key insights and findings.
Use markdown formatting for readability: bullet points for lists, tables for structured data, bold and italics for emphasis.
Format currency with %s and two decimal places, percentages with two decimal places, and large numbers with comma separators.
Keep the focus on answering the user's question clearly and concisely. Only mention SQL or technical details if a specific issue affects the results.`, currencySymbol)
	return b.String()
}
