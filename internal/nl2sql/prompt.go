package nl2sql

import "fmt"

type Prompt struct {
	System string
	User   string
}

const systemInstruction = `You are a compiler that translates natural language questions into SQL and reports every compilation stage.
Analyze the question against the supplied database schema and answer with one JSON object that matches the declared response schema.

Fields:
1. lexicalAnalysis: object with a "tokens" array listing the keywords, entities, operators and literal values found in the question.
2. syntaxAnalysis: object with a "tree" string describing the grammatical structure of the request as a readable abstract syntax tree.
3. semanticAnalysis: object with an "analysis" string that checks the referenced entities and relationships against the schema and notes any ambiguity or assumption.
4. generatedSql: a correct, standard SQL query that directly answers the question.
5. optimizedSql: the generated query rewritten for clarity and performance, with explicit JOIN syntax, table aliases and readable formatting.
6. explanation: a step-by-step plain-language description of what the optimized query does.

Rule: the SQL must be syntactically valid and may reference only tables and columns exactly as they are defined in the supplied schema. Never invent tables or columns.`

func SystemInstruction() string {
	return systemInstruction
}

// BuildPrompt places the schema and query verbatim inside labelled blocks.
// It performs no validation; callers reject empty input first.
func BuildPrompt(query, schema string) Prompt {
	return Prompt{
		System: systemInstruction,
		User: fmt.Sprintf(
			"DATABASE SCHEMA:\n```sql\n%s\n```\n\nNATURAL LANGUAGE QUERY:\n\"%s\"\n",
			schema,
			query,
		),
	}
}
