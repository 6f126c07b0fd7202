package nl2sql

import "context"

type Service interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
	Info() ServiceInfo
}

type ServiceInfo struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type stageField struct {
	Name        string
	Nested      string
	Array       bool
	Description string
}

var stageFields = []stageField{
	{
		Name:        fieldLexicalAnalysis,
		Nested:      "tokens",
		Array:       true,
		Description: "Keywords, identifiers, operators and values identified in the query.",
	},
	{
		Name:        fieldSyntaxAnalysis,
		Nested:      "tree",
		Description: "A readable description of the parsed query structure, like an abstract syntax tree.",
	},
	{
		Name:        fieldSemanticAnalysis,
		Nested:      "analysis",
		Description: "Semantic check of the query against the schema, including table and column validity.",
	},
	{
		Name:        fieldGeneratedSQL,
		Description: "The initial SQL query generated from the analysis.",
	},
	{
		Name:        fieldOptimizedSQL,
		Description: "An optimized version of the SQL query for readability and performance.",
	},
	{
		Name:        fieldExplanation,
		Description: "A step-by-step natural language explanation of the optimized SQL query.",
	},
}

func requiredFields() []string {
	names := make([]string, 0, len(stageFields))
	for _, field := range stageFields {
		names = append(names, field.Name)
	}
	return names
}

func ResponseJSONSchema() map[string]any {
	properties := map[string]any{}
	for _, field := range stageFields {
		leaf := map[string]any{"type": "string", "description": field.Description}
		if field.Array {
			leaf = map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": field.Description,
			}
		}
		if field.Nested == "" {
			properties[field.Name] = leaf
			continue
		}
		properties[field.Name] = map[string]any{
			"type":                 "object",
			"properties":           map[string]any{field.Nested: leaf},
			"required":             []string{field.Nested},
			"additionalProperties": false,
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             requiredFields(),
		"additionalProperties": false,
	}
}
