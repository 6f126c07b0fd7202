package nl2sql

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	leadingFence  = regexp.MustCompile("^```(?i:json)?\\s*")
	trailingFence = regexp.MustCompile("\\s*```$")
)

func StripFence(raw string) string {
	text := strings.TrimSpace(raw)
	text = leadingFence.ReplaceAllString(text, "")
	text = trailingFence.ReplaceAllString(text, "")
	return text
}

// ParseResponse validates raw service text. Only generatedSql and optimizedSql
// are checked strictly; the other stages are read best-effort and left empty
// when missing or of an unexpected type.
func ParseResponse(raw string) (CompilationResult, error) {
	var decoded any
	if err := json.Unmarshal([]byte(StripFence(raw)), &decoded); err != nil {
		return CompilationResult{}, newError(KindResponseFormat, "decode service reply: %w", err)
	}

	object, ok := decoded.(map[string]any)
	if !ok {
		return CompilationResult{}, newError(KindResponseShape, "service reply is %T, want a JSON object", decoded)
	}
	generated, ok := object[fieldGeneratedSQL].(string)
	if !ok {
		return CompilationResult{}, newError(KindResponseShape, "service reply field %q is missing or not a string", fieldGeneratedSQL)
	}
	optimized, ok := object[fieldOptimizedSQL].(string)
	if !ok {
		return CompilationResult{}, newError(KindResponseShape, "service reply field %q is missing or not a string", fieldOptimizedSQL)
	}

	return CompilationResult{
		LexicalTokens:    stringsAt(object, fieldLexicalAnalysis, "tokens"),
		SyntaxTree:       stringAt(object, fieldSyntaxAnalysis, "tree"),
		SemanticAnalysis: stringAt(object, fieldSemanticAnalysis, "analysis"),
		GeneratedSQL:     generated,
		OptimizedSQL:     optimized,
		Explanation:      stringAt(object, fieldExplanation),
	}, nil
}

func valueAt(object map[string]any, path ...string) any {
	var current any = object
	for _, key := range path {
		asMap, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = asMap[key]
	}
	return current
}

func stringAt(object map[string]any, path ...string) string {
	value, _ := valueAt(object, path...).(string)
	return value
}

func stringsAt(object map[string]any, path ...string) []string {
	items, _ := valueAt(object, path...).([]any)
	tokens := make([]string, 0, len(items))
	for _, item := range items {
		if token, ok := item.(string); ok {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
