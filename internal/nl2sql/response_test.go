package nl2sql

import (
	"reflect"
	"testing"
)

const employeesReply = `{"lexicalAnalysis":{"tokens":["employees","hire_date"]},"syntaxAnalysis":{"tree":"SELECT ... WHERE hire_date > ..."},"semanticAnalysis":{"analysis":"valid"},"generatedSql":"SELECT * FROM employees WHERE hire_date > '2022-01-01';","optimizedSql":"SELECT * FROM employees WHERE hire_date > '2022-01-01';","explanation":"Filters employees by hire date."}`

func TestParseResponseWellFormed(t *testing.T) {
	result, err := ParseResponse(employeesReply)
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	want := CompilationResult{
		LexicalTokens:    []string{"employees", "hire_date"},
		SyntaxTree:       "SELECT ... WHERE hire_date > ...",
		SemanticAnalysis: "valid",
		GeneratedSQL:     "SELECT * FROM employees WHERE hire_date > '2022-01-01';",
		OptimizedSQL:     "SELECT * FROM employees WHERE hire_date > '2022-01-01';",
		Explanation:      "Filters employees by hire date.",
	}
	if !reflect.DeepEqual(result, want) {
		t.Fatalf("ParseResponse() = %#v\nwant %#v", result, want)
	}
}

func TestParseResponseKeepsSQLByteForByte(t *testing.T) {
	raw := `{"generatedSql":"  SELECT\n\t1 ;  ","optimizedSql":"select 1 -- ünï"}`
	result, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if result.GeneratedSQL != "  SELECT\n\t1 ;  " {
		t.Fatalf("GeneratedSQL = %q", result.GeneratedSQL)
	}
	if result.OptimizedSQL != "select 1 -- ünï" {
		t.Fatalf("OptimizedSQL = %q", result.OptimizedSQL)
	}
}

func TestParseResponseFencedMatchesUnfenced(t *testing.T) {
	plain, err := ParseResponse(employeesReply)
	if err != nil {
		t.Fatalf("ParseResponse(plain) error = %v", err)
	}
	for _, wrapped := range []string{
		"```json" + employeesReply + "```",
		"```json\n" + employeesReply + "\n```",
		"  \n```json   \n\t" + employeesReply + "\n\n ```  \n",
		"```JSON\n" + employeesReply + "\n```",
		"```\n" + employeesReply + "\n```",
	} {
		fenced, err := ParseResponse(wrapped)
		if err != nil {
			t.Fatalf("ParseResponse(%q) error = %v", wrapped, err)
		}
		if !reflect.DeepEqual(fenced, plain) {
			t.Fatalf("fenced result differs:\n%#v\n%#v", fenced, plain)
		}
	}
}

func TestParseResponseMalformedJSON(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"generatedSql": "x",`, "```json\n{]\n```"} {
		result, err := ParseResponse(raw)
		if KindOf(err) != KindResponseFormat {
			t.Fatalf("ParseResponse(%q) kind = %q, err = %v", raw, KindOf(err), err)
		}
		if !reflect.DeepEqual(result, CompilationResult{}) {
			t.Fatalf("ParseResponse(%q) returned partial result %#v", raw, result)
		}
	}
}

func TestParseResponseShapeErrors(t *testing.T) {
	cases := map[string]string{
		"missing optimizedSql": `{"generatedSql":"SELECT 1"}`,
		"missing generatedSql": `{"optimizedSql":"SELECT 1"}`,
		"null optimizedSql":    `{"generatedSql":"SELECT 1","optimizedSql":null}`,
		"numeric generatedSql": `{"generatedSql":1,"optimizedSql":"SELECT 1"}`,
		"array document":       `["SELECT 1"]`,
		"string document":      `"SELECT 1"`,
	}
	for name, raw := range cases {
		result, err := ParseResponse(raw)
		if KindOf(err) != KindResponseShape {
			t.Fatalf("%s: kind = %q, err = %v", name, KindOf(err), err)
		}
		if !reflect.DeepEqual(result, CompilationResult{}) {
			t.Fatalf("%s: partial result %#v", name, result)
		}
	}
}

func TestParseResponseIsLooseOnOptionalStages(t *testing.T) {
	raw := `{"lexicalAnalysis":{"tokens":["a",2,"b",null]},"syntaxAnalysis":"flat","semanticAnalysis":{"analysis":42},"generatedSql":"g","optimizedSql":"o"}`
	result, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if !reflect.DeepEqual(result.LexicalTokens, []string{"a", "b"}) {
		t.Fatalf("LexicalTokens = %#v", result.LexicalTokens)
	}
	if result.SyntaxTree != "" || result.SemanticAnalysis != "" || result.Explanation != "" {
		t.Fatalf("unexpected optional stages: %#v", result)
	}
}

func TestParseResponseEmptyTokensIsEmptySlice(t *testing.T) {
	result, err := ParseResponse(`{"generatedSql":"g","optimizedSql":"o"}`)
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if result.LexicalTokens == nil || len(result.LexicalTokens) != 0 {
		t.Fatalf("LexicalTokens = %#v", result.LexicalTokens)
	}
}

func TestStripFence(t *testing.T) {
	cases := map[string]string{
		"```json\n{}\n```": "{}",
		"{}":               "{}",
		"  {}  ":           "{}",
		"```{}```":         "{}",
	}
	for in, want := range cases {
		if got := StripFence(in); got != want {
			t.Fatalf("StripFence(%q) = %q, want %q", in, got, want)
		}
	}
}
