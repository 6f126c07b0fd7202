package sqlscribectl

import (
	"fmt"
	"io"
	"strings"
)

type compileResponse struct {
	Result struct {
		LexicalTokens    []string `json:"lexicalTokens"`
		SyntaxTree       string   `json:"syntaxTree"`
		SemanticAnalysis string   `json:"semanticAnalysis"`
		GeneratedSQL     string   `json:"generatedSql"`
		OptimizedSQL     string   `json:"optimizedSql"`
		Explanation      string   `json:"explanation"`
	} `json:"result"`
	Verification *struct {
		Checked    bool   `json:"checked"`
		Error      string `json:"error"`
		Statements []struct {
			Label string `json:"label"`
			OK    bool   `json:"ok"`
			Error string `json:"error"`
		} `json:"statements"`
	} `json:"verification"`
}

func writeCompileText(w io.Writer, response compileResponse) error {
	result := response.Result
	sections := []struct {
		title string
		body  string
	}{
		{"Lexical analysis", strings.Join(result.LexicalTokens, " ")},
		{"Syntax analysis", result.SyntaxTree},
		{"Semantic analysis", result.SemanticAnalysis},
		{"Generated SQL", result.GeneratedSQL},
		{"Optimized SQL", result.OptimizedSQL},
		{"Explanation", result.Explanation},
	}

	var b strings.Builder
	for i, section := range sections {
		fmt.Fprintf(&b, "== %d. %s ==\n%s\n\n", i+1, section.title, strings.TrimSpace(section.body))
	}
	if v := response.Verification; v != nil {
		b.WriteString("== Schema check ==\n")
		if !v.Checked {
			fmt.Fprintf(&b, "unavailable: %s\n", v.Error)
		}
		for _, statement := range v.Statements {
			if statement.OK {
				fmt.Fprintf(&b, "%s: ok\n", statement.Label)
			} else {
				fmt.Fprintf(&b, "%s: %s\n", statement.Label, statement.Error)
			}
		}
	}
	_, err := io.WriteString(w, strings.TrimRight(b.String(), "\n")+"\n")
	return err
}
