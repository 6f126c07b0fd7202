package nl2sql

// CompilationResult is the six-stage answer for one natural-language query.
// Only GeneratedSQL and OptimizedSQL are guaranteed to have been present in
// the service reply; the other stages are free-form and may be empty.
type CompilationResult struct {
	LexicalTokens    []string `json:"lexicalTokens"`
	SyntaxTree       string   `json:"syntaxTree"`
	SemanticAnalysis string   `json:"semanticAnalysis"`
	GeneratedSQL     string   `json:"generatedSql"`
	OptimizedSQL     string   `json:"optimizedSql"`
	Explanation      string   `json:"explanation"`
}

const (
	fieldLexicalAnalysis  = "lexicalAnalysis"
	fieldSyntaxAnalysis   = "syntaxAnalysis"
	fieldSemanticAnalysis = "semanticAnalysis"
	fieldGeneratedSQL     = "generatedSql"
	fieldOptimizedSQL     = "optimizedSql"
	fieldExplanation      = "explanation"
)
