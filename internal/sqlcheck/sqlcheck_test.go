package sqlcheck

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const hrSchema = `
-- Table: employees
CREATE TABLE employees (
  employee_id INT PRIMARY KEY,
  first_name VARCHAR(50),
  hire_date DATE,
  department_id INT REFERENCES departments(department_id)
);

-- Table: departments
CREATE TABLE departments (
  department_id INT PRIMARY KEY,
  department_name VARCHAR(50) NOT NULL
);
`

func TestCheckPlansValidSQL(t *testing.T) {
	checker := NewChecker(5*time.Second, nil)
	report := checker.Check(context.Background(), hrSchema,
		Target{Label: "generatedSql", SQL: "SELECT * FROM employees WHERE hire_date > '2022-01-01';"},
		Target{Label: "optimizedSql", SQL: "SELECT e.first_name, d.department_name FROM employees e JOIN departments d USING (department_id);"},
	)
	if !report.Checked {
		t.Fatalf("Checked = false, error = %q", report.Error)
	}
	if len(report.SkippedDDL) != 0 {
		t.Fatalf("SkippedDDL = %#v", report.SkippedDDL)
	}
	if len(report.Statements) != 2 {
		t.Fatalf("Statements = %#v", report.Statements)
	}
	for _, statement := range report.Statements {
		if !statement.OK {
			t.Fatalf("%s failed: %s", statement.Label, statement.Error)
		}
	}
	if !report.OK() {
		t.Fatal("OK() = false")
	}
}

func TestCheckReportsUnknownColumn(t *testing.T) {
	checker := NewChecker(5*time.Second, nil)
	report := checker.Check(context.Background(), hrSchema,
		Target{Label: "generatedSql", SQL: "SELECT salary FROM employees"},
	)
	if !report.Checked {
		t.Fatalf("Checked = false, error = %q", report.Error)
	}
	if report.Statements[0].OK || report.Statements[0].Error == "" {
		t.Fatalf("statement = %#v, want failure", report.Statements[0])
	}
	if report.OK() {
		t.Fatal("OK() = true")
	}
}

func TestCheckCollectsSkippedDDL(t *testing.T) {
	checker := NewChecker(5*time.Second, nil)
	report := checker.Check(context.Background(), "CREATE TABLE t (id INT); CREATE TABLE broken (id NOT_A_TYPE);",
		Target{Label: "generatedSql", SQL: "SELECT id FROM t"},
	)
	if len(report.SkippedDDL) != 1 || !strings.Contains(report.SkippedDDL[0], "broken") {
		t.Fatalf("SkippedDDL = %#v", report.SkippedDDL)
	}
	if !report.Statements[0].OK {
		t.Fatalf("statement failed: %s", report.Statements[0].Error)
	}
}

func TestCheckKeepsSchemaTextOffTheFilesystem(t *testing.T) {
	dir := t.TempDir()
	written := filepath.Join(dir, "written_by_schema.csv")
	schema := "CREATE TABLE employees (id INT);\n" +
		"SET enable_external_access = true;\n" +
		"COPY (SELECT 'owned' AS x) TO '" + written + "';\n" +
		"ATTACH '" + filepath.Join(dir, "attached.duckdb") + "' AS side;\n"

	report := NewChecker(5*time.Second, nil).Check(context.Background(), schema,
		Target{Label: "generatedSql", SQL: "SELECT id FROM employees;"},
	)
	if !report.Checked || !report.OK() {
		t.Fatalf("report = %#v", report)
	}
	if len(report.SkippedDDL) != 3 {
		t.Fatalf("SkippedDDL = %#v, want the SET, COPY and ATTACH statements", report.SkippedDDL)
	}
	for _, name := range []string{"written_by_schema.csv", "attached.duckdb"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("%s exists after check (stat err = %v)", name, err)
		}
	}
}

func TestCheckRefusesFileReadsInGeneratedSQL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.csv")
	if err := os.WriteFile(path, []byte("a\n1\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	report := NewChecker(5*time.Second, nil).Check(context.Background(), hrSchema,
		Target{Label: "generatedSql", SQL: "SELECT * FROM read_csv('" + path + "');"},
	)
	if !report.Checked {
		t.Fatalf("report = %#v", report)
	}
	if report.OK() || report.Statements[0].Error == "" {
		t.Fatalf("Statements = %#v, want a planning error", report.Statements)
	}
}

func TestCheckEmptyTarget(t *testing.T) {
	report := NewChecker(0, nil).Check(context.Background(), "", Target{Label: "generatedSql", SQL: " ; "})
	if report.Statements[0].OK {
		t.Fatal("expected empty SQL to fail")
	}
}

func TestSplitStatements(t *testing.T) {
	text := `-- leading comment
CREATE TABLE a (note VARCHAR DEFAULT 'x;y');
/* block; comment */
INSERT INTO a VALUES ('it''s; fine');
-- only a comment;
SELECT "odd;name" FROM a`
	got := SplitStatements(text)
	want := []string{
		"-- leading comment\nCREATE TABLE a (note VARCHAR DEFAULT 'x;y')",
		"/* block; comment */\nINSERT INTO a VALUES ('it''s; fine')",
		"-- only a comment;\nSELECT \"odd;name\" FROM a",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitStatements() = %#v, want %#v", got, want)
	}
}

func TestSplitStatementsDropsEmpty(t *testing.T) {
	if got := SplitStatements(" ;; -- nothing\n"); len(got) != 0 {
		t.Fatalf("SplitStatements() = %#v", got)
	}
}
