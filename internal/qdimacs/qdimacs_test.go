package qdimacs

import (
	"os"
	"testing"

	"github.com/rhartert/detqbf/internal/qcnf"
)

type variable struct {
	Universal bool
	Scope     int
}

func summarize(q *qcnf.QCNF) (vars []variable, clauses [][]qcnf.Literal) {
	for v := 1; v <= q.NumVariables(); v++ {
		vv := q.Variable(v)
		vars = append(vars, variable{Universal: vv.Universal, Scope: vv.Scope})
	}
	for _, c := range q.Clauses() {
		clauses = append(clauses, c.Literals)
	}
	return vars, clauses
}

func TestLoad_quantifierPrefix(t *testing.T) {
	q, err := Load("testdata/sample.qdimacs")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	vars, clauses := summarize(q)
	wantVars := []variable{
		{Universal: true, Scope: 0},
		{Universal: false, Scope: 1},
	}
	if len(vars) != len(wantVars) || vars[0] != wantVars[0] || vars[1] != wantVars[1] {
		t.Fatalf("vars = %+v, want %+v", vars, wantVars)
	}
	if len(clauses) != 2 {
		t.Fatalf("len(clauses) = %d, want 2", len(clauses))
	}
	if len(clauses[0]) != 2 || clauses[0][0] != -1 || clauses[0][1] != 2 {
		t.Fatalf("clauses[0] = %v, want [-1 2]", clauses[0])
	}
	if len(clauses[1]) != 2 || clauses[1][0] != 1 || clauses[1][1] != -2 {
		t.Fatalf("clauses[1] = %v, want [1 -2]", clauses[1])
	}
}

func TestLoad_gzip(t *testing.T) {
	q, err := Load("testdata/sample.qdimacs.gz")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if q.NumVariables() != 2 || q.NumClauses() != 2 {
		t.Fatalf("Load() = %d vars, %d clauses, want 2, 2", q.NumVariables(), q.NumClauses())
	}
}

func TestLoad_noQuantifierPrefix(t *testing.T) {
	q, err := Load("testdata/propositional.qdimacs")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for v := 1; v <= q.NumVariables(); v++ {
		if q.Variable(v).Universal {
			t.Fatalf("variable %d is universal, want existential (no prefix given)", v)
		}
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load("testdata/does-not-exist.qdimacs"); err == nil {
		t.Fatalf("Load() error = nil, want an error")
	}
}

func TestLoad_clauseCountMismatch(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bad.qdimacs"
	content := "p cnf 2 3\na 1 0\ne 2 0\n-1 2 0\n1 -2 0\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("Load() error = nil, want a clause-count mismatch error")
	}
}
