package aiger

import (
	"strings"
	"testing"

	"github.com/rhartert/detqbf/internal/adapter"
	"github.com/rhartert/detqbf/internal/qcnf"
	"github.com/rhartert/detqbf/internal/skolem"
)

func TestWriteCertificate(t *testing.T) {
	q := qcnf.New()
	u := q.AddVariable(true, 0)
	e := q.AddVariable(false, 1)
	q.AddClause([]qcnf.Literal{qcnf.Literal(-u), qcnf.Literal(e)}, true)

	d := skolem.New(q, adapter.New())
	d.MakeUniversalAssumption(qcnf.Literal(u))
	if !d.Propagate() {
		t.Fatalf("unexpected conflict")
	}

	var sb strings.Builder
	if err := WriteCertificate(&sb, q, d); err != nil {
		t.Fatalf("WriteCertificate() error = %v", err)
	}

	out := sb.String()
	if !strings.Contains(out, "e2 1 -1") {
		t.Fatalf("output = %q, want a line forcing e2 true on clause %v", out, q.Clause(0).Literals)
	}
	if strings.Contains(out, "e1 ") {
		t.Fatalf("output = %q, should not certify the universal variable", out)
	}
}

func TestWriteCertificate_decisionHasNoSupport(t *testing.T) {
	q := qcnf.New()
	e := q.AddVariable(false, 0)

	d := skolem.New(q, adapter.New())
	d.Push()
	d.Decision(qcnf.Literal(e))

	var sb strings.Builder
	if err := WriteCertificate(&sb, q, d); err != nil {
		t.Fatalf("WriteCertificate() error = %v", err)
	}
	if !strings.Contains(sb.String(), "e1 1 decision") {
		t.Fatalf("output = %q, want a decision-only line for e1", sb.String())
	}
}
