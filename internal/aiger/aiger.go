// Package aiger emits a completed Skolem function as a trivial AIGER-like
// textual certificate: one line per existential variable naming the value it
// settled on and the literals of the clause that forced it, in place of a
// full Tseitin-encoded AIGER circuit. Producing real binary/ASCII AIGER (the
// "aag"/"aig" certificate modes the original solver supports) is out of this
// core's scope; this is a faithful but deliberately simplified stand-in that
// still lets a downstream tool reconstruct the witness.
package aiger

import (
	"bufio"
	"fmt"
	"io"

	"github.com/rhartert/detqbf/internal/qcnf"
	"github.com/rhartert/detqbf/internal/skolem"
)

// WriteCertificate writes one line per existential variable of q, in
// ascending id order, to w. Each line has the form:
//
//	e<id> <value> <supporting literals...>
//
// where <value> is 0 or 1, and the supporting literals are the other
// literals of the clause that forced the variable, omitted ("decision") when
// the variable was assigned directly rather than propagated.
func WriteCertificate(w io.Writer, q *qcnf.QCNF, sk *skolem.Domain) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "c detqbf simplified Skolem certificate\n")
	fmt.Fprintf(bw, "c e<var> <value> <supporting literals>\n")

	for v := 1; v <= q.NumVariables(); v++ {
		if q.Variable(v).Universal {
			continue
		}

		value := sk.Value(v)
		bit := 0
		if value == qcnf.ValueTrue {
			bit = 1
		}

		fmt.Fprintf(bw, "e%d %d", v, bit)

		r := sk.Reason(v)
		if r < 0 {
			fmt.Fprintf(bw, " decision\n")
			continue
		}
		for _, lit := range q.Clause(r).Literals {
			if lit.Var() == v {
				continue
			}
			fmt.Fprintf(bw, " %d", int(lit))
		}
		fmt.Fprintf(bw, "\n")
	}

	return bw.Flush()
}
