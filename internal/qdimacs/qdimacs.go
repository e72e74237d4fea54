// Package qdimacs parses the QDIMACS-with-quantifiers text format: a p cnf
// header, one or more quantifier-block lines (a ... 0 / e ... 0) in prefix
// order, then the clause body. It streams variables and clauses directly
// into a qcnf.QCNF, transparently decompressing .qdimacs.gz the way the
// teacher's dimacs.LoadDIMACS handles .cnf.gz, and reuses
// github.com/rhartert/dimacs to tokenize the clause body once the
// quantifier prefix has been consumed.
package qdimacs

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rhartert/dimacs"

	"github.com/rhartert/detqbf/internal/qcnf"
)

func open(filename string) (io.ReadCloser, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	rc := io.ReadCloser(file)
	if strings.HasSuffix(filename, ".gz") {
		gz, err := gzip.NewReader(rc)
		if err != nil {
			file.Close()
			return nil, err
		}
		rc = gz
	}
	return rc, nil
}

// builder adapts a qcnf.QCNF whose variables are already declared (from the
// quantifier prefix) to dimacs.Builder for the remaining clause body.
type builder struct {
	q       *qcnf.QCNF
	nextVar int
}

func (b *builder) AddVariable() int {
	b.nextVar++
	return b.nextVar
}

func (b *builder) AddClause(lits []int) error {
	ls := make([]qcnf.Literal, len(lits))
	for i, l := range lits {
		ls[i] = qcnf.Literal(l)
	}
	b.q.AddClause(ls, true)
	return nil
}

// Load reads filename (transparently gzip if it ends in .gz) as an extended
// QDIMACS stream and returns the QCNF it encodes.
func Load(filename string) (*qcnf.QCNF, error) {
	rc, err := open(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading file %q: %s", filename, err)
	}
	defer rc.Close()
	return load(rc)
}

func load(r io.Reader) (*qcnf.QCNF, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	nVars, nClauses, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	info, scope, err := readPrefix(br, nVars)
	if err != nil {
		return nil, err
	}

	q := qcnf.New()
	for id := 1; id <= nVars; id++ {
		vi, ok := info[id]
		if !ok {
			// Not listed in any quantifier block: a plain propositional
			// CNF with no prefix at all, or an id the prefix omitted.
			// Either way it behaves as an existential in the outermost
			// free scope.
			vi = varInfo{scope: scope}
		}
		q.AddVariable(vi.universal, vi.scope)
	}

	header := fmt.Sprintf("p cnf %d %d\n", nVars, nClauses)
	body := io.MultiReader(strings.NewReader(header), br)

	b := &builder{q: q, nextVar: nVars}
	if err := dimacs.ReadBuilder(body, b); err != nil {
		return nil, fmt.Errorf("error reading clauses: %w", err)
	}
	if q.NumClauses() != nClauses {
		return nil, fmt.Errorf("header declared %d clauses, found %d", nClauses, q.NumClauses())
	}

	return q, nil
}

func readHeader(br *bufio.Reader) (nVars, nClauses int, err error) {
	for {
		line, err := readLine(br)
		if err != nil {
			return 0, 0, fmt.Errorf("header line not found: %w", err)
		}
		if line == "" || line[0] == 'c' {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 4 || parts[0] != "p" || parts[1] != "cnf" {
			return 0, 0, fmt.Errorf("malformed header line %q", line)
		}
		nVars, err = strconv.Atoi(parts[2])
		if err != nil {
			return 0, 0, fmt.Errorf("could not parse variable count: %w", err)
		}
		nClauses, err = strconv.Atoi(parts[3])
		if err != nil {
			return 0, 0, fmt.Errorf("could not parse clause count: %w", err)
		}
		return nVars, nClauses, nil
	}
}

// varInfo is one variable's quantifier-block info, keyed by its declared
// QDIMACS id rather than the order it was listed in.
type varInfo struct {
	universal bool
	scope     int
}

// readPrefix consumes consecutive a/e quantifier-block lines and returns a
// map from each listed variable id to its quantifier-block info, leaving br
// positioned at the first clause line (or EOF). Declaring by id rather than
// by listing order matters because a quantifier block need not list ids in
// increasing numeric order (e.g. "a 2 4 0" followed by "e 1 3 0"); the
// caller declares qcnf variables 1..nVars in id order, consulting this map,
// so a clause literal's id always lines up with the right quantifier. It
// peeks one line at a time: a non-quantifier, non-comment line is left
// unconsumed, which bufio.Reader supports as long as nothing else has been
// read since the Peek.
func readPrefix(br *bufio.Reader, nVars int) (info map[int]varInfo, scope int, err error) {
	info = make(map[int]varInfo)
	for len(info) < nVars {
		peek, err := br.Peek(1)
		if err != nil {
			if err == io.EOF {
				return info, scope, nil
			}
			return info, scope, err
		}
		if peek[0] == 'c' || peek[0] == '\n' || peek[0] == '\r' {
			if _, err := readLine(br); err != nil {
				return info, scope, err
			}
			continue
		}
		if peek[0] != 'a' && peek[0] != 'e' {
			return info, scope, nil
		}

		line, err := readLine(br)
		if err != nil {
			return info, scope, err
		}
		universal := line[0] == 'a'
		ids, err := parseIDs(line[1:])
		if err != nil {
			return info, scope, fmt.Errorf("error parsing quantifier block %q: %w", line, err)
		}
		for _, id := range ids {
			info[id] = varInfo{universal: universal, scope: scope}
		}
		scope++
	}
	return info, scope, nil
}

func parseIDs(rest string) ([]int, error) {
	fields := strings.Fields(rest)
	if len(fields) == 0 || fields[len(fields)-1] != "0" {
		return nil, fmt.Errorf("quantifier block must be terminated by 0")
	}
	ids := make([]int, 0, len(fields)-1)
	for _, f := range fields[:len(fields)-1] {
		id, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// readLine reads one line, tolerating a final line with no trailing newline
// but reporting io.EOF once nothing at all is left to read.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err == io.EOF {
		if line == "" {
			return "", io.EOF
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
