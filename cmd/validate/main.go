// Command validate checks a cities CSV before it is placed next to the
// importer as the local fallback. It parses the file with the importer's own
// parser and reports the header, row counts, empty CITY cells, and document
// key collisions (distinct names that map to the same doc_id).
//
// Usage:
//
//	go run ./cmd/validate -csv california-incorporated-cities.csv
//	go run ./cmd/validate -builtin
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/couchcryptid/ca-cities-import/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// report is everything learned about one table.
type report struct {
	header     []string
	rows       int
	unique     int
	emptyCells int
	phases     []*phase
}

func (r report) passed() bool {
	for _, p := range r.phases {
		if !p.passed() {
			return false
		}
	}
	return true
}

func main() {
	csvPath := flag.String("csv", "", "path to a cities CSV with a CITY column")
	builtin := flag.Bool("builtin", false, "validate the builtin fallback list instead of a file")
	flag.Parse()

	if (*csvPath == "") == !*builtin {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(os.Stdout, *csvPath, *builtin))
}

func run(out io.Writer, csvPath string, builtin bool) int {
	fmt.Fprintln(out, "=== City CSV Validation ===")
	fmt.Fprintln(out)

	var table domain.Table
	if builtin {
		table = domain.TableFromCities(domain.BuiltinCities())
		fmt.Fprintln(out, "Source: builtin list")
	} else {
		f, err := os.Open(csvPath)
		if err != nil {
			fmt.Fprintf(out, "FATAL: open %s: %v\n", csvPath, err)
			return 1
		}
		defer f.Close()

		table, err = domain.ParseCSV(f)
		if err != nil {
			fmt.Fprintf(out, "FATAL: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "Source: %s\n", csvPath)
	}

	rep := validate(table)
	printReport(out, rep)
	if rep.passed() {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

func validate(table domain.Table) report {
	rep := report{header: table.Header, rows: len(table.Rows)}

	column := &phase{name: "CITY column present"}
	collisions := &phase{name: "Document keys unique"}
	rep.phases = []*phase{column, collisions}

	values, err := table.Column(domain.CityColumn)
	if err != nil {
		column.errorf("%v", err)
		return rep
	}
	for _, v := range values {
		if v == "" {
			rep.emptyCells++
		}
	}

	cities, err := domain.UniqueCities(table)
	if err != nil {
		column.errorf("%v", err)
		return rep
	}
	rep.unique = len(cities)

	for _, c := range findCollisions(cities) {
		collisions.errorf("%s", c)
	}
	return rep
}

// findCollisions lists every doc_id shared by more than one distinct name,
// formatted as `key <- "A", "B"` and sorted by key.
func findCollisions(cities []string) []string {
	byKey := make(map[string][]string)
	for _, c := range cities {
		id := domain.DocID(c)
		byKey[id] = append(byKey[id], c)
	}

	var out []string
	for id, names := range byKey {
		if len(names) < 2 {
			continue
		}
		quoted := make([]string, len(names))
		for i, n := range names {
			quoted[i] = fmt.Sprintf("%q", n)
		}
		out = append(out, fmt.Sprintf("%s <- %s", id, strings.Join(quoted, ", ")))
	}
	sort.Strings(out)
	return out
}

func printReport(out io.Writer, rep report) {
	fmt.Fprintf(out, "Columns: [%s]\n", strings.Join(rep.header, ", "))
	fmt.Fprintf(out, "Rows: %d data rows, %d unique cities, %d empty CITY cells\n", rep.rows, rep.unique, rep.emptyCells)
	fmt.Fprintln(out)

	for _, p := range rep.phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
		}
		fmt.Fprintf(out, "  %-30s %s\n", p.name, status)
	}

	for _, p := range rep.phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}
}
