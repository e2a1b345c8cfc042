package extract

import (
	"sort"
	"strings"
)

// ColumnMap holds the cell index of each logical column, -1 when absent.
type ColumnMap struct {
	CaseNumber int
	Efiling    int
	Parties    int
	Status     int
	Print      int
	Details    int
}

// DefaultColumns is the portal's canonical layout:
// Sl.No | Case No | e-File Details | Pet/Resp | Status | e-File Print | Details
var DefaultColumns = ColumnMap{CaseNumber: 1, Efiling: 2, Parties: 3, Status: 4, Print: 5, Details: 6}

// columnSpec describes how to find one logical column. Specs are resolved in
// order, and a header claimed by an earlier spec is not reused, so the more
// specific columns come first.
type columnSpec struct {
	name     string
	needles  []string
	fallback func(ColumnMap) int
	set      func(*ColumnMap, int)
}

var columnSpecs = []columnSpec{
	{"print", []string{"e-file print", "efile print", "print"},
		func(m ColumnMap) int { return m.Print }, func(m *ColumnMap, i int) { m.Print = i }},
	{"efiling", []string{"e-file details", "efile details", "e-filing", "efiling", "e-file", "efile", "filing"},
		func(m ColumnMap) int { return m.Efiling }, func(m *ColumnMap, i int) { m.Efiling = i }},
	{"details", []string{"details", "view", "action"},
		func(m ColumnMap) int { return m.Details }, func(m *ColumnMap, i int) { m.Details = i }},
	{"case", []string{"case no", "case number", "case details", "case"},
		func(m ColumnMap) int { return m.CaseNumber }, func(m *ColumnMap, i int) { m.CaseNumber = i }},
	{"parties", []string{"pet/resp", "pet / resp", "parties", "party", "petitioner", "cause title", "title"},
		func(m ColumnMap) int { return m.Parties }, func(m *ColumnMap, i int) { m.Parties = i }},
	{"status", []string{"status", "stage"},
		func(m ColumnMap) int { return m.Status }, func(m *ColumnMap, i int) { m.Status = i }},
}

func normalizeHeader(h string) string {
	return strings.ToLower(flatten(h))
}

// ResolveColumns maps header texts onto logical columns. Columns whose
// header cannot be found fall back to the default index when that index
// exists and is unclaimed.
func ResolveColumns(headers []string) ColumnMap {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}

	out := ColumnMap{-1, -1, -1, -1, -1, -1}
	claimed := make(map[int]bool)
	var unresolved []columnSpec

	for _, spec := range columnSpecs {
		idx := findHeader(normalized, spec.needles, claimed)
		if idx < 0 {
			unresolved = append(unresolved, spec)
			continue
		}
		claimed[idx] = true
		spec.set(&out, idx)
	}

	width := len(headers)
	for _, spec := range unresolved {
		idx := spec.fallback(DefaultColumns)
		if claimed[idx] || (width > 0 && idx >= width) {
			continue
		}
		claimed[idx] = true
		spec.set(&out, idx)
	}
	return out
}

func findHeader(headers, needles []string, claimed map[int]bool) int {
	for _, needle := range needles {
		for i, h := range headers {
			if !claimed[i] && strings.Contains(h, needle) {
				return i
			}
		}
	}
	return -1
}

// cell returns the cell text at idx or "" when idx is out of range.
func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

// logicalCells returns the cells of the resolved columns in logical order,
// then the remaining cells sorted, so text built from them does not depend
// on how the portal orders its columns.
func logicalCells(cells []string, columns ColumnMap) []string {
	out := make([]string, 0, len(cells))
	used := make(map[int]bool, len(cells))
	order := []int{columns.CaseNumber, columns.Efiling, columns.Parties, columns.Status, columns.Print, columns.Details}
	for _, idx := range order {
		if idx < 0 || idx >= len(cells) || used[idx] {
			continue
		}
		used[idx] = true
		out = append(out, cells[idx])
	}

	var rest []string
	for i, c := range cells {
		if !used[i] {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
