// Package foldx folds a sequence of raw rows into domain values while keeping
// the rows that could not be converted, together with the reason.
package foldx

// Skip describes one row that was left out of a fold.
type Skip struct {
	Key    string
	Reason string
}

// Result is the outcome of a fold: converted values in input order plus the
// rows that were skipped.
type Result[T any] struct {
	Values  []T
	Skipped []Skip
}

// Collect converts every row with build. A failing row is recorded in
// Skipped under key(row) and the fold continues with the next row.
func Collect[R, T any](rows []R, key func(R) string, build func(R) (T, error)) Result[T] {
	res := Result[T]{Values: make([]T, 0, len(rows))}
	for _, row := range rows {
		v, err := build(row)
		if err != nil {
			res.Skipped = append(res.Skipped, Skip{Key: key(row), Reason: err.Error()})
			continue
		}
		res.Values = append(res.Values, v)
	}
	return res
}
