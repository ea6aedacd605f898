package uow

import "strings"

// Predicate is a conjunction of SQL conditions with positional args. Column
// names come from code, never from input.
type Predicate struct {
	conds []string
	args  []any
}

func Where(cond string, args ...any) Predicate {
	return Predicate{conds: []string{cond}, args: args}
}

func Eq(column string, v any) Predicate {
	return Where(column+" = ?", v)
}

func All() Predicate { return Predicate{} }

func (p Predicate) And(cond string, args ...any) Predicate {
	out := Predicate{
		conds: append(append([]string{}, p.conds...), cond),
		args:  append(append([]any{}, p.args...), args...),
	}
	return out
}

func (p Predicate) AndEq(column string, v any) Predicate {
	return p.And(column+" = ?", v)
}

func (p Predicate) Empty() bool { return len(p.conds) == 0 }

func (p Predicate) SQL() (string, []any) {
	if p.Empty() {
		return "", nil
	}
	parts := make([]string, 0, len(p.conds))
	for _, c := range p.conds {
		parts = append(parts, "("+c+")")
	}
	return strings.Join(parts, " AND "), p.args
}

type queryOpts struct {
	order     []string
	limit     int
	forUpdate bool
}

type QueryOption func(*queryOpts)

// OrderBy appends an ORDER BY expression, e.g. "created_at DESC".
func OrderBy(expr string) QueryOption {
	return func(o *queryOpts) { o.order = append(o.order, expr) }
}

func Limit(n int) QueryOption {
	return func(o *queryOpts) { o.limit = n }
}

// ForUpdate row-locks the selected rows where the dialect supports it.
func ForUpdate() QueryOption {
	return func(o *queryOpts) { o.forUpdate = true }
}

func applyOpts(opts []QueryOption) queryOpts {
	var o queryOpts
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
