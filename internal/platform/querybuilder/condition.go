package querybuilder

import "strings"

// Condition is one predicate of a WHERE clause. Conditions are ANDed.
type Condition interface {
	render(w *writer)
}

type comparison struct {
	column string
	op     string
	value  any
}

func (c comparison) render(w *writer) {
	w.text(c.column, " ", c.op, " ")
	w.bind(c.value)
}

func Eq(column string, value any) Condition  { return comparison{column, "=", value} }
func Gte(column string, value any) Condition { return comparison{column, ">=", value} }
func Lte(column string, value any) Condition { return comparison{column, "<=", value} }
func Lt(column string, value any) Condition  { return comparison{column, "<", value} }

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ILike matches a case-insensitive substring; wildcards in value are escaped.
func ILike(column, value string) Condition {
	return comparison{column, "ILIKE", "%" + likeEscaper.Replace(value) + "%"}
}

type membership struct {
	column string
	values []any
}

// In with no values matches nothing.
func In(column string, values []any) Condition {
	return membership{column: column, values: values}
}

func (c membership) render(w *writer) {
	if len(c.values) == 0 {
		w.text("1=0")
		return
	}
	w.text(c.column, " IN (")
	for i, value := range c.values {
		if i > 0 {
			w.text(", ")
		}
		w.bind(value)
	}
	w.text(")")
}

type anyOf []Condition

func Or(conditions ...Condition) Condition {
	return anyOf(conditions)
}

func (c anyOf) render(w *writer) {
	if len(c) == 0 {
		w.text("1=0")
		return
	}
	w.text("(")
	for i, cond := range c {
		if i > 0 {
			w.text(" OR ")
		}
		cond.render(w)
	}
	w.text(")")
}
