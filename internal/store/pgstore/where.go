package pgstore

import (
	"fmt"
	"strings"
	"time"
)

// WhereBuilder assembles a parameterized WHERE clause. Conditions with empty
// values are skipped so optional filters can be added unconditionally.
type WhereBuilder struct {
	argIndex   int
	conditions []string
	args       []any
}

// NewWhereBuilder returns an empty builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

func (wb *WhereBuilder) push(cond string, arg any) {
	wb.conditions = append(wb.conditions, cond)
	wb.args = append(wb.args, arg)
	wb.argIndex++
}

// Add appends "col = $n" unless val is empty.
func (wb *WhereBuilder) Add(col, val string) {
	if val == "" {
		return
	}
	wb.push(fmt.Sprintf("%s = $%d", col, wb.argIndex), val)
}

// AddRange appends inclusive bounds on col, skipping either empty side.
func (wb *WhereBuilder) AddRange(col, from, to string) {
	if from != "" {
		wb.push(fmt.Sprintf("%s >= $%d", col, wb.argIndex), from)
	}
	if to != "" {
		wb.push(fmt.Sprintf("%s <= $%d", col, wb.argIndex), to)
	}
}

// AddSince appends "col >= $n" unless t is zero.
func (wb *WhereBuilder) AddSince(col string, t time.Time) {
	if t.IsZero() {
		return
	}
	wb.push(fmt.Sprintf("%s >= $%d", col, wb.argIndex), t)
}

// NextArgIndex returns the placeholder number the next argument will take.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns the clause with a leading " WHERE" and its arguments, or
// ("", nil) when no condition was added.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}
