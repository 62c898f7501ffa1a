package core

// normalize.go is the data-normalisation layer between raw input (CSV cells,
// form fields, legacy files) and the domain types. Every human-entered string
// passes through CleanText before it is stored.

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/JonMunkholm/asistencia/internal/textfix"
)

// CleanText repairs mis-decoded text, trims it, collapses runs of whitespace
// to a single space and returns the NFC form.
func CleanText(s string) string {
	s = textfix.RepairText(s)
	s = strings.Join(strings.Fields(s), " ")
	return norm.NFC.String(s)
}

// NormalizeMatricula returns the canonical enrollment id: cleaned, without
// inner spaces, upper-cased.
func NormalizeMatricula(s string) string {
	s = CleanText(s)
	s = strings.ReplaceAll(s, " ", "")
	return strings.ToUpper(s)
}

// FoldKey lowers s and strips diacritics so "Matrícula" and "MATRICULA"
// compare equal. Used for header aliases and group comparisons.
func FoldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, CleanText(s))
	if err != nil {
		folded = CleanText(s)
	}
	return strings.ToLower(folded)
}

func equalFold(a, b string) bool {
	return FoldKey(a) == FoldKey(b)
}

// NewStudent builds a Student from raw field values.
func NewStudent(matricula, name, group string, active bool) (Student, error) {
	st := Student{
		Matricula: NormalizeMatricula(matricula),
		Name:      CleanText(name),
		Group:     CleanText(group),
		Active:    active,
	}
	if st.Matricula == "" {
		return Student{}, fmt.Errorf("%w: required field matricula is empty", ErrInvalidInput)
	}
	if st.Name == "" {
		return Student{}, fmt.Errorf("%w: required field nombre is empty", ErrInvalidInput)
	}
	return st, nil
}

// NewAttendance builds a registration for st at the given local time.
func NewAttendance(st Student, at time.Time, status Status, source Source) Attendance {
	return Attendance{
		ID:        uuid.NewString(),
		Matricula: NormalizeMatricula(st.Matricula),
		Name:      CleanText(st.Name),
		Group:     CleanText(st.Group),
		Date:      at.Format(DateLayout),
		Time:      at.Format(TimeLayout),
		Status:    status,
		Source:    source,
		CreatedAt: at.UTC(),
	}
}
