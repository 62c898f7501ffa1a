package core

import (
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// ParseDate Tests
// ----------------------------------------------------------------------------

func TestParseDate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "iso", input: "2024-03-04", want: "2024-03-04", wantOK: true},
		{name: "iso with slashes", input: "2024/03/04", want: "2024-03-04", wantOK: true},
		{name: "day first", input: "04/03/2024", want: "2024-03-04", wantOK: true},
		{name: "day first unpadded", input: "4/3/2024", want: "2024-03-04", wantOK: true},
		{name: "day first dashes", input: "04-03-2024", want: "2024-03-04", wantOK: true},
		{name: "day first dots", input: "04.03.2024", want: "2024-03-04", wantOK: true},
		{name: "two digit year", input: "04/03/24", want: "2024-03-04", wantOK: true},
		{name: "compact", input: "20240304", want: "2024-03-04", wantOK: true},
		{name: "excel formula", input: `="2024-03-04"`, want: "2024-03-04", wantOK: true},
		{name: "surrounding spaces", input: "  2024-03-04  ", want: "2024-03-04", wantOK: true},
		{name: "empty", input: "", wantOK: false},
		{name: "garbage", input: "mañana", wantOK: false},
		{name: "month out of range", input: "2024-13-01", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got.Format(DateLayout) != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.input, got.Format(DateLayout), tt.want)
			}
		})
	}
}

func TestParseDate_TwoDigitYearPivot(t *testing.T) {
	far := (time.Now().Year() + TwoDigitYearPivot + 5) % 100
	input := "01/01/" + twoDigits(far)

	got, ok := ParseDate(input)
	if !ok {
		t.Fatalf("ParseDate(%q) failed", input)
	}
	if got.Year() > time.Now().Year()+TwoDigitYearPivot {
		t.Errorf("ParseDate(%q) year = %d, want previous century", input, got.Year())
	}
}

func twoDigits(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}

// ----------------------------------------------------------------------------
// ParseClock Tests
// ----------------------------------------------------------------------------

func TestParseClock(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"07:55:12", "07:55:12", true},
		{"7:55", "07:55:00", true},
		{"07:55", "07:55:00", true},
		{"8:05 am", "08:05:00", true},
		{"1:30 PM", "13:30:00", true},
		{"1:30PM", "13:30:00", true},
		{"07.55", "07:55:00", true},
		{"", "", false},
		{"25:00", "", false},
		{"temprano", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseClock(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseClock(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParseBool / ParseStatus Tests
// ----------------------------------------------------------------------------

func TestParseBool(t *testing.T) {
	tests := []struct {
		input  string
		want   bool
		wantOK bool
	}{
		{"sí", true, true},
		{"SI", true, true},
		{"Si", true, true},
		{"true", true, true},
		{"1", true, true},
		{"activo", true, true},
		{"no", false, true},
		{"0", false, true},
		{"Inactivo", false, true},
		{"baja", false, true},
		{"", false, false},
		{"quizás", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseBool(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseBool(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input  string
		want   Status
		wantOK bool
	}{
		{"presente", StatusPresent, true},
		{"PRESENTE", StatusPresent, true},
		{"Asistió", StatusPresent, true},
		{"a tiempo", StatusPresent, true},
		{"retardo", StatusLate, true},
		{"Tarde", StatusLate, true},
		{"late", StatusLate, true},
		{"falta", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseStatus(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseStatus(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// CleanCell / MakeHeaderIndex Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "A001", "A001"},
		{"whitespace", "  A001 \t", "A001"},
		{"excel formula", `="00123"`, "00123"},
		{"bare equals", "=5", "5"},
		{"double quotes", `"1A"`, "1A"},
		{"single quotes", "'1A'", "1A"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMakeHeaderIndex(t *testing.T) {
	idx := MakeHeaderIndex([]string{"Matrícula", " NOMBRE ", "Grupo", "matricula"})

	tests := []struct {
		key  string
		want int
	}{
		{"matricula", 0},
		{"nombre", 1},
		{"grupo", 2},
	}
	for _, tt := range tests {
		if got, ok := idx[tt.key]; !ok || got != tt.want {
			t.Errorf("idx[%q] = (%d, %v), want %d", tt.key, got, ok, tt.want)
		}
	}
	if len(idx) != 3 {
		t.Errorf("len(idx) = %d, want 3 (duplicate header should not add a key)", len(idx))
	}
}
