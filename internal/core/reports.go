package core

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// GroupSummary is one group's attendance for a single day.
type GroupSummary struct {
	Group    string  `json:"grupo"`
	Enrolled int     `json:"inscritos"`
	Present  int     `json:"presentes"`
	Late     int     `json:"retardos"`
	Absent   int     `json:"ausentes"`
	Rate     float64 `json:"porcentaje"`
}

// DaySummary is the per-group breakdown for one date.
type DaySummary struct {
	Date   string         `json:"fecha"`
	Groups []GroupSummary `json:"grupos"`
	Total  GroupSummary   `json:"total"`
}

// DailySummary reports enrolled, present, late and absent counts per group
// for date (today when empty). Enrolled counts active students; absent is
// enrolled students with no record that day.
func (s *Service) DailySummary(ctx context.Context, date string) (*DaySummary, error) {
	day, err := normalizeDateParam(date)
	if err != nil {
		return nil, err
	}
	if day == "" {
		day = s.Today()
	}

	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("daily summary: %w", err)
	}
	records, err := s.store.ListAttendance(ctx, AttendanceFilter{From: day, To: day})
	if err != nil {
		return nil, fmt.Errorf("daily summary: %w", err)
	}

	byGroup := make(map[string]*GroupSummary)
	group := func(name string) *GroupSummary {
		label := groupLabel(name)
		key := FoldKey(label)
		g, ok := byGroup[key]
		if !ok {
			g = &GroupSummary{Group: label}
			byGroup[key] = g
		}
		return g
	}

	current := make(map[string]string)
	for _, st := range students {
		if st.Active {
			current[st.Matricula] = st.Group
		}
	}

	// Registrations count toward the student's current group; records for
	// students no longer enrolled keep the group they were taken under.
	attended := make(map[string]bool)
	for _, a := range records {
		name, ok := current[a.Matricula]
		if !ok {
			name = a.Group
		}
		g := group(name)
		if a.Status == StatusLate {
			g.Late++
		} else {
			g.Present++
		}
		attended[a.Matricula] = true
	}

	for matricula, name := range current {
		g := group(name)
		g.Enrolled++
		if !attended[matricula] {
			g.Absent++
		}
	}

	summary := &DaySummary{Date: day, Total: GroupSummary{Group: "Total"}}
	for _, g := range byGroup {
		g.Rate = rate(g.Enrolled-g.Absent, g.Enrolled)
		summary.Groups = append(summary.Groups, *g)

		summary.Total.Enrolled += g.Enrolled
		summary.Total.Present += g.Present
		summary.Total.Late += g.Late
		summary.Total.Absent += g.Absent
	}
	summary.Total.Rate = rate(summary.Total.Enrolled-summary.Total.Absent, summary.Total.Enrolled)

	sort.Slice(summary.Groups, func(i, j int) bool {
		return FoldKey(summary.Groups[i].Group) < FoldKey(summary.Groups[j].Group)
	})
	return summary, nil
}

// StudentSummary is one student's attendance over a date range.
type StudentSummary struct {
	Matricula string  `json:"matricula"`
	Name      string  `json:"nombre"`
	Group     string  `json:"grupo"`
	Present   int     `json:"presentes"`
	Late      int     `json:"retardos"`
	Absent    int     `json:"ausentes"`
	Rate      float64 `json:"porcentaje"`
}

// RangeReport is the per-student report for a date range.
type RangeReport struct {
	From       string           `json:"desde"`
	To         string           `json:"hasta"`
	Group      string           `json:"grupo,omitempty"`
	SchoolDays int              `json:"diasHabiles"`
	Students   []StudentSummary `json:"alumnos"`
}

// StudentReport summarises attendance per active student between from and
// to (inclusive). School days are the dates in range on which anyone
// registered, so weekends and holidays never count as absences.
func (s *Service) StudentReport(ctx context.Context, from, to, group string) (*RangeReport, error) {
	var err error
	if from, err = normalizeDateParam(from); err != nil {
		return nil, err
	}
	if to, err = normalizeDateParam(to); err != nil {
		return nil, err
	}
	if to == "" {
		to = s.Today()
	}
	if from != "" && from > to {
		return nil, fmt.Errorf("%w: desde %s is after hasta %s", ErrInvalidInput, from, to)
	}

	students, err := s.ListStudents(ctx, group)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListAttendance(ctx, AttendanceFilter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("student report: %w", err)
	}

	days := make(map[string]bool)
	type tally struct{ present, late int }
	counts := make(map[string]*tally)
	for _, a := range records {
		days[a.Date] = true
		t, ok := counts[a.Matricula]
		if !ok {
			t = &tally{}
			counts[a.Matricula] = t
		}
		if a.Status == StatusLate {
			t.late++
		} else {
			t.present++
		}
		if from == "" || a.Date < from {
			from = a.Date
		}
	}

	report := &RangeReport{From: from, To: to, Group: group, SchoolDays: len(days), Students: []StudentSummary{}}
	for _, st := range students {
		if !st.Active {
			continue
		}
		sum := StudentSummary{Matricula: st.Matricula, Name: st.Name, Group: st.Group}
		if t, ok := counts[st.Matricula]; ok {
			sum.Present, sum.Late = t.present, t.late
		}
		sum.Absent = max(report.SchoolDays-sum.Present-sum.Late, 0)
		sum.Rate = rate(sum.Present+sum.Late, report.SchoolDays)
		report.Students = append(report.Students, sum)
	}
	return report, nil
}

// rate returns part/whole as a percentage rounded to one decimal.
func rate(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part*1000/whole) / 10
}

var attendanceExportHeader = []string{"fecha", "hora", "matricula", "nombre", "grupo", "estado", "origen"}

// ExportAttendanceCSV writes records matching f as a spreadsheet-friendly CSV.
func (s *Service) ExportAttendanceCSV(ctx context.Context, w io.Writer, f AttendanceFilter) error {
	f.Limit = 0
	records, err := s.ListAttendance(ctx, f)
	if err != nil {
		return err
	}
	rows := make([][]string, len(records))
	for i, a := range records {
		rows[i] = []string{a.Date, a.Time, a.Matricula, a.Name, a.Group, string(a.Status), string(a.Source)}
	}
	return WriteCSV(w, attendanceExportHeader, rows, true)
}

var reportExportHeader = []string{"matricula", "nombre", "grupo", "presentes", "retardos", "ausentes", "porcentaje"}

// ExportReportCSV writes StudentReport as CSV.
func (s *Service) ExportReportCSV(ctx context.Context, w io.Writer, from, to, group string) error {
	report, err := s.StudentReport(ctx, from, to, group)
	if err != nil {
		return err
	}
	rows := make([][]string, len(report.Students))
	for i, st := range report.Students {
		rows[i] = []string{
			st.Matricula, st.Name, st.Group,
			strconv.Itoa(st.Present), strconv.Itoa(st.Late), strconv.Itoa(st.Absent),
			strconv.FormatFloat(st.Rate, 'f', 1, 64),
		}
	}
	return WriteCSV(w, reportExportHeader, rows, true)
}
