package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// StudentInput is the payload for creating or updating a student.
type StudentInput struct {
	Matricula string `json:"matricula"`
	Name      string `json:"nombre"`
	Group     string `json:"grupo"`
	Active    *bool  `json:"activo"`
}

// ListStudents returns the roster sorted by group then name. A non-empty
// group restricts the result (accent- and case-insensitive).
func (s *Service) ListStudents(ctx context.Context, group string) ([]Student, error) {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	out := students[:0]
	for _, st := range students {
		if group == "" || equalFold(st.Group, group) {
			out = append(out, st)
		}
	}
	sortStudents(out)
	return out, nil
}

// GetStudent returns one student by matricula.
func (s *Service) GetStudent(ctx context.Context, matricula string) (Student, error) {
	return s.store.GetStudent(ctx, NormalizeMatricula(matricula))
}

// SaveStudent creates or replaces a student. Active defaults to true for
// new students and to the stored value for existing ones.
func (s *Service) SaveStudent(ctx context.Context, in StudentInput) (Student, bool, error) {
	st, err := NewStudent(in.Matricula, in.Name, in.Group, true)
	if err != nil {
		return Student{}, false, err
	}

	now := s.now().UTC()
	existing, err := s.store.GetStudent(ctx, st.Matricula)
	switch {
	case err == nil:
		st.Active = existing.Active
		st.CreatedAt = existing.CreatedAt
	case errors.Is(err, ErrStudentNotFound):
		st.CreatedAt = now
	default:
		return Student{}, false, fmt.Errorf("save student %s: %w", st.Matricula, err)
	}
	if in.Active != nil {
		st.Active = *in.Active
	}
	st.UpdatedAt = now

	inserted, _, err := s.store.UpsertStudents(ctx, []Student{st})
	if err != nil {
		return Student{}, false, fmt.Errorf("save student %s: %w", st.Matricula, err)
	}

	s.LogAudit(ctx, AuditLogParams{
		Action:       ActionStudentSave,
		Target:       st.Matricula,
		Detail:       st.Name + " / " + st.Group,
		RowsAffected: 1,
	})
	return st, inserted == 1, nil
}

// DeleteStudent removes a student from the roster. Attendance history is kept.
func (s *Service) DeleteStudent(ctx context.Context, matricula string) error {
	id := NormalizeMatricula(matricula)
	if err := s.store.DeleteStudent(ctx, id); err != nil {
		return fmt.Errorf("delete student %s: %w", id, err)
	}
	s.LogAudit(ctx, AuditLogParams{Action: ActionStudentDelete, Target: id, RowsAffected: 1})
	return nil
}

// Groups returns the distinct group names of active students, sorted.
func (s *Service) Groups(ctx context.Context) ([]string, error) {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	seen := make(map[string]string)
	for _, st := range students {
		if !st.Active {
			continue
		}
		g := groupLabel(st.Group)
		if _, ok := seen[FoldKey(g)]; !ok {
			seen[FoldKey(g)] = g
		}
	}
	groups := make([]string, 0, len(seen))
	for _, g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups, nil
}

func sortStudents(students []Student) {
	sort.SliceStable(students, func(i, j int) bool {
		gi, gj := FoldKey(students[i].Group), FoldKey(students[j].Group)
		if gi != gj {
			return gi < gj
		}
		return FoldKey(students[i].Name) < FoldKey(students[j].Name)
	})
}

// noGroup labels students without a group in reports.
const noGroup = "Sin grupo"

func groupLabel(g string) string {
	if g == "" {
		return noGroup
	}
	return g
}
