package pgstore

import (
	"testing"
	"time"
)

// ============================================================================
// WhereBuilder Tests
// ============================================================================

func TestNewWhereBuilder(t *testing.T) {
	wb := NewWhereBuilder()

	if wb.argIndex != 1 {
		t.Errorf("expected argIndex to be 1, got %d", wb.argIndex)
	}
	if len(wb.conditions) != 0 || len(wb.args) != 0 {
		t.Errorf("expected empty builder, got %v / %v", wb.conditions, wb.args)
	}
}

func TestWhereBuilder_Build_Empty(t *testing.T) {
	wb := NewWhereBuilder()
	wb.Add("grupo", "")
	wb.AddRange("fecha", "", "")
	wb.AddSince("created_at", time.Time{})

	whereClause, args := wb.Build()
	if whereClause != "" {
		t.Errorf("expected empty string for no conditions, got %q", whereClause)
	}
	if args != nil {
		t.Errorf("expected nil args for no conditions, got %v", args)
	}
}

func TestWhereBuilder_Conditions(t *testing.T) {
	since := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		build      func(wb *WhereBuilder)
		wantClause string
		wantArgs   int
		wantNext   int
	}{
		{
			name:       "single",
			build:      func(wb *WhereBuilder) { wb.Add("action", "login") },
			wantClause: " WHERE action = $1",
			wantArgs:   1,
			wantNext:   2,
		},
		{
			name: "empty value skipped between others",
			build: func(wb *WhereBuilder) {
				wb.Add("action", "login")
				wb.Add("severity", "")
				wb.Add("actor", "admin")
			},
			wantClause: " WHERE action = $1 AND actor = $2",
			wantArgs:   2,
			wantNext:   3,
		},
		{
			name: "range and equality",
			build: func(wb *WhereBuilder) {
				wb.AddRange("fecha", "2024-03-01", "2024-03-31")
				wb.Add("grupo_key", "1a")
			},
			wantClause: " WHERE fecha >= $1 AND fecha <= $2 AND grupo_key = $3",
			wantArgs:   3,
			wantNext:   4,
		},
		{
			name:       "open range",
			build:      func(wb *WhereBuilder) { wb.AddRange("fecha", "", "2024-03-31") },
			wantClause: " WHERE fecha <= $1",
			wantArgs:   1,
			wantNext:   2,
		},
		{
			name: "since",
			build: func(wb *WhereBuilder) {
				wb.Add("severity", "high")
				wb.AddRange("fecha", "2024-03-01", "")
				wb.AddSince("created_at", since)
			},
			wantClause: " WHERE severity = $1 AND fecha >= $2 AND created_at >= $3",
			wantArgs:   3,
			wantNext:   4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			tt.build(wb)

			clause, args := wb.Build()
			if clause != tt.wantClause {
				t.Errorf("clause = %q, want %q", clause, tt.wantClause)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("args = %v, want %d", args, tt.wantArgs)
			}
			if wb.NextArgIndex() != tt.wantNext {
				t.Errorf("NextArgIndex = %d, want %d", wb.NextArgIndex(), tt.wantNext)
			}
		})
	}
}
