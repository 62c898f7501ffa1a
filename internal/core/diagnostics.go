package core

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/saintfish/chardet"

	"github.com/JonMunkholm/asistencia/internal/textfix"
)

// Diagnostics is a health snapshot for administrators.
type Diagnostics struct {
	Store           string              `json:"store"`
	StoreOK         bool                `json:"storeOk"`
	StoreError      string              `json:"storeError,omitempty"`
	PingMillis      int64               `json:"pingMs"`
	Students        int                 `json:"students"`
	ActiveStudents  int                 `json:"activeStudents"`
	Attendance      int                 `json:"attendance"`
	AttendanceToday int                 `json:"attendanceToday"`
	Users           int                 `json:"users"`
	Imports         ImportLimiterStatus `json:"imports"`
	LastBackup      *BackupResult       `json:"lastBackup,omitempty"`
	Snapshots       int                 `json:"snapshots"`
	Timezone        string              `json:"timezone"`
	LateAfter       string              `json:"lateAfter"`
	GeneratedAt     time.Time           `json:"generatedAt"`
}

// Diagnose collects store health, entity counts and background job state.
// Store failures are reported in the result rather than returned.
func (s *Service) Diagnose(ctx context.Context) *Diagnostics {
	d := &Diagnostics{
		Store:       s.store.Kind(),
		Imports:     s.limiter.Status(),
		LastBackup:  s.LastBackup(),
		Timezone:    s.opts.Location.String(),
		LateAfter:   formatOffset(s.opts.LateAfter),
		GeneratedAt: s.now().UTC(),
	}

	start := time.Now()
	err := s.store.Ping(ctx)
	d.PingMillis = time.Since(start).Milliseconds()
	if err != nil {
		d.StoreError = err.Error()
		return d
	}
	d.StoreOK = true

	if students, err := s.store.ListStudents(ctx); err == nil {
		d.Students = len(students)
		for _, st := range students {
			if st.Active {
				d.ActiveStudents++
			}
		}
	}
	if records, err := s.store.ListAttendance(ctx, AttendanceFilter{}); err == nil {
		d.Attendance = len(records)
		today := s.Today()
		for _, a := range records {
			if a.Date == today {
				d.AttendanceToday++
			}
		}
	}
	if users, err := s.store.ListUsers(ctx); err == nil {
		d.Users = len(users)
	}
	if names, err := ListSnapshots(s.opts.BackupDir); err == nil {
		d.Snapshots = len(names)
	}
	return d
}

func formatOffset(d time.Duration) string {
	return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Add(d).Format("15:04")
}

// RepairReport explains how an uploaded file would be decoded.
type RepairReport struct {
	FileName        string     `json:"fileName"`
	Bytes           int        `json:"bytes"`
	ValidUTF8       bool       `json:"validUtf8"`
	Encoding        string     `json:"encoding"`
	Clean           bool       `json:"clean"`
	Guess           string     `json:"guess,omitempty"`
	GuessLanguage   string     `json:"guessLanguage,omitempty"`
	GuessConfidence int        `json:"guessConfidence,omitempty"`
	Delimiter       string     `json:"delimiter"`
	Header          []string   `json:"header"`
	Rows            int        `json:"rows"`
	RepairedFields  int        `json:"repairedFields"`
	ArtifactFields  int        `json:"artifactFields"`
	Preview         [][]string `json:"preview"`
}

const previewRows = 10

// PreviewRepair runs the decoding pipeline on data without importing it.
// The statistical guess from chardet is informational only; decoding
// always follows the fixed candidate order.
func PreviewRepair(fileName string, data []byte) (*RepairReport, error) {
	rep := &RepairReport{
		FileName:  fileName,
		Bytes:     len(data),
		ValidUTF8: utf8.Valid(data),
		Preview:   [][]string{},
	}

	if enc, ok := textfix.Detect(data); ok {
		rep.Encoding = enc.String()
		rep.Clean = true
	} else {
		rep.Encoding = textfix.UTF8.String() + " (lenient)"
	}

	if len(data) > 0 {
		if best, err := chardet.NewTextDetector().DetectBest(data); err == nil && best != nil {
			rep.Guess = best.Charset
			rep.GuessLanguage = best.Language
			rep.GuessConfidence = best.Confidence
		}
	}

	doc, err := DecodeCSV(data)
	if err != nil {
		return rep, err
	}
	rep.Delimiter = string(doc.Delimiter)
	rep.Header = doc.Header
	rep.Rows = len(doc.Rows)
	rep.RepairedFields = doc.Repaired
	for i, row := range doc.Rows {
		for _, cell := range row {
			if textfix.HasArtifacts(cell) {
				rep.ArtifactFields++
			}
		}
		if i < previewRows {
			rep.Preview = append(rep.Preview, row)
		}
	}
	return rep, nil
}
