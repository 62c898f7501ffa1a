package pgstore

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// toPgText maps "" to NULL.
func toPgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func textValue(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

// toPgUUID parses id. Ids that are not UUIDs get a fresh one so rows
// carried over from the CSV store still insert.
func toPgUUID(id string) pgtype.UUID {
	u, err := uuid.Parse(id)
	if err != nil {
		u = uuid.New()
	}
	return pgtype.UUID{Bytes: u, Valid: true}
}

func uuidString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// timestampOr returns t, or now when t is zero.
func timestampOr(t, now time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		t = now
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func timeValue(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}
