// Package core provides the business logic for attendance registration.
//
// The package has no transport dependencies. Web handlers, the CLI and tests
// all drive the same [Service].
//
// # Architecture
//
//   - Service: registrations, roster and attendance management, imports,
//     reports, users, audit and backups.
//   - Store: the persistence boundary, implemented by internal/store/csvstore
//     and internal/store/pgstore.
//   - Normalisation: every human-entered string passes through [CleanText],
//     which repairs mis-decoded text (see internal/textfix), collapses
//     whitespace and applies NFC.
//
// # Imports
//
// Roster and attendance files usually come from spreadsheets saved with
// whatever encoding the school's computer uses. [DecodeCSV] runs a buffer
// level repair, tokenizes with a sniffed delimiter and repairs each field
// that still shows artifacts. Headers are matched by name or alias, ignoring
// case and accents:
//
//	matricula,nombre,grupo
//	A001,José Pérez,1A
//
// Rows that fail validation are reported in [ImportResult.FailedRows] and
// never abort the file. Concurrent imports are bounded by [ImportLimiter].
//
// # Error Handling
//
// Technical errors are mapped to Spanish user messages using [MapError].
// Each category has a code for support reference:
//
//   - ATT001-ATT004: Registration errors
//   - AUTH001-AUTH006: Authentication errors
//   - DB001-DB007: Storage errors
//   - VAL001-VAL007: Validation errors
//   - FILE001-FILE005: File errors (size, encoding, format)
//   - IMP001-IMP003: Import errors (busy, cancelled, timeout)
//
// # Audit Logging
//
// Imports, deletions, account changes, logins and backups are recorded with
// a severity level:
//
//   - Low: Logins, backups
//   - Medium: Student edits, manual attendance entries
//   - High: Imports, deletions
//   - Critical: Account creation, failed logins
package core
