package core

// # Error Codes Reference
//
// This file defines user-facing error messages with codes for support
// reference. Staff at the front desk can quote the code when something goes
// wrong at the kiosk or in the dashboard.
//
// Codes are grouped by category:
//
//	ATT001-ATT099   Registration: unknown student, duplicate registration
//	AUTH001-AUTH099 Login, tokens and roles
//	DB001-DB099     Store: constraints, connectivity, timeouts
//	VAL001-VAL099   Row validation: dates, times, required fields, enums
//	FILE001-FILE099 Uploaded files: size, format, encoding
//	IMP001-IMP099   Import processing: busy, cancelled, timed out
//	RATE001         Request throttling
//	ERR000          Fallback when nothing matches
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are listed
// before general ones. Sentinel errors in errors.go use messages that match
// these patterns.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Registration (ATT001-ATT004)
	// Inactive is listed first: its errors also wrap ErrStudentNotFound.
	// =========================================================================
	{
		pattern: "student inactive",
		msg: UserMessage{
			Message: "La matrícula está dada de baja",
			Action:  "Acude a control escolar",
			Code:    "ATT003",
		},
	},
	{
		pattern: "student not found",
		msg: UserMessage{
			Message: "Matrícula no encontrada",
			Action:  "Verifica tu matrícula o acude a control escolar",
			Code:    "ATT001",
		},
	},
	{
		pattern: "already registered today",
		msg: UserMessage{
			Message: "Ya registraste tu asistencia hoy",
			Action:  "No es necesario registrarte de nuevo",
			Code:    "ATT002",
		},
	},
	{
		pattern: "attendance record not found",
		msg: UserMessage{
			Message: "Registro de asistencia no encontrado",
			Action:  "Actualiza la lista e intenta de nuevo",
			Code:    "ATT004",
		},
	},

	// =========================================================================
	// Authentication (AUTH001-AUTH006)
	// =========================================================================
	{
		pattern: "invalid credentials",
		msg: UserMessage{
			Message: "Usuario o contraseña incorrectos",
			Action:  "Verifica tus datos e intenta de nuevo",
			Code:    "AUTH001",
		},
	},
	{
		pattern: "token is expired",
		msg: UserMessage{
			Message: "La sesión expiró",
			Action:  "Inicia sesión de nuevo",
			Code:    "AUTH002",
		},
	},
	{
		pattern: "missing bearer token",
		msg: UserMessage{
			Message: "Se requiere iniciar sesión",
			Action:  "Inicia sesión para continuar",
			Code:    "AUTH003",
		},
	},
	{
		pattern: "invalid token",
		msg: UserMessage{
			Message: "La sesión no es válida",
			Action:  "Inicia sesión de nuevo",
			Code:    "AUTH003",
		},
	},
	{
		pattern: "insufficient role",
		msg: UserMessage{
			Message: "No tienes permiso para esta acción",
			Action:  "Solicita acceso a un administrador",
			Code:    "AUTH004",
		},
	},
	{
		pattern: "user already exists",
		msg: UserMessage{
			Message: "El usuario ya existe",
			Action:  "Elige otro nombre de usuario",
			Code:    "AUTH005",
		},
	},
	{
		pattern: "user not found",
		msg: UserMessage{
			Message: "Usuario no encontrado",
			Action:  "Verifica el nombre de usuario",
			Code:    "AUTH006",
		},
	},

	// =========================================================================
	// Store Errors (DB001-DB007)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "Ya existe un registro con ese identificador",
			Action:  "Revisa las filas duplicadas",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "El valor debe ser único pero ya existe",
			Action:  "Revisa si hay filas repetidas en el archivo",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "Se encontró un valor duplicado",
			Action:  "Revisa si hay filas repetidas en el archivo",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "No se pudo conectar con la base de datos",
			Action:  "Intenta de nuevo en unos momentos",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Se interrumpió la conexión con la base de datos",
			Action:  "Intenta de nuevo",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "La operación tardó demasiado",
			Action:  "Intenta con un archivo más pequeño o más tarde",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "La base de datos está ocupada",
			Action:  "Intenta de nuevo",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL007)
	// =========================================================================
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "Formato de fecha inválido",
			Action:  "Usa AAAA-MM-DD o DD/MM/AAAA",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid time",
		msg: UserMessage{
			Message: "Formato de hora inválido",
			Action:  "Usa HH:MM en formato de 24 horas",
			Code:    "VAL002",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "Falta un campo obligatorio",
			Action:  "Completa todas las columnas obligatorias",
			Code:    "VAL003",
		},
	},
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Falta una columna obligatoria en el archivo",
			Action:  "Revisa que el encabezado incluya matricula y nombre",
			Code:    "VAL004",
		},
	},
	{
		pattern: "invalid enum",
		msg: UserMessage{
			Message: "El valor no está en la lista permitida",
			Action:  "Revisa los valores permitidos para la columna",
			Code:    "VAL006",
		},
	},
	{
		pattern: "invalid input",
		msg: UserMessage{
			Message: "Datos inválidos",
			Action:  "Revisa los datos enviados",
			Code:    "VAL007",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "El archivo excede el tamaño máximo",
			Action:  "Divide el archivo en partes más pequeñas",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "El archivo no es un CSV válido",
			Action:  "Exporta el archivo como CSV separado por comas",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "El archivo contiene caracteres inválidos",
			Action:  "Guarda el archivo con codificación UTF-8",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No se seleccionó ningún archivo",
			Action:  "Selecciona un archivo CSV",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "El archivo está vacío",
			Action:  "Sube un CSV con encabezado y filas",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Import Errors (IMP001-IMP003)
	// =========================================================================
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "El sistema está procesando otras importaciones",
			Action:  "Espera un momento e intenta de nuevo",
			Code:    "IMP001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "La solicitud fue cancelada",
			Action:  "Intenta de nuevo",
			Code:    "IMP002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "La solicitud tardó demasiado",
			Action:  "Intenta con un archivo más pequeño",
			Code:    "IMP003",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Demasiadas solicitudes",
			Action:  "Espera un momento antes de intentar de nuevo",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// Support staff should check application logs for the original technical
// error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "Ocurrió un error inesperado",
	Action:  "Intenta de nuevo o contacta a soporte",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, the ERR000 fallback is returned.
//
// Example:
//
//	msg := MapError(fmt.Errorf("register %s: %w", id, ErrAlreadyRegistered))
//	// msg.Code == "ATT002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Código: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Código: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a specific pattern rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a
// user-friendly message. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
