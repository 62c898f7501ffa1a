package web

// templates.go holds the HTML components. They are plain templ components
// written against the runtime API, so no generation step is needed.

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/asistencia/internal/core"
)

// KioskParams is the state rendered by KioskPage.
type KioskParams struct {
	Today  string
	Result *core.Attendance
	Error  *core.UserMessage
}

const kioskStyle = `body{font-family:system-ui,sans-serif;background:#f4f6f8;margin:0;display:flex;min-height:100vh;align-items:center;justify-content:center}
main{background:#fff;padding:2.5rem;border-radius:12px;box-shadow:0 2px 12px rgba(0,0,0,.08);width:min(28rem,92vw);text-align:center}
input{font-size:1.6rem;padding:.6rem;width:100%;box-sizing:border-box;text-transform:uppercase;letter-spacing:.1em}
button{margin-top:1rem;font-size:1.2rem;padding:.6rem 2rem;border:0;border-radius:8px;background:#1f6feb;color:#fff}
.ok{background:#e6f4ea;color:#1e4620}.late{background:#fff4e5;color:#663c00}.error{background:#fdecea;color:#611a15}
.alert{margin-top:1.5rem;padding:1rem;border-radius:8px}`

// KioskPage renders the full registration page.
func KioskPage(p KioskParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Registro de asistencia</title>
<style>%s</style>
</head>
<body>
<main>
<h1>Registro de asistencia</h1>
<p>%s</p>
<form method="post" action="/registrar" autocomplete="off">
<input name="matricula" placeholder="Matrícula" autofocus required maxlength="32">
<button type="submit">Registrar</button>
</form>
<div id="resultado">`, kioskStyle, templ.EscapeString(p.Today)); err != nil {
			return err
		}

		switch {
		case p.Error != nil:
			if err := ErrorAlert(p.Error.Message, p.Error.Action, p.Error.Code).Render(ctx, w); err != nil {
				return err
			}
		case p.Result != nil:
			if err := RegistrationResult(*p.Result).Render(ctx, w); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, "</div>\n</main>\n</body>\n</html>\n")
		return err
	})
}

// RegistrationResult renders the confirmation for one registration.
func RegistrationResult(a core.Attendance) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		class, label := "ok", "Asistencia registrada"
		if a.Status == core.StatusLate {
			class, label = "late", "Retardo registrado"
		}
		_, err := fmt.Fprintf(w,
			`<div class="alert %s" role="status"><strong>%s</strong><p>%s</p><p>%s · %s %s</p></div>`,
			class,
			label,
			templ.EscapeString(a.Name),
			templ.EscapeString(a.Group),
			templ.EscapeString(a.Date),
			templ.EscapeString(a.Time),
		)
		return err
	})
}

// ErrorAlert renders a user-facing error with its suggested action and code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<div class="alert error" role="alert"><strong>%s</strong>`,
			templ.EscapeString(message)); err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, `<p>%s</p>`, templ.EscapeString(action)); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, `<small>%s</small></div>`, templ.EscapeString(code))
		return err
	})
}
