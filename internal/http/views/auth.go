package views

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/medportal/medportal/internal/http/viewmodels"
)

func authShell(hw *htmlWriter, title string, toast *viewmodels.ToastViewData) {
	hw.head(title)
	hw.raw(`<body hx-boost="true"><main class="auth"><h1>`)
	hw.text(title)
	hw.raw(`</h1>`)
	hw.toast(toast)
}

func formError(hw *htmlWriter, msg string) {
	if msg == "" {
		return
	}
	hw.raw(`<p class="form-error" role="alert">`)
	hw.text(msg)
	hw.raw(`</p>`)
}

func LoginPage(data viewmodels.LoginViewData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		authShell(hw, "Sign in", data.Toast)
		formError(hw, data.ErrorMessage)

		hw.raw(`<form method="post" action="/login" hx-boost="false">`)
		hw.csrfField(data.CSRFToken)
		if data.Next != "" {
			hw.raw(`<input type="hidden" name="next"`)
			hw.attr("value", data.Next)
			hw.raw(`>`)
		}
		hw.raw(`<label>Email <input type="email" name="email" autocomplete="username" required`)
		hw.attr("value", data.Email)
		hw.raw(`></label>`,
			`<label>Password <input type="password" name="password" autocomplete="current-password" required></label>`,
			`<button type="submit">Sign in</button></form>`)

		if data.SignupEnabled {
			hw.raw(`<p>New patient? <a href="/signup">Create an account</a></p>`)
		}
		hw.raw(`</main></body></html>`)
		return hw.err
	})
}

func SignupPage(data viewmodels.SignupViewData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		authShell(hw, "Create account", data.Toast)
		formError(hw, data.ErrorMessage)

		hw.raw(`<form method="post" action="/signup" hx-boost="false">`)
		hw.csrfField(data.CSRFToken)
		hw.raw(`<label>Full name <input type="text" name="name" autocomplete="name" required`)
		hw.attr("value", data.Name)
		hw.raw(`></label><label>Email <input type="email" name="email" autocomplete="email" required`)
		hw.attr("value", data.Email)
		hw.raw(`></label><label>Phone <input type="tel" name="phone" autocomplete="tel"`)
		hw.attr("value", data.Phone)
		hw.raw(`></label>`,
			`<label>Password <input type="password" name="password" autocomplete="new-password" minlength="8" required></label>`,
			`<label>Confirm password <input type="password" name="confirm_password" autocomplete="new-password" minlength="8" required></label>`,
			`<button type="submit">Create account</button></form>`,
			`<p>Already registered? <a href="/login">Sign in</a></p>`,
			`</main></body></html>`)
		return hw.err
	})
}
