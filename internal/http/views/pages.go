package views

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/medportal/medportal/internal/http/viewmodels"
)

func HomePage(data viewmodels.HomeViewData) templ.Component {
	return withLayout(data.Layout, func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<section class="hero"><h1>Your care, in one place</h1>`,
			`<p>Book appointments, read your records and reach your doctor.</p>`,
			`<p><a class="button" href="/login">Sign in</a>`)
		if data.SignupEnabled {
			hw.raw(` <a class="button button-secondary" href="/signup">Create an account</a>`)
		}
		hw.raw(`</p></section>`)
		return hw.err
	})
}

// AreaPage is the landing page of an area whose feature content lives
// elsewhere.
func AreaPage(data viewmodels.AreaViewData) templ.Component {
	return withLayout(data.Layout, func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<section`)
		hw.attr("data-area", data.Area)
		hw.raw(`><h1>`)
		hw.text(data.Heading)
		hw.raw(`</h1>`)
		if data.RoleLabel != "" {
			hw.raw(`<p class="muted">Signed in as `)
			hw.text(data.RoleLabel)
			hw.raw(`</p>`)
		}
		if data.Description != "" {
			hw.raw(`<p>`)
			hw.text(data.Description)
			hw.raw(`</p>`)
		}
		hw.raw(`</section>`)
		return hw.err
	})
}

func ProfilePage(data viewmodels.ProfileViewData) templ.Component {
	return withLayout(data.Layout, func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<section><h1>Profile</h1>`)
		hw.alert(data.Alert)
		hw.raw(`<dl><dt>Email</dt><dd>`)
		hw.text(data.Email)
		hw.raw(`</dd><dt>Roles</dt><dd>`)
		for _, role := range data.Roles {
			hw.raw(`<span class="badge">`)
			hw.text(role)
			hw.raw(`</span>`)
		}
		hw.raw(`</dd></dl><form method="post" action="/patient/profile">`)
		hw.csrfField(data.Layout.CSRFToken)
		hw.raw(`<label>Full name <input type="text" name="name" required`)
		hw.attr("value", data.Form.Name)
		hw.raw(`></label><label>Phone <input type="tel" name="phone"`)
		hw.attr("value", data.Form.Phone)
		hw.raw(`></label><button type="submit">Save</button></form></section>`)
		return hw.err
	})
}

func AdminUsersPage(data viewmodels.AdminUsersViewData) templ.Component {
	return withLayout(data.Layout, func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<section><h1>Users</h1>`)
		hw.alert(data.Alert)
		if !data.HasUsers {
			hw.raw(`<p class="muted">No users yet.</p></section>`)
			return hw.err
		}

		hw.raw(`<table><thead><tr><th>Email</th><th>Name</th><th>Status</th><th>Last login</th><th>Roles</th></tr></thead><tbody>`)
		for _, u := range data.Users {
			hw.raw(`<tr><td>`)
			hw.text(u.Email)
			if u.IsSelf {
				hw.raw(` <span class="badge">you</span>`)
			}
			hw.raw(`</td><td>`)
			hw.text(u.Name)
			hw.raw(`</td><td>`)
			if u.IsActive {
				hw.raw(`Active`)
			} else {
				hw.raw(`Inactive`)
			}
			hw.raw(`</td><td`)
			hw.attr("title", u.LastLoginTitle)
			hw.raw(`>`)
			hw.text(u.LastLogin)
			hw.raw(`</td><td><form method="post" action="/admin/users/roles">`)
			hw.csrfField(data.Layout.CSRFToken)
			hw.raw(`<input type="hidden" name="id"`)
			hw.attr("value", u.ID)
			hw.raw(`>`)
			for _, role := range data.Roles {
				hw.raw(`<label><input type="checkbox" name="roles"`)
				hw.attr("value", role)
				if u.HasRole(role) {
					hw.raw(` checked`)
				}
				locked := u.IsLastAdmin && role == "admin"
				if locked {
					hw.raw(` disabled title="The last admin keeps the admin role"`)
				}
				hw.raw(`> `)
				hw.text(role)
				hw.raw(`</label>`)
				if locked {
					hw.raw(`<input type="hidden" name="roles" value="admin">`)
				}
			}
			hw.raw(`<button type="submit">Update roles</button></form></td></tr>`)
		}
		hw.raw(`</tbody></table>`)
		hw.pagination(data.Pagination)
		hw.raw(`</section>`)
		return hw.err
	})
}

// AccessDeniedPage explains a denial. It never navigates on its own: the
// user picks one of the two actions.
func AccessDeniedPage(data viewmodels.DeniedViewData) templ.Component {
	return withLayout(data.Layout, func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<section class="access-denied"`)
		if data.Reason != "" {
			hw.attr("data-reason", data.Reason)
		}
		hw.raw(`><h1>`)
		hw.text(data.Title)
		hw.raw(`</h1><p>`)
		hw.text(data.Message)
		hw.raw(`</p><p class="actions"><a class="button"`)
		hw.attr("href", homeHref(data.HomeHref))
		hw.raw(`>`)
		hw.text(data.HomeText)
		hw.raw(`</a> <button type="button" class="button-secondary" onclick="history.back()">Go back</button></p></section>`)
		return hw.err
	})
}
