// Package views renders the portal's HTML pages as templ components.
package views

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/medportal/medportal/internal/http/viewmodels"
)

const htmxScript = `<script src="https://unpkg.com/htmx.org@2.0.4" defer></script>`

// htmlWriter accumulates the first write error so components can be written
// top to bottom without checking every call.
type htmlWriter struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newHTMLWriter(ctx context.Context, w io.Writer) *htmlWriter {
	return &htmlWriter{ctx: ctx, w: w}
}

func (hw *htmlWriter) raw(s ...string) {
	for _, part := range s {
		if hw.err != nil {
			return
		}
		_, hw.err = io.WriteString(hw.w, part)
	}
}

func (hw *htmlWriter) text(s string) {
	hw.raw(templ.EscapeString(s))
}

func (hw *htmlWriter) attr(name, value string) {
	hw.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

func (hw *htmlWriter) render(c templ.Component) {
	if hw.err != nil || c == nil {
		return
	}
	hw.err = c.Render(hw.ctx, hw.w)
}

func (hw *htmlWriter) csrfField(token string) {
	if token == "" {
		return
	}
	hw.raw(`<input type="hidden" name="csrf"`)
	hw.attr("value", token)
	hw.raw(`>`)
}

func (hw *htmlWriter) toast(t *viewmodels.ToastViewData) {
	if t == nil {
		return
	}
	hw.raw(`<div class="toast" role="status"`)
	hw.attr("data-category", t.Category)
	hw.raw(`>`)
	if t.Title != "" {
		hw.raw(`<strong>`)
		hw.text(t.Title)
		hw.raw(`</strong>`)
	}
	if t.Description != "" {
		hw.raw(`<p>`)
		hw.text(t.Description)
		hw.raw(`</p>`)
	}
	hw.raw(`</div>`)
}

func (hw *htmlWriter) alert(a *viewmodels.Alert) {
	if a == nil {
		return
	}
	class := "alert"
	if a.Destructive {
		class = "alert alert-destructive"
	}
	hw.raw(`<div role="alert"`)
	hw.attr("class", class)
	hw.raw(`><strong>`)
	hw.text(a.Title)
	hw.raw(`</strong><p>`)
	hw.text(a.Message)
	hw.raw(`</p></div>`)
}

func (hw *htmlWriter) pagination(p viewmodels.Pagination) {
	if p.TotalCount == 0 {
		return
	}
	hw.raw(`<nav class="pagination" aria-label="Pagination"><span>`)
	hw.text(fmt.Sprintf("Showing %d to %d of %d", p.ShowingFrom, p.ShowingTo, p.TotalCount))
	hw.raw(`</span>`)
	if p.HasPrev() {
		hw.raw(`<a rel="prev"`)
		hw.attr("href", pageHref(p.BaseHref, p.Page-1))
		hw.raw(`>Previous</a>`)
	}
	if p.HasNext() {
		hw.raw(`<a rel="next"`)
		hw.attr("href", pageHref(p.BaseHref, p.Page+1))
		hw.raw(`>Next</a>`)
	}
	hw.raw(`</nav>`)
}

func pageHref(base string, page int) string {
	return base + "?page=" + strconv.Itoa(page)
}

func (hw *htmlWriter) head(title string) {
	hw.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8">`,
		`<meta name="viewport" content="width=device-width, initial-scale=1">`,
		`<title>`)
	hw.text(pageTitle(title))
	hw.raw(`</title>`, htmxScript, `</head>`)
}

func pageTitle(title string) string {
	if title = strings.TrimSpace(title); title == "" {
		return "MedPortal"
	}
	return title + " · MedPortal"
}

func csrfHeaders(token string) string {
	raw, _ := json.Marshal(map[string]string{"X-CSRF-Token": token})
	return string(raw)
}

// Layout wraps its children in the signed-in page chrome.
func Layout(data viewmodels.LayoutData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.head(data.Title)
		hw.raw(`<body hx-boost="true"`)
		hw.attr("hx-headers", csrfHeaders(data.CSRFToken))
		hw.raw(`><header class="topbar"><a class="brand"`)
		hw.attr("href", homeHref(data.HomeHref))
		hw.raw(`>MedPortal</a>`)

		if len(data.Nav) > 0 {
			hw.raw(`<nav aria-label="Main"><ul>`)
			group := ""
			for _, item := range data.Nav {
				if item.Group != group {
					group = item.Group
					hw.raw(`<li class="nav-group">`)
					hw.text(group)
					hw.raw(`</li>`)
				}
				hw.raw(`<li><a`)
				hw.attr("href", item.Href)
				if item.Active {
					hw.raw(` aria-current="page"`)
				}
				hw.raw(`>`)
				hw.text(item.Title)
				hw.raw(`</a></li>`)
			}
			hw.raw(`</ul></nav>`)
		}

		if data.SignedIn || data.UserEmail != "" {
			hw.raw(`<div class="account"><span class="account-name">`)
			hw.text(firstNonEmpty(data.UserName, data.UserEmail))
			hw.raw(`</span>`)
			for _, role := range data.UserRoles {
				hw.raw(`<span class="badge">`)
				hw.text(Humanize(role))
				hw.raw(`</span>`)
			}
			hw.raw(`<form method="post" action="/logout" hx-boost="false">`)
			hw.csrfField(data.CSRFToken)
			hw.raw(`<button type="submit">Sign out</button></form></div>`)
		} else {
			hw.raw(`<div class="account"><a href="/login">Sign in</a></div>`)
		}
		hw.raw(`</header>`)

		hw.toast(data.Toast)
		hw.raw(`<main>`)
		hw.render(templ.GetChildren(ctx))
		hw.raw(`</main></body></html>`)
		return hw.err
	})
}

// withLayout renders body inside Layout.
func withLayout(data viewmodels.LayoutData, body templ.ComponentFunc) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Layout(data).Render(templ.WithChildren(ctx, body), w)
	})
}

func homeHref(href string) string {
	if strings.TrimSpace(href) == "" {
		return "/"
	}
	return href
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
