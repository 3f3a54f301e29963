package handlers

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/medportal/medportal/internal/db"
	"github.com/medportal/medportal/internal/http/viewmodels"
)

// pageWindow is one page of an ordered listing, clamped against the row
// count so an out-of-range ?page= lands on the last page.
type pageWindow struct {
	Page    int
	Pages   int
	PerPage int
	Total   int64
}

func newPageWindow(c *echo.Context, total int64, perPage int) pageWindow {
	perPage = max(perPage, 1)
	pages := max(int((total+int64(perPage)-1)/int64(perPage)), 1)

	page, err := strconv.Atoi(strings.TrimSpace(c.QueryParam("page")))
	if err != nil || page < 1 {
		page = 1
	}
	return pageWindow{Page: min(page, pages), Pages: pages, PerPage: perPage, Total: total}
}

func (w pageWindow) Offset() int {
	return (w.Page - 1) * w.PerPage
}

// ListParams is the LIMIT/OFFSET pair for the window's page.
func (w pageWindow) ListParams() db.ListUsersParams {
	return db.ListUsersParams{Limit: int32(w.PerPage), Offset: int32(w.Offset())}
}

// View describes the page for the pagination footer, given the number of
// rows the query returned.
func (w pageWindow) View(rows int, baseHref string) viewmodels.Pagination {
	p := viewmodels.Pagination{
		Page:       w.Page,
		TotalPages: w.Pages,
		TotalCount: w.Total,
		BaseHref:   baseHref,
	}
	if rows > 0 && w.Total > 0 {
		p.ShowingFrom = w.Offset() + 1
		p.ShowingTo = int(min(int64(w.Offset()+rows), w.Total))
	}
	return p
}
