// Package paging extracts page requests from query parameters and renders
// pagination headers for list responses.
package paging

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 1000
	// Unlimited as per_page returns every item on a single page.
	Unlimited = -1

	// MaxPage keeps Page*PerPage within int for any accepted per_page.
	MaxPage = math.MaxInt / MaxPerPage
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Order is a single sort key.
type Order struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// Pager describes the requested page. Page is 0-based.
type Pager struct {
	Page    int     `json:"page"`
	PerPage int     `json:"perPage"`
	Order   []Order `json:"order,omitempty"`
}

// IsLimited reports whether the pager restricts the number of items.
func (p Pager) IsLimited() bool {
	return p.PerPage != Unlimited
}

// Offset returns the index of the first item on the page. It saturates at
// math.MaxInt instead of wrapping.
func (p Pager) Offset() int {
	if !p.IsLimited() || p.Page <= 0 || p.PerPage <= 0 {
		return 0
	}
	if p.Page > math.MaxInt/p.PerPage {
		return math.MaxInt
	}
	return p.Page * p.PerPage
}

// Extract reads page, per_page, sort and order from q. Invalid values fall back to
// defaults. Pages above MaxPage are clamped to it, which is past the end of any result.
func Extract(q url.Values) Pager {
	p := Pager{PerPage: DefaultPerPage}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n >= 0 {
		p.Page = min(n, MaxPage)
	}
	if n, err := strconv.Atoi(q.Get("per_page")); err == nil {
		switch {
		case n == Unlimited:
			p.PerPage = Unlimited
			p.Page = 0
		case n > 0 && n <= MaxPerPage:
			p.PerPage = n
		case n > MaxPerPage:
			p.PerPage = MaxPerPage
		}
	}

	var dirs []string
	if v := q.Get("order"); v != "" {
		dirs = strings.Split(v, ",")
	}
	if v := q.Get("sort"); v != "" {
		for i, field := range strings.Split(v, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			dir := Asc
			if i == 0 {
				dir = Desc
			}
			if i < len(dirs) {
				switch Direction(strings.ToLower(strings.TrimSpace(dirs[i]))) {
				case Asc:
					dir = Asc
				case Desc:
					dir = Desc
				}
			}
			p.Order = append(p.Order, Order{Field: field, Direction: dir})
		}
	}
	return p
}

// Page is one page of results.
type Page[T any] struct {
	Items     []T
	Pager     Pager
	TotalSize int
}

// NewPage builds a Page. A nil items slice is normalised to empty.
func NewPage[T any](items []T, pager Pager, total int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Items: items, Pager: pager, TotalSize: total}
}

// IsEmpty reports whether the page carries no items.
func (p *Page[T]) IsEmpty() bool {
	return p == nil || len(p.Items) == 0
}

// LastPage returns the index of the last page.
func (p *Page[T]) LastPage() int {
	if !p.Pager.IsLimited() || p.TotalSize == 0 {
		return 0
	}
	return (p.TotalSize - 1) / p.Pager.PerPage
}

// WriteLinks sets X-Total-Count and an RFC 5988 Link header whose targets are
// derived from the request URL with the page parameter replaced.
func WriteLinks[T any](h http.Header, p *Page[T], reqURL *url.URL) {
	h.Set("X-Total-Count", strconv.Itoa(p.TotalSize))

	last := p.LastPage()
	current := p.Pager.Page
	var links []string
	add := func(rel string, page int) {
		links = append(links, fmt.Sprintf("<%s>; rel=\"%s\"", pageURL(reqURL, page), rel))
	}
	add("first", 0)
	if current > 0 {
		add("prev", current-1)
	}
	if current < last {
		add("next", current+1)
	}
	add("last", last)
	add("current", current)
	h.Set("Link", strings.Join(links, ", "))
}

func pageURL(reqURL *url.URL, page int) string {
	u := *reqURL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}
