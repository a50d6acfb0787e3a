// Package pagination turns a (total, page) pair into the page metadata and
// navigation links the employee table renders.
package pagination

import (
	"net/url"
	"strconv"

	"github.com/aanand-mishra/employees-app/internal/types"
)

const (
	// onEachSide is how many numbered links surround the current page
	// before the window collapses into "...".
	onEachSide = 3

	PreviousLabel = "&laquo; Previous"
	NextLabel     = "Next &raquo;"
	Ellipsis      = "..."
)

// New fills in everything of a types.Page except the URLs.
func New(data []types.Employee, total, page, perPage int) types.Page {
	if perPage <= 0 {
		perPage = 1
	}
	if page < 1 {
		page = 1
	}
	if data == nil {
		data = []types.Employee{}
	}

	lastPage := 1
	if total > 0 {
		lastPage = (total + perPage - 1) / perPage
	}

	p := types.Page{
		Data:        data,
		CurrentPage: page,
		LastPage:    lastPage,
		PerPage:     perPage,
		Total:       total,
	}

	if len(data) > 0 {
		p.From = (page-1)*perPage + 1
		p.To = min(p.From+len(data)-1, total)
	}

	return p
}

// Linker builds page URLs for one path, carrying the given query
// parameters (search, sort) into every link. Empty values are dropped.
type Linker struct {
	path   string
	params url.Values
}

func NewLinker(path string, params map[string]string) Linker {
	values := url.Values{}
	for k, v := range params {
		if v != "" {
			values.Set(k, v)
		}
	}
	return Linker{path: path, params: values}
}

// URL returns the link to page n.
func (l Linker) URL(n int) string {
	values := url.Values{}
	for k, v := range l.params {
		values[k] = v
	}
	values.Set("page", strconv.Itoa(n))
	return l.path + "?" + values.Encode()
}

// Attach fills the URL fields and the links array of p.
func (l Linker) Attach(p *types.Page) {
	p.Path = l.path
	p.FirstURL = l.URL(1)
	p.LastURL = l.URL(p.LastPage)
	p.PrevURL = nil
	p.NextURL = nil

	if p.CurrentPage > 1 {
		prev := l.URL(min(p.CurrentPage-1, p.LastPage))
		p.PrevURL = &prev
	}
	if p.CurrentPage < p.LastPage {
		next := l.URL(p.CurrentPage + 1)
		p.NextURL = &next
	}

	links := make([]types.PageLink, 0, p.LastPage+2)
	links = append(links, types.PageLink{URL: p.PrevURL, Label: PreviousLabel})

	for _, n := range Window(p.CurrentPage, p.LastPage) {
		if n == 0 {
			links = append(links, types.PageLink{Label: Ellipsis})
			continue
		}
		u := l.URL(n)
		links = append(links, types.PageLink{
			URL:    &u,
			Label:  strconv.Itoa(n),
			Active: n == p.CurrentPage,
		})
	}

	links = append(links, types.PageLink{URL: p.NextURL, Label: NextLabel})
	p.Links = links
}

// Window lists the page numbers to show, with 0 standing for a "..."
// gap. Small page counts are shown in full; otherwise the first two, the
// last two and onEachSide pages around current are kept.
func Window(current, last int) []int {
	if last < 1 {
		return nil
	}

	const full = onEachSide*2 + 8
	if last < full {
		return sequence(1, last)
	}

	window := onEachSide * 2
	switch {
	case current <= window:
		return append(append(sequence(1, window+2), 0), last-1, last)
	case current > last-window:
		return append([]int{1, 2, 0}, sequence(last-(window+2)+1, last)...)
	default:
		pages := []int{1, 2, 0}
		pages = append(pages, sequence(current-onEachSide, current+onEachSide)...)
		return append(pages, 0, last-1, last)
	}
}

func sequence(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
