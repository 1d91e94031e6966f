package browse

import (
	"github.com/leapstack-labs/rowbrowse/pkg/core"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PageSizeOptions are the page sizes offered by the page-size selector.
var PageSizeOptions = []int{5, 10, 20, 25, 50, 100}

// Pagination is the derived paging view of a filter state and a total count.
type Pagination struct {
	TotalCount      int
	Limit           int
	Offset          int
	PageCount       int
	CurrentPage     int
	DefaultPageSize int
}

// NewPagination derives page count, current page and default page size.
// A non-positive limit is treated as core.DefaultLimit.
func NewPagination(totalCount, limit, offset int) Pagination {
	if limit <= 0 {
		limit = core.DefaultLimit
	}
	if totalCount < 0 {
		totalCount = 0
	}
	if offset < 0 {
		offset = 0
	}

	pageCount := (totalCount + limit - 1) / limit
	current := offset / limit
	if maxPage := max(pageCount, 1) - 1; current > maxPage {
		current = maxPage
	}

	return Pagination{
		TotalCount:      totalCount,
		Limit:           limit,
		Offset:          offset,
		PageCount:       pageCount,
		CurrentPage:     current,
		DefaultPageSize: min(limit, totalCount),
	}
}

// Visible reports whether the pagination controls are shown.
func (p Pagination) Visible() bool {
	return p.TotalCount > p.Limit
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool {
	return p.CurrentPage > 0
}

// HasNext reports whether a next page exists.
func (p Pagination) HasNext() bool {
	return p.CurrentPage+1 < p.PageCount
}

// PageSizes returns PageSizeOptions, plus the current limit when it is not
// one of them.
func (p Pagination) PageSizes() []int {
	out := append([]int(nil), PageSizeOptions...)
	for _, n := range out {
		if n == p.Limit {
			return out
		}
	}
	for i, n := range out {
		if p.Limit < n {
			return append(out[:i], append([]int{p.Limit}, out[i:]...)...)
		}
	}
	return append(out, p.Limit)
}

var printer = message.NewPrinter(language.English)

// Summary describes the visible row range, e.g. "Rows 11-20 of 1,234".
func (p Pagination) Summary() string {
	if p.TotalCount == 0 {
		return "0 rows"
	}
	first := p.CurrentPage*p.Limit + 1
	last := min(first+p.Limit-1, p.TotalCount)
	return printer.Sprintf("Rows %d-%d of %d", first, last, p.TotalCount)
}
