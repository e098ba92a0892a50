package services

// DefaultPageSize is used when a caller asks for a non-positive page size
const DefaultPageSize = 10

// Page is one slice of a filtered, ordered list
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
	TotalItems int `json:"total_items"`
	// 1-based display range ("showing From-To of TotalItems"); both 0 when empty
	From int `json:"from"`
	To   int `json:"to"`
}

// HasNext reports whether a later page exists
func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages }

// HasPrev reports whether an earlier page exists
func (p Page[T]) HasPrev() bool { return p.Page > 1 }

// Paginate returns items [(page-1)*size, page*size). Page numbers below 1 are
// clamped to 1 and pages past the end reset to 1, so a shrinking list never
// yields an out-of-range empty page.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(items)
	totalPages := (total + size - 1) / size

	if page < 1 || page > totalPages {
		page = 1
	}

	p := Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
		TotalItems: total,
	}
	if total == 0 {
		return p
	}

	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	p.Items = append(p.Items, items[start:end]...)
	p.From = start + 1
	p.To = end
	return p
}

// Pager keeps the page number of one list view. The page resets to 1 when the
// search term or filter changes and is kept across manual page changes.
type Pager struct {
	page   int
	size   int
	search string
	filter ClientFilter
}

// NewPager creates a pager on page 1
func NewPager(size int) *Pager {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Pager{page: 1, size: size, filter: DefaultClientFilter()}
}

// SetQuery records the current search term and filter. It returns true when
// either changed, in which case the page was reset to 1.
func (p *Pager) SetQuery(search string, filter ClientFilter) bool {
	if search == p.search && filter == p.filter {
		return false
	}
	p.search = search
	p.filter = filter
	p.page = 1
	return true
}

// SetPage selects a page; values below 1 become 1
func (p *Pager) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	p.page = page
}

// Page returns the selected page number
func (p *Pager) Page() int { return p.page }

// Size returns the page size
func (p *Pager) Size() int { return p.size }

// PageOf paginates items at the pager's current page and stores back the
// effective page, so a reset caused by a shrunken list sticks.
func PageOf[T any](p *Pager, items []T) Page[T] {
	page := Paginate(items, p.page, p.size)
	p.page = page.Page
	return page
}
