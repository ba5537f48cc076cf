package document

// DefaultPageSize is used when a query does not set a positive page size.
const DefaultPageSize = 100

// Pagination selects a slice of a query result. Page is 1-based. When
// ContinuationToken is set it resumes the query after the last document of the
// previous page and Page is ignored.
type Pagination struct {
	Page              int
	PageSize          int
	ContinuationToken string
}

// NewPagination returns page 1 with DefaultPageSize, modified by opts.
func NewPagination(opts ...PageOption) Pagination {
	p := Pagination{Page: 1, PageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&p)
	}
	return p.Normalize()
}

// Normalize replaces non-positive values with their defaults.
func (p Pagination) Normalize() Pagination {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	return p
}

// Offset is the number of matching documents skipped before the page starts.
func (p Pagination) Offset() int {
	if p.ContinuationToken != "" || p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Limit returns the page size.
func (p Pagination) Limit() int {
	return p.PageSize
}

// PageOption customizes a Pagination.
type PageOption func(*Pagination)

// WithPage selects the 1-based page number.
func WithPage(page int) PageOption {
	return func(p *Pagination) { p.Page = page }
}

// WithPageSize sets the number of documents per page.
func WithPageSize(size int) PageOption {
	return func(p *Pagination) { p.PageSize = size }
}

// WithContinuationToken resumes a previous query.
func WithContinuationToken(token string) PageOption {
	return func(p *Pagination) { p.ContinuationToken = token }
}
