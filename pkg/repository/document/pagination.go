package document

// Pagination defaults.
const (
	DefaultPageCount  int64 = 10
	DefaultPageNumber int64 = 0
)

// Pagination is the optional page number and page size bound from a list request.
// Number is a page index, not a row offset.
type Pagination struct {
	Number *int64 `json:"number,omitempty"`
	Count  *int64 `json:"count,omitempty"`
}

// NewPagination is a convenience constructor for call sites holding plain values.
func NewPagination(number, count int64) Pagination {
	return Pagination{Number: &number, Count: &count}
}

// Compute resolves the page into skip and limit. Negative or absent values fall back
// to the defaults; skip is derived from the already-resolved limit.
func (p Pagination) Compute() (skip, limit int64) {
	limit = DefaultPageCount
	if p.Count != nil && *p.Count >= 0 {
		limit = *p.Count
	}

	skip = DefaultPageNumber
	if p.Number != nil && *p.Number >= 0 {
		skip = *p.Number * limit
	}
	return skip, limit
}

// FindOptions turns the page into store find options.
func (p Pagination) FindOptions(sort ...Sort) FindOptions {
	skip, limit := p.Compute()
	return FindOptions{Skip: skip, Limit: limit, Sort: sort}
}
