// Package query turns raw list parameters into a normalized, owner-scoped query.
//
// Search and status constraints are independent and optional, which yields four
// query shapes. All of them are rendered by a single predicate builder so the
// shapes cannot drift apart.
package query

import (
	"math"

	"ledger-query/pkg/ledger"
)

// Pagination bounds.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Shape identifies which optional constraints a filter carries.
type Shape int

const (
	ShapeAll Shape = iota
	ShapeSearch
	ShapeStatus
	ShapeSearchStatus
)

// String returns the shape label used in logs and metrics.
func (s Shape) String() string {
	switch s {
	case ShapeAll:
		return "all"
	case ShapeSearch:
		return "search"
	case ShapeStatus:
		return "status"
	case ShapeSearchStatus:
		return "search_status"
	default:
		return "unknown"
	}
}

// Params are the raw, untrusted list parameters. A nil field is absent.
type Params struct {
	Search *string
	Filter *string
	Page   *int
	Limit  *int
}

// Filter is the normalized constraint set of a list query.
type Filter struct {
	// Search is a literal, case-insensitive substring matched against the
	// customer email or the status. An empty string matches everything.
	Search *string

	// Status restricts results to one status.
	Status *ledger.Status
}

// Shape returns the query shape implied by the present constraints.
func (f Filter) Shape() Shape {
	switch {
	case f.Search != nil && f.Status != nil:
		return ShapeSearchStatus
	case f.Search != nil:
		return ShapeSearch
	case f.Status != nil:
		return ShapeStatus
	default:
		return ShapeAll
	}
}

// Page is a normalized page request.
type Page struct {
	Number int
	Limit  int
}

// Offset returns the number of rows skipped before this page.
// Offsets past math.MaxInt saturate; such pages are simply empty.
func (p Page) Offset() int {
	if p.Limit > 0 && p.Number-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Limit
}

// Query is a fully normalized, owner-scoped list request.
type Query struct {
	Owner  ledger.OwnerID
	Filter Filter
	Page   Page
}

// Build normalizes p for owner. It never fails: unknown statuses are dropped,
// and page and limit are clamped into range.
func Build(owner ledger.OwnerID, p Params) Query {
	q := Query{
		Owner: owner,
		Page:  NormalizePage(p.Page, p.Limit),
	}

	if p.Search != nil {
		s := *p.Search
		q.Filter.Search = &s
	}
	if p.Filter != nil {
		if status, ok := ledger.ParseStatus(*p.Filter); ok {
			q.Filter.Status = &status
		}
	}

	return q
}

// NormalizePage applies the page defaults: page is floored at 1, limit is
// clamped to [1, MaxLimit].
func NormalizePage(page, limit *int) Page {
	p := Page{Number: DefaultPage, Limit: DefaultLimit}

	if page != nil {
		p.Number = max(*page, 1)
	}
	if limit != nil {
		p.Limit = min(max(*limit, 1), MaxLimit)
	}

	return p
}
