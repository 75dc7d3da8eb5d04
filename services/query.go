package services

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	// DefaultPageSize is used when the request does not ask for a page size
	DefaultPageSize = 10
	// MaxPageSize caps page_size
	MaxPageSize = 100
	// MaxPage caps page so the row offset stays in range
	MaxPage = 1_000_000
)

// ListParams holds the filter, search, ordering and page request of a list call
type ListParams struct {
	Page     int
	PageSize int
	Search   string
	Ordering string
	Filters  url.Values
}

// ParseListParams reads page, page_size, search and ordering; everything else is kept as a filter
func ParseListParams(q url.Values) ListParams {
	p := ListParams{
		Page:     DefaultPageValue(q.Get("page"), 1),
		PageSize: DefaultPageValue(q.Get("page_size"), DefaultPageSize),
		Search:   strings.TrimSpace(q.Get("search")),
		Ordering: strings.TrimSpace(q.Get("ordering")),
		Filters:  q,
	}
	return p.bounded()
}

func (p ListParams) bounded() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// DefaultPageValue parses a positive integer, falling back to def
func DefaultPageValue(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Filter returns the trimmed value of a filter parameter
func (p ListParams) Filter(name string) string {
	if p.Filters == nil {
		return ""
	}
	return strings.TrimSpace(p.Filters.Get(name))
}

// Page is one page of results plus the total number of matches
type Page[T any] struct {
	Items    []T
	Total    int64
	Page     int
	PageSize int
}

// Pagination is the metadata block returned with every list response
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// Meta builds the pagination block for the page
func (p *Page[T]) Meta() Pagination {
	totalPages := 0
	if p.Total > 0 {
		totalPages = int(math.Ceil(float64(p.Total) / float64(p.PageSize)))
	}
	return Pagination{
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      p.Total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}

// listSpec describes how one entity can be searched and ordered
type listSpec struct {
	table        string
	searchFields []string
	ordering     map[string]string // API name -> column
}

// applySearch adds a case-insensitive substring match over the listed search fields
func (s listSpec) applySearch(q *gorm.DB, term string) *gorm.DB {
	if term == "" || len(s.searchFields) == 0 {
		return q
	}
	like := "%" + strings.ToLower(term) + "%"
	conds := make([]string, 0, len(s.searchFields))
	args := make([]interface{}, 0, len(s.searchFields))
	for _, f := range s.searchFields {
		conds = append(conds, fmt.Sprintf("LOWER(%s.%s) LIKE ?", s.table, f))
		args = append(args, like)
	}
	return q.Where("("+strings.Join(conds, " OR ")+")", args...)
}

// applyOrdering sorts by the requested key (prefix "-" for descending), default newest first.
// The primary key is always the final tie-breaker so pages are stable.
func (s listSpec) applyOrdering(q *gorm.DB, ordering string) (*gorm.DB, error) {
	if ordering == "" {
		ordering = "-created_at"
	}
	for _, key := range strings.Split(ordering, ",") {
		key = strings.TrimSpace(key)
		dir := "ASC"
		if strings.HasPrefix(key, "-") {
			dir = "DESC"
			key = strings.TrimPrefix(key, "-")
		}
		col, ok := s.ordering[key]
		if !ok {
			return nil, NewValidationError("ordering", fmt.Sprintf("Cannot order by %q", key))
		}
		q = q.Order(fmt.Sprintf("%s.%s %s", s.table, col, dir))
	}
	return q.Order(fmt.Sprintf("%s.id DESC", s.table)), nil
}

// applyExact adds column = value for every non-empty filter in the map (API name -> column)
func (s listSpec) applyExact(q *gorm.DB, p ListParams, fields map[string]string) *gorm.DB {
	for name, col := range fields {
		if v := p.Filter(name); v != "" {
			q = q.Where(fmt.Sprintf("%s.%s = ?", s.table, col), v)
		}
	}
	return q
}

// applyBool adds column = bool for the named filter; malformed values are validation errors
func (s listSpec) applyBool(q *gorm.DB, p ListParams, name, col string) (*gorm.DB, error) {
	raw := p.Filter(name)
	if raw == "" {
		return q, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(raw))
	if err != nil {
		return nil, NewValidationError(name, "Enter a valid boolean")
	}
	return q.Where(fmt.Sprintf("%s.%s = ?", s.table, col), b), nil
}

// applyDateRange handles <name>_after / <name>_before filters on a date column.
// Malformed dates are reported as validation errors.
func (s listSpec) applyDateRange(q *gorm.DB, p ListParams, name, col string) (*gorm.DB, error) {
	if raw := p.Filter(name + "_after"); raw != "" {
		t, err := ParseDateParam(raw, false)
		if err != nil {
			return nil, NewValidationError(name+"_after", "Enter a valid date (YYYY-MM-DD)")
		}
		q = q.Where(fmt.Sprintf("%s.%s >= ?", s.table, col), t)
	}
	if raw := p.Filter(name + "_before"); raw != "" {
		t, err := ParseDateParam(raw, true)
		if err != nil {
			return nil, NewValidationError(name+"_before", "Enter a valid date (YYYY-MM-DD)")
		}
		q = q.Where(fmt.Sprintf("%s.%s <= ?", s.table, col), t)
	}
	return q, nil
}

// ParseDateParam accepts YYYY-MM-DD or RFC 3339. A bare date as an upper bound covers the whole day.
func ParseDateParam(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t.UTC(), nil
}

// paginate counts the matches, then orders and loads the requested page
func paginate[T any](q *gorm.DB, p ListParams, spec listSpec, preloads ...string) (*Page[T], error) {
	q = q.Session(&gorm.Session{})
	p = p.bounded()

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count results: %w", err)
	}

	ordered, err := spec.applyOrdering(q, p.Ordering)
	if err != nil {
		return nil, err
	}
	for _, rel := range preloads {
		ordered = ordered.Preload(rel)
	}

	items := make([]T, 0, p.PageSize)
	if err := ordered.Offset((p.Page - 1) * p.PageSize).Limit(p.PageSize).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}

	return &Page[T]{Items: items, Total: total, Page: p.Page, PageSize: p.PageSize}, nil
}

// completionRate returns completed/total as a percentage rounded to 2 decimals, 0 when total is 0
func completionRate(completed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*10000) / 100
}
