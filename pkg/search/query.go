package search

import (
	"errors"
	"fmt"
	"strings"
)

// Query defaults applied when the caller leaves a field empty.
const (
	DefaultTopic   = "php"
	DefaultPerPage = 10
	DefaultPage    = 1

	// MaxPerPage bounds the caller's page size.
	MaxPerPage = 100

	// MaxPage bounds the caller's page number. Pages past the merged set
	// but below MaxPage are valid and come back empty.
	MaxPage = 10000
)

// Validation errors returned by NewQuery.
var (
	ErrInvalidTopic   = errors.New("invalid topic")
	ErrInvalidSort    = errors.New("invalid sort field")
	ErrInvalidOrder   = errors.New("invalid sort order")
	ErrInvalidPerPage = errors.New("invalid per_page")
	ErrInvalidPage    = errors.New("invalid page")
)

// SortField selects the attribute the merged result set is ordered by.
type SortField string

const (
	// SortName orders by repository name.
	SortName SortField = "name"

	// SortPopularity orders by star count.
	SortPopularity SortField = "popularity"

	// SortActivity orders by last-updated time.
	SortActivity SortField = "activity"
)

// ParseSortField converts a user-supplied value into a SortField.
// An empty string yields SortName.
func ParseSortField(s string) (SortField, error) {
	switch SortField(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortName:
		return SortName, nil
	case SortPopularity:
		return SortPopularity, nil
	case SortActivity:
		return SortActivity, nil
	default:
		return "", fmt.Errorf("%w: %q (want name, popularity or activity)", ErrInvalidSort, s)
	}
}

// SortOrder is the direction of the sort.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ParseSortOrder converts a user-supplied value into a SortOrder.
// An empty string yields OrderAsc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderAsc:
		return OrderAsc, nil
	case OrderDesc:
		return OrderDesc, nil
	default:
		return "", fmt.Errorf("%w: %q (want asc or desc)", ErrInvalidOrder, s)
	}
}

// Query is one search request. It is built once by NewQuery and never
// mutated afterwards; pass it by value.
type Query struct {
	Topic   string
	Term    string
	Sort    SortField
	Order   SortOrder
	PerPage int
	Page    int
}

// NewQuery validates the raw request parameters and fills in defaults.
// A zero perPage or page takes the default; negative values are rejected.
func NewQuery(topic, term, sort, order string, perPage, page int) (Query, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = DefaultTopic
	}
	if strings.ContainsAny(topic, " \t\n") {
		return Query{}, fmt.Errorf("%w: topic %q must be a single word", ErrInvalidTopic, topic)
	}

	sortField, err := ParseSortField(sort)
	if err != nil {
		return Query{}, err
	}

	sortOrder, err := ParseSortOrder(order)
	if err != nil {
		return Query{}, err
	}

	if perPage == 0 {
		perPage = DefaultPerPage
	}
	if perPage < 1 || perPage > MaxPerPage {
		return Query{}, fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidPerPage, perPage, MaxPerPage)
	}

	if page == 0 {
		page = DefaultPage
	}
	if page < 1 || page > MaxPage {
		return Query{}, fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidPage, page, MaxPage)
	}

	return Query{
		Topic:   topic,
		Term:    strings.TrimSpace(term),
		Sort:    sortField,
		Order:   sortOrder,
		PerPage: perPage,
		Page:    page,
	}, nil
}

// DefaultQuery returns the query used when no parameters are given.
func DefaultQuery() Query {
	q, _ := NewQuery("", "", "", "", 0, 0)
	return q
}
