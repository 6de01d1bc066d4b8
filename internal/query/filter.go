package query

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidFilter signals an unusable filter request (bad status/sort value,
// inverted date range, limit out of bounds).
var ErrInvalidFilter = errors.New("invalid filter")

type Status string

const (
	StatusAll    Status = "all"
	StatusRead   Status = "read"
	StatusUnread Status = "unread"
)

type Sort string

const (
	SortNewest Sort = "newest"
	SortOldest Sort = "oldest"
	SortType   Sort = "type"
)

// FilterSpec is the declarative filter request shared by the paginated and
// export retrieval paths. Zero values mean "not set".
type FilterSpec struct {
	Search   string
	Types    []string
	Status   Status
	DateFrom *time.Time
	DateTo   *time.Time
	SortBy   Sort
}

// Descriptor is the compiled, normalized form of a FilterSpec. It fully
// determines predicate and order; the store layer translates it to SQL.
type Descriptor struct {
	Search   string // lowercased substring match on message
	Types    []string
	Status   Status
	DateFrom *time.Time // inclusive
	DateTo   *time.Time // exclusive
	Sort     Sort
}

// Compile validates a FilterSpec and normalizes it into a Descriptor.
// Defaults: status=all, sortBy=newest.
func Compile(spec FilterSpec) (*Descriptor, error) {
	status := spec.Status
	if status == "" {
		status = StatusAll
	}
	switch status {
	case StatusAll, StatusRead, StatusUnread:
	default:
		return nil, errors.Join(ErrInvalidFilter, errors.New("unknown status "+string(status)))
	}

	sort := spec.SortBy
	if sort == "" {
		sort = SortNewest
	}
	switch sort {
	case SortNewest, SortOldest, SortType:
	default:
		return nil, errors.Join(ErrInvalidFilter, errors.New("unknown sort "+string(sort)))
	}

	if spec.DateFrom != nil && spec.DateTo != nil && spec.DateTo.Before(*spec.DateFrom) {
		return nil, errors.Join(ErrInvalidFilter, errors.New("dateTo before dateFrom"))
	}

	types := make([]string, 0, len(spec.Types))
	for _, t := range spec.Types {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}

	return &Descriptor{
		Search:   strings.ToLower(strings.TrimSpace(spec.Search)),
		Types:    types,
		Status:   status,
		DateFrom: spec.DateFrom,
		DateTo:   spec.DateTo,
		Sort:     sort,
	}, nil
}
