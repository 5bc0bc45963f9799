package service

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest selects one page of a list. Zero values mean the defaults.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// Paginate cuts one page out of items.
func Paginate[T any](items []T, req PageRequest) ([]T, Pagination) {
	req = req.normalize()
	total := len(items)
	pages := (total + req.Limit - 1) / req.Limit

	// pages past the end are empty; multiplying first could overflow
	start := total
	if req.Page-1 < pages {
		start = (req.Page - 1) * req.Limit
	}
	end := min(start+req.Limit, total)

	return items[start:end], Pagination{
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    req.Page < pages,
		HasPrev:    req.Page > 1,
	}
}
