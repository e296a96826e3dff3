package response

// PageResponse is the standard wrapper for list endpoints.
type PageResponse[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPageResponse converts one page of domain values with convert.
// Items is never null in JSON.
func NewPageResponse[S, T any](src []S, convert func(S) T, page, pageSize, total int) PageResponse[T] {
	items := make([]T, len(src))
	for i, v := range src {
		items[i] = convert(v)
	}

	pages := 0
	if pageSize > 0 {
		pages = (total + pageSize - 1) / pageSize
	}

	return PageResponse[T]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: pages,
	}
}
