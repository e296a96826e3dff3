package request

// ByIDRequest is a common struct for endpoints that take a numeric ID path parameter.
type ByIDRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// ByUUIDRequest is used by endpoints keyed by a UUID (users).
type ByUUIDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// ListParams holds the common pagination and sort query parameters.
type ListParams struct {
	Page      int    `form:"page,default=1" binding:"min=1"`
	PageSize  int    `form:"page_size,default=20" binding:"min=1,max=100"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc ASC DESC"`
}
