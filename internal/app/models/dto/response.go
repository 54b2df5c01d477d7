package dto

import "time"

// MessageResponse represents a standard success response carrying only a message
type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

// StatusMessageResponse is returned by endpoints that also report a status word.
type StatusMessageResponse struct {
	Message string `json:"message" example:"Logged out"`
	Status  string `json:"status" example:"success"`
}

// APIResponse wraps list endpoints that carry metadata next to the payload.
type APIResponse struct {
	Success   bool        `json:"success" example:"true"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewAPIResponse creates a successful APIResponse.
func NewAPIResponse(data interface{}) APIResponse {
	return APIResponse{Success: true, Data: data, Timestamp: time.Now()}
}

// PaginationInfo describes the page returned by a paginated endpoint.
type PaginationInfo struct {
	CurrentPage int   `json:"currentPage" example:"1"`
	TotalPages  int   `json:"totalPages" example:"4"`
	PageSize    int   `json:"pageSize" example:"10"`
	TotalItems  int64 `json:"totalItems" example:"37"`
}

// PaginatedResponse represents a paginated list with metadata
type PaginatedResponse struct {
	Items      interface{}    `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}
