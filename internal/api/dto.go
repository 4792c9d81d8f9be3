package api

import (
	"github.com/starford/nbsite/internal/models"
	"github.com/starford/nbsite/internal/notebookservice"
)

// NotebookDetail is the full notebook response type (aliased from the domain layer).
type NotebookDetail = notebookservice.NotebookDetail

// NotebookListResponse wraps paginated notebook listings.
type NotebookListResponse struct {
	Notebooks []models.Notebook `json:"notebooks" validate:"required"`
	Total     int               `json:"total" example:"42" validate:"required"`
}

// TagsResponse lists the catalog tag set.
type TagsResponse struct {
	Tags []string `json:"tags" example:"continuous,discrete" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Filename string `json:"filename" example:"normal_dist.py" validate:"required"`
	Title    string `json:"title" example:"Normal Distribution" validate:"required"`
	Snippet  string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}
