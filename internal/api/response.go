package api

import (
	"time"

	"github.com/Sternrassler/topic-repo-search/pkg/search"
)

// RepositoryResponse is the client-facing view of a repository.
type RepositoryResponse struct {
	ID              int64  `json:"id" example:"123"`
	Name            string `json:"name" example:"Sample-Repo"`
	FullName        string `json:"full_name" example:"user/Sample-Repo"`
	HTMLURL         string `json:"html_url" example:"https://github.com/user/Sample-Repo"`
	Language        string `json:"language" example:"PHP"`
	UpdatedAt       string `json:"updated_at" example:"2024-03-14T08:48:37Z"`
	PushedAt        string `json:"pushed_at" example:"2024-03-13T16:22:57Z"`
	StargazersCount int    `json:"stargazers_count" example:"100"`
}

// ListRepositoriesResponse is the body of a successful search.
type ListRepositoriesResponse struct {
	Data        []RepositoryResponse `json:"data"`
	Total       int                  `json:"total"`
	PerPage     int                  `json:"per_page"`
	CurrentPage int                  `json:"current_page"`
}

// ErrorResponse is the body of a search that produced no data.
type ErrorResponse struct {
	Error       bool                 `json:"error"`
	Message     string               `json:"message"`
	Data        []RepositoryResponse `json:"data"`
	Total       int                  `json:"total"`
	PerPage     int                  `json:"per_page"`
	CurrentPage int                  `json:"current_page"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
}

func newListResponse(result *search.Result) ListRepositoriesResponse {
	data := make([]RepositoryResponse, 0, len(result.Data))
	for _, repo := range result.Data {
		data = append(data, RepositoryResponse{
			ID:              repo.ID,
			Name:            repo.Name,
			FullName:        repo.FullName,
			HTMLURL:         repo.HTMLURL,
			Language:        repo.Language,
			UpdatedAt:       formatTime(repo.UpdatedAt),
			PushedAt:        formatTime(repo.PushedAt),
			StargazersCount: repo.Stars,
		})
	}

	return ListRepositoriesResponse{
		Data:        data,
		Total:       result.Total,
		PerPage:     result.PerPage,
		CurrentPage: result.CurrentPage,
	}
}

func newErrorResponse(message string) ErrorResponse {
	return ErrorResponse{
		Error:   true,
		Message: message,
		Data:    []RepositoryResponse{},
	}
}

// formatTime renders t the way GitHub does; the zero time becomes "".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
