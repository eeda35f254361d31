// Package docs holds the OpenAPI description of the search API served by gin-swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/repos": {
            "get": {
                "description": "Aggregates up to 500 repositories for a topic and returns one locally sorted page",
                "produces": ["application/json"],
                "tags": ["Repositories"],
                "summary": "List GitHub repositories",
                "parameters": [
                    {"type": "string", "default": "php", "description": "Topic", "name": "topic", "in": "query"},
                    {"type": "string", "description": "Search term matched against name and description", "name": "search", "in": "query"},
                    {"enum": ["name", "popularity", "activity"], "type": "string", "description": "Sort field", "name": "sort", "in": "query"},
                    {"enum": ["asc", "desc"], "type": "string", "description": "Sort order", "name": "order", "in": "query"},
                    {"type": "integer", "default": 10, "description": "Items per page", "name": "per_page", "in": "query"},
                    {"type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.ListRepositoriesResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {"type": "array", "items": {"$ref": "#/definitions/api.RepositoryResponse"}},
                "total": {"type": "integer"},
                "per_page": {"type": "integer"},
                "current_page": {"type": "integer"}
            }
        },
        "api.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"}
            }
        },
        "api.ListRepositoriesResponse": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/api.RepositoryResponse"}},
                "total": {"type": "integer"},
                "per_page": {"type": "integer"},
                "current_page": {"type": "integer"}
            }
        },
        "api.RepositoryResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer", "example": 123},
                "name": {"type": "string", "example": "Sample-Repo"},
                "full_name": {"type": "string", "example": "user/Sample-Repo"},
                "html_url": {"type": "string", "example": "https://github.com/user/Sample-Repo"},
                "language": {"type": "string", "example": "PHP"},
                "updated_at": {"type": "string", "example": "2024-03-14T08:48:37Z"},
                "pushed_at": {"type": "string", "example": "2024-03-13T16:22:57Z"},
                "stargazers_count": {"type": "integer", "example": 100}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "GitHub Repository API",
	Description:      "Topic search over GitHub repositories with server-side sorting and pagination.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
