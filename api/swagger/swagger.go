package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Civic Archive API",
        "description": "Upload, tag, search and download civic documents and media.",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Login and token lifecycle"},
        {"name": "Archive", "description": "Entry ingestion, retrieval and updates"},
        {"name": "Tags", "description": "Tag listing and search"},
        {"name": "Community", "description": "Comments and bookmarks"},
        {"name": "Export", "description": "Administrative exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange credentials for tokens",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "Tokens", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "responses": {"200": {"description": "Tokens"}, "401": {"description": "Invalid token"}}
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke a refresh token",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Logged out"}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "User"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/archive/": {
            "get": {
                "tags": ["Archive"],
                "summary": "List entries",
                "parameters": [
                    {"in": "query", "name": "limit", "type": "integer"},
                    {"in": "query", "name": "offset", "type": "integer"}
                ],
                "responses": {"200": {"description": "Paginated entries", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/archive/upload/": {
            "post": {
                "tags": ["Archive"],
                "summary": "Upload an entry",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"in": "formData", "name": "file", "type": "file", "required": true},
                    {"in": "formData", "name": "location", "type": "string", "required": true},
                    {"in": "formData", "name": "zip_code", "type": "string", "required": true},
                    {"in": "formData", "name": "link", "type": "string", "required": true},
                    {"in": "formData", "name": "tags", "type": "string", "required": true, "description": "comma separated"},
                    {"in": "formData", "name": "address", "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Entry"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "File too large"}
                }
            }
        },
        "/archive/upload/{id}": {
            "get": {
                "tags": ["Archive"],
                "summary": "Get an entry",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "Entry", "schema": {"$ref": "#/definitions/Entry"}}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Archive"],
                "summary": "Replace an entry",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "Entry"}, "400": {"description": "Owner locked"}, "403": {"description": "Forbidden"}, "404": {"description": "Not found"}}
            },
            "patch": {
                "tags": ["Archive"],
                "summary": "Partially update an entry",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "Entry"}, "400": {"description": "Owner locked"}, "403": {"description": "Forbidden"}, "404": {"description": "Not found"}}
            },
            "delete": {
                "tags": ["Archive"],
                "summary": "Delete an entry",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"204": {"description": "Deleted"}, "404": {"description": "Not found"}, "500": {"description": "Delete failed"}}
            }
        },
        "/archive/upload/download/{id}": {
            "get": {
                "tags": ["Archive"],
                "summary": "Download the stored file",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "query", "name": "token", "type": "string"}
                ],
                "responses": {"200": {"description": "File stream"}, "401": {"description": "Missing or expired token"}, "404": {"description": "Not found"}}
            }
        },
        "/archive/upload/thumbnail/{id}": {
            "get": {
                "tags": ["Archive"],
                "summary": "Download the image preview",
                "produces": ["image/jpeg"],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "Preview"}, "404": {"description": "No preview"}}
            }
        },
        "/archive/uploads/tags/": {
            "get": {
                "tags": ["Tags"],
                "summary": "List tags",
                "responses": {"200": {"description": "Tags"}}
            }
        },
        "/archive/upload/tags/search/": {
            "post": {
                "tags": ["Tags"],
                "summary": "Search entries by tag",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/TagSearchRequest"}}],
                "responses": {"200": {"description": "Entries keyed by term with a search_results aggregate"}}
            }
        },
        "/archive/upload/{id}/comments": {
            "get": {
                "tags": ["Community"],
                "summary": "List comments on an entry",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "Comments"}}
            },
            "post": {
                "tags": ["Community"],
                "summary": "Comment on an entry",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"201": {"description": "Created"}, "404": {"description": "Entry not found"}}
            }
        },
        "/archive/upload/comments/{id}": {
            "delete": {
                "tags": ["Community"],
                "summary": "Delete a comment",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"204": {"description": "Deleted"}, "403": {"description": "Forbidden"}}
            }
        },
        "/archive/upload/bookmark/create/": {
            "post": {
                "tags": ["Community"],
                "summary": "Bookmark an entry",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Already bookmarked"}}
            }
        },
        "/archive/upload/bookmark/{id}/": {
            "get": {
                "tags": ["Community"],
                "summary": "Get a bookmark",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "Bookmark"}, "404": {"description": "Not found"}}
            },
            "delete": {
                "tags": ["Community"],
                "summary": "Delete a bookmark",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/archive/upload/bookmarks/": {
            "get": {
                "tags": ["Community"],
                "summary": "List the caller's bookmarks",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Bookmarks"}}
            }
        },
        "/archive/export": {
            "get": {
                "tags": ["Export"],
                "summary": "Export entries as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]},
                    {"in": "query", "name": "limit", "type": "integer"}
                ],
                "responses": {"200": {"description": "Export file"}, "403": {"description": "Admin only"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "TagSearchRequest": {
            "type": "object",
            "required": ["search_tag"],
            "properties": {
                "search_tag": {"type": "string", "description": "comma separated terms"}
            }
        },
        "Location": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "city": {"type": "string"},
                "zip_code": {"type": "string"},
                "address": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"}
            }
        },
        "Entry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user": {"type": "string"},
                "original_name": {"type": "string"},
                "mime_type": {"type": "string"},
                "size_bytes": {"type": "integer"},
                "category": {"type": "string"},
                "location": {"$ref": "#/definitions/Location"},
                "link": {"type": "object", "properties": {"id": {"type": "string"}, "url": {"type": "string"}}},
                "tags": {"type": "array", "items": {"type": "object", "properties": {"id": {"type": "string"}, "name": {"type": "string"}, "slug": {"type": "string"}}}},
                "has_thumbnail": {"type": "boolean"},
                "download_url": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "limit": {"type": "integer"},
                "offset": {"type": "integer"},
                "count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
