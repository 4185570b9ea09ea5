// Package docs holds the swagger specification of the library api.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Service status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/StatusResponse"}}}
            }
        },
        "/v1/books": {
            "get": {
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "List or search books",
                "description": "Without query parameters all books are returned. Any of title, author, isbn, page or size switches to a paginated case-insensitive search.",
                "parameters": [
                    {"type": "string", "description": "title contains", "name": "title", "in": "query"},
                    {"type": "string", "description": "author contains", "name": "author", "in": "query"},
                    {"type": "string", "description": "isbn contains", "name": "isbn", "in": "query"},
                    {"type": "integer", "description": "zero-based page number", "name": "page", "in": "query"},
                    {"type": "integer", "description": "page size", "name": "size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/APIError"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "Create a book",
                "parameters": [
                    {"description": "book to create", "name": "book", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookDTO"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/v1/books/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "Get a book",
                "parameters": [{"type": "integer", "description": "book id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/APIError"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "Update the title and the author of a book",
                "parameters": [
                    {"type": "integer", "description": "book id", "name": "id", "in": "path", "required": true},
                    {"description": "new values", "name": "book", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookDTO"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/APIError"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "Delete a book",
                "parameters": [{"type": "integer", "description": "book id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/APIError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/v1/loans": {
            "get": {
                "produces": ["application/json"],
                "tags": ["loans"],
                "summary": "Search loans",
                "description": "Returns the loans of the book with the isbn OR of the customer.",
                "parameters": [
                    {"type": "string", "description": "isbn of the book", "name": "isbn", "in": "query"},
                    {"type": "string", "description": "customer name", "name": "customer", "in": "query"},
                    {"type": "integer", "description": "zero-based page number", "name": "page", "in": "query"},
                    {"type": "integer", "description": "page size", "name": "size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/APIError"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["loans"],
                "summary": "Borrow a book",
                "parameters": [
                    {"description": "isbn of the book and customer", "name": "loan", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/v1/loans/{id}": {
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["loans"],
                "summary": "Update the returned flag of a loan",
                "parameters": [
                    {"type": "integer", "description": "loan id", "name": "id", "in": "path", "required": true},
                    {"description": "returned flag", "name": "loan", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoanReturnedRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/APIError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "requestid": {"type": "string"},
                "status": {"type": "integer"},
                "message": {"type": "string"},
                "data": {}
            }
        },
        "APIResponse": {
            "type": "object",
            "properties": {
                "requestid": {"type": "string"},
                "status": {"type": "integer"},
                "message": {"type": "string"},
                "total": {"type": "integer"},
                "data": {}
            }
        },
        "BookDTO": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "author": {"type": "string"},
                "isbn": {"type": "string"}
            }
        },
        "LoanRequest": {
            "type": "object",
            "properties": {
                "isbn": {"type": "string"},
                "customer": {"type": "string"}
            }
        },
        "LoanReturnedRequest": {
            "type": "object",
            "properties": {
                "returned": {"type": "boolean"}
            }
        },
        "StatusResponse": {
            "type": "object",
            "properties": {
                "requestid": {"type": "string"},
                "status": {"type": "string"},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Library API",
	Description:      "Catalog of books and loans of books to customers.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
