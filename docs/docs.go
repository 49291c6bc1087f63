// Package docs holds the OpenAPI description served under /swagger.
// Regenerate with `swag init -g cmd/server/main.go`.
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
        "/api/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Log in with email and password",
                "parameters": [
                    {"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.AuthResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/api/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.UserResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/api/auth/preferences": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Update UI preferences",
                "parameters": [
                    {"description": "Preferences", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.PreferencesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.UserResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/api/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Register a new user",
                "parameters": [
                    {"description": "New account", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.AuthResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/api/tasks": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "List tasks",
                "parameters": [
                    {"type": "string", "description": "all, completed or pending", "name": "status", "in": "query"},
                    {"type": "string", "description": "exact tag", "name": "tag", "in": "query"},
                    {"type": "string", "description": "order, createdAt, updatedAt, dueDate, priority or title", "name": "sortBy", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/handler.TaskResponse"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Create a task at the end of the list",
                "parameters": [
                    {"description": "Task", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.CreateTaskInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.TaskResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/api/tasks/analytics": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Task statistics",
                "parameters": [
                    {"type": "boolean", "description": "return all seven days of the weekly histogram", "name": "fill", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/analytics.Summary"}}
                }
            }
        },
        "/api/tasks/reorder": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "description": "Ids that do not belong to the caller are skipped silently.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Set the order of several tasks",
                "parameters": [
                    {"description": "New orders", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.ReorderRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.MessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/api/tasks/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Get a task",
                "parameters": [
                    {"type": "string", "description": "Task ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.TaskResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Delete a task",
                "parameters": [
                    {"type": "string", "description": "Task ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.MessageResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Update task fields",
                "parameters": [
                    {"type": "string", "description": "Task ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.UpdateTaskRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.TaskResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "analytics.DayCount": {
            "type": "object",
            "properties": {"count": {"type": "integer"}, "date": {"type": "string"}}
        },
        "analytics.Summary": {
            "type": "object",
            "properties": {
                "completedTasks": {"type": "integer"},
                "pendingTasks": {"type": "integer"},
                "tagStats": {"type": "array", "items": {"$ref": "#/definitions/analytics.TagCount"}},
                "totalTasks": {"type": "integer"},
                "weeklyTasks": {"type": "array", "items": {"$ref": "#/definitions/analytics.DayCount"}}
            }
        },
        "analytics.TagCount": {
            "type": "object",
            "properties": {"count": {"type": "integer"}, "tag": {"type": "string"}}
        },
        "handler.AuthResponse": {
            "type": "object",
            "properties": {"token": {"type": "string"}, "user": {"$ref": "#/definitions/handler.UserResponse"}}
        },
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "handler.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "handler.MessageResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "handler.PreferencesRequest": {
            "type": "object",
            "required": ["darkMode"],
            "properties": {"darkMode": {"type": "boolean"}}
        },
        "handler.RegisterRequest": {
            "type": "object",
            "required": ["email", "password", "username"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string", "minLength": 6}, "username": {"type": "string", "maxLength": 30, "minLength": 3}}
        },
        "handler.ReorderRequest": {
            "type": "object",
            "required": ["taskOrders"],
            "properties": {"taskOrders": {"type": "array", "items": {"$ref": "#/definitions/ordering.Placement"}}}
        },
        "handler.TaskResponse": {
            "type": "object",
            "properties": {
                "completed": {"type": "boolean"},
                "createdAt": {"type": "string"},
                "description": {"type": "string"},
                "dueDate": {"type": "string"},
                "id": {"type": "string"},
                "order": {"type": "integer"},
                "priority": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "title": {"type": "string"},
                "updatedAt": {"type": "string"},
                "user": {"type": "string"}
            }
        },
        "handler.UpdateTaskRequest": {
            "type": "object",
            "properties": {
                "completed": {"type": "boolean"},
                "description": {"type": "string"},
                "dueDate": {"type": "string"},
                "order": {"type": "integer"},
                "priority": {"type": "string", "enum": ["low", "medium", "high"]},
                "tags": {"type": "array", "items": {"type": "string"}},
                "title": {"type": "string"}
            }
        },
        "handler.UserResponse": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "id": {"type": "string"},
                "preferences": {"$ref": "#/definitions/model.Preferences"},
                "username": {"type": "string"}
            }
        },
        "model.Preferences": {
            "type": "object",
            "properties": {"darkMode": {"type": "boolean"}}
        },
        "ordering.Placement": {
            "type": "object",
            "properties": {"id": {"type": "string"}, "order": {"type": "integer"}}
        },
        "service.CreateTaskInput": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "description": {"type": "string", "maxLength": 1000},
                "dueDate": {"type": "string"},
                "priority": {"type": "string", "enum": ["low", "medium", "high"]},
                "tags": {"type": "array", "items": {"type": "string"}},
                "title": {"type": "string", "maxLength": 200}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Task Manager API",
	Description:      "Personal task management: tasks, manual ordering and statistics.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
