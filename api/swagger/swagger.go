// Package swagger registers the hand-maintained OpenAPI document served at /docs.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Lesson Planner API",
        "description": "Login-gated lesson scheduling with role based access and an audit trail.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": ["http"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Login and session identity"},
        {"name": "Users", "description": "Account management"},
        {"name": "LessonPlans", "description": "Lesson scheduling"},
        {"name": "Audit", "description": "Audit trail"},
        {"name": "Dashboard", "description": "Admin overview"}
    ],
    "paths": {
        "/health": {
            "get": {"summary": "Liveness check", "responses": {"200": {"description": "OK"}}}
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {"200": {"description": "Ready"}, "503": {"description": "Database unreachable"}}
            }
        },
        "/api/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange credentials for a session token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LoginResponse"}},
                    "400": {"description": "Missing fields", "schema": {"$ref": "#/definitions/Error"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/api/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current session identity",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/UserInfo"}}}
            }
        },
        "/api/me/password": {
            "post": {
                "tags": ["Auth"],
                "summary": "Change own password",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangePasswordRequest"}}
                ],
                "responses": {"204": {"description": "Changed"}, "401": {"description": "Wrong password", "schema": {"$ref": "#/definitions/Error"}}}
            }
        },
        "/api/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List users",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/User"}}}}
            },
            "post": {
                "tags": ["Users"],
                "summary": "Create user (admin)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateUserRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/User"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/Error"}},
                    "409": {"description": "Username taken", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/api/users/{id}": {
            "delete": {
                "tags": ["Users"],
                "summary": "Remove user (admin)",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Removed"}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/Error"}}}
            }
        },
        "/api/users/{id}/lesson-plans": {
            "get": {
                "tags": ["Users"],
                "summary": "Lessons assigned to a user",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "upcoming", "in": "query", "type": "boolean"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/LessonPlan"}}}}
            }
        },
        "/api/lesson-plans": {
            "get": {
                "tags": ["LessonPlans"],
                "summary": "List all lessons",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/LessonPlan"}}}}
            },
            "post": {
                "tags": ["LessonPlans"],
                "summary": "Schedule a lesson",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLessonPlanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/LessonPlan"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/api/lesson-plans/mine": {
            "get": {
                "tags": ["LessonPlans"],
                "summary": "Lessons assigned to the caller",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "upcoming", "in": "query", "type": "boolean"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/LessonPlan"}}}}
            }
        },
        "/api/lesson-plans/export": {
            "get": {
                "tags": ["LessonPlans"],
                "summary": "Export the schedule",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/api/lesson-plans/{id}": {
            "get": {
                "tags": ["LessonPlans"],
                "summary": "Get a lesson",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/LessonPlan"}}}
            },
            "put": {
                "tags": ["LessonPlans"],
                "summary": "Update a lesson",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateLessonPlanRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/LessonPlan"}}}
            }
        },
        "/api/lesson-plans/{id}/assignees": {
            "put": {
                "tags": ["LessonPlans"],
                "summary": "Replace lesson assignees",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignLessonPlanRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/LessonPlan"}}}
            }
        },
        "/api/logs": {
            "get": {
                "tags": ["Audit"],
                "summary": "Recent audit entries, newest first (admin)",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "limit", "in": "query", "type": "integer"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/AuditLog"}}}}
            }
        },
        "/api/logs/export": {
            "get": {
                "tags": ["Audit"],
                "summary": "Export the audit trail (admin)",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/api/dashboard/stats": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Admin overview counters",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/DashboardStats"}}}
            }
        }
    },
    "definitions": {
        "Error": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}},
            "required": ["username", "password"]
        },
        "UserInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "role": {"type": "string", "enum": ["admin", "editor", "viewer"]}
            }
        },
        "LoginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/UserInfo"},
                "expires_at": {"type": "string", "format": "date-time"}
            }
        },
        "ChangePasswordRequest": {
            "type": "object",
            "properties": {"old_password": {"type": "string"}, "new_password": {"type": "string"}},
            "required": ["old_password", "new_password"]
        },
        "User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "CreateUserRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["admin", "editor", "viewer"]},
                "email": {"type": "string"}
            },
            "required": ["username", "password", "role"]
        },
        "LessonPlan": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "date": {"type": "string", "example": "2024-06-01"},
                "time": {"type": "string", "example": "09:00"},
                "duration": {"type": "integer"},
                "start": {"type": "string", "example": "2024-06-01T09:00:00"},
                "end": {"type": "string", "example": "2024-06-01T10:00:00"},
                "created_by": {"type": "string"},
                "assigned_users": {"type": "array", "items": {"type": "string"}},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "CreateLessonPlanRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "date": {"type": "string"},
                "time": {"type": "string"},
                "duration": {"type": "integer"},
                "assigned_users": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["title", "date", "time", "duration"]
        },
        "UpdateLessonPlanRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "date": {"type": "string"},
                "time": {"type": "string"},
                "duration": {"type": "integer"}
            }
        },
        "AssignLessonPlanRequest": {
            "type": "object",
            "properties": {"user_ids": {"type": "array", "items": {"type": "string"}}}
        },
        "AuditLog": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "event_type": {"type": "string"},
                "action": {"type": "string"},
                "user_id": {"type": "string"},
                "username": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"}
            }
        },
        "DashboardStats": {
            "type": "object",
            "properties": {
                "active_users": {"type": "integer"},
                "total_logins": {"type": "integer"},
                "lesson_plans": {"type": "integer"},
                "upcoming_lessons": {"type": "integer"},
                "generated_at": {"type": "string", "format": "date-time"}
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
