package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Lesson Scheduler API",
        "description": "Places course lessons into students' weekly availability.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Availability", "description": "Recurring weekly availability per student and course"},
        {"name": "Schedules", "description": "Lesson placement, preview, export and rebuild"}
    ],
    "parameters": {
        "studentId": {"name": "studentId", "in": "path", "required": true, "type": "string"},
        "courseId": {"name": "courseId", "in": "path", "required": true, "type": "string"}
    },
    "paths": {
        "/students/{studentId}/courses/{courseId}/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "List availability windows",
                "parameters": [{"$ref": "#/parameters/studentId"}, {"$ref": "#/parameters/courseId"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Course not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Availability"],
                "summary": "Replace availability windows",
                "description": "Stored schedules are not regenerated.",
                "parameters": [
                    {"$ref": "#/parameters/studentId"},
                    {"$ref": "#/parameters/courseId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplaceAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid window", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Overlapping windows", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/courses/{courseId}/schedule": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get the stored lesson schedule",
                "parameters": [{"$ref": "#/parameters/studentId"}, {"$ref": "#/parameters/courseId"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ScheduleEnvelope"}},
                    "404": {"description": "No stored schedule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Schedules"],
                "summary": "Generate and store a lesson schedule",
                "parameters": [{"$ref": "#/parameters/studentId"}, {"$ref": "#/parameters/courseId"}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ScheduleEnvelope"}},
                    "409": {"description": "Generation already running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "NO_AVAILABILITY, UNASSIGNABLE_LESSON, OVERLAPPING_WINDOWS or SCHEDULE_COMPLEXITY_EXCEEDED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Schedules"],
                "summary": "Delete the stored lesson schedule",
                "parameters": [{"$ref": "#/parameters/studentId"}, {"$ref": "#/parameters/courseId"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/courses/{courseId}/schedule/preview": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Preview a lesson schedule without storing it",
                "parameters": [{"$ref": "#/parameters/studentId"}, {"$ref": "#/parameters/courseId"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ScheduleEnvelope"}},
                    "422": {"description": "Schedule cannot be built", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/courses/{courseId}/schedule/export": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Download the stored lesson schedule",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"$ref": "#/parameters/studentId"},
                    {"$ref": "#/parameters/courseId"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "404": {"description": "No stored schedule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseId}/schedules/rebuild": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Regenerate every student schedule of a course",
                "parameters": [{"$ref": "#/parameters/courseId"}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Admin only", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "AvailabilityWindow": {
            "type": "object",
            "properties": {
                "weekday": {"type": "integer", "minimum": 0, "maximum": 6, "description": "0 = Sunday"},
                "startTime": {"type": "string", "example": "09:00"},
                "endTime": {"type": "string", "example": "11:00"}
            },
            "required": ["weekday", "startTime", "endTime"]
        },
        "ReplaceAvailabilityRequest": {
            "type": "object",
            "properties": {
                "windows": {"type": "array", "items": {"$ref": "#/definitions/AvailabilityWindow"}}
            }
        },
        "ScheduledLesson": {
            "type": "object",
            "properties": {
                "lessonId": {"type": "string"},
                "title": {"type": "string"},
                "position": {"type": "integer"},
                "date": {"type": "string", "format": "date"},
                "weekday": {"type": "integer"},
                "startTime": {"type": "string"},
                "endTime": {"type": "string"},
                "durationMinutes": {"type": "integer"}
            }
        },
        "StudentSchedule": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "courseId": {"type": "string"},
                "courseStart": {"type": "string", "format": "date"},
                "courseEnd": {"type": "string", "format": "date"},
                "persisted": {"type": "boolean"},
                "generatedAt": {"type": "string", "format": "date-time"},
                "lessons": {"type": "array", "items": {"$ref": "#/definitions/ScheduledLesson"}}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        },
        "ScheduleEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/StudentSchedule"},
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
