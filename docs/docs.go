// Package docs serves the OpenAPI description of the relay at /swagger.
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
    "securityDefinitions": {
        "AdminKey": {"type": "apiKey", "name": "X-Admin-Key", "in": "header"}
    },
    "paths": {
        "/healthz": {"get": {"summary": "Database liveness", "responses": {"200": {"description": "ok"}, "503": {"description": "DB_UNAVAILABLE"}}}},
        "/whatsapp/webhook": {
            "get": {"summary": "Gateway verification echo", "responses": {"200": {"description": "challenge"}}},
            "post": {"summary": "Inbound pilgrim message (JSON or form)", "consumes": ["application/json", "application/x-www-form-urlencoded"], "responses": {"200": {"description": "stored message"}, "422": {"description": "MISSING_FIELDS"}, "429": {"description": "RATE_LIMITED"}}}
        },
        "/api/messages": {"get": {"summary": "Recent messages", "parameters": [{"name": "limit", "in": "query", "type": "integer"}, {"name": "offset", "in": "query", "type": "integer"}], "responses": {"200": {"description": "messages"}}}},
        "/api/messages/by_phone/{phone}": {"get": {"summary": "Conversation with one sender", "parameters": [{"name": "phone", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "messages"}}}},
        "/api/reply": {"post": {"summary": "Send a staff reply", "security": [{"AdminKey": []}], "responses": {"200": {"description": "stored outbound message"}}}},
        "/api/ai/reply": {"post": {"summary": "Draft an AI reply", "security": [{"AdminKey": []}], "responses": {"200": {"description": "reply"}}}},
        "/api/tools/{name}": {"post": {"summary": "Run a tool directly", "security": [{"AdminKey": []}], "parameters": [{"name": "name", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "tool result"}, "400": {"description": "unknown_tool"}}}},
        "/api/tools/resolve_context": {"get": {"summary": "Zone, ETAs and nearby facilities for a sender", "parameters": [{"name": "phone", "in": "query", "required": true, "type": "string"}], "responses": {"200": {"description": "context"}}}},
        "/api/tools/feedback/list": {"get": {"summary": "Civic tickets", "responses": {"200": {"description": "tickets"}}}},
        "/api/tools/feedback/{id}": {"get": {"summary": "One civic ticket", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "ticket"}, "404": {"description": "feedback_not_found"}}}},
        "/api/tools/assignments": {"get": {"summary": "Ticket assignments", "responses": {"200": {"description": "assignments"}}}},
        "/api/agent/tools": {"get": {"summary": "Tool catalog with risk levels", "responses": {"200": {"description": "catalog"}}}},
        "/api/agent/intent_map": {"get": {"summary": "Tools suggested per intent", "responses": {"200": {"description": "intent map"}}}},
        "/api/agent/tools/invoke": {"post": {"summary": "Invoke a tool through the approval gate", "security": [{"AdminKey": []}], "responses": {"200": {"description": "ok, pending or error"}}}},
        "/api/admin/approvals": {"get": {"summary": "Approval queue", "security": [{"AdminKey": []}], "responses": {"200": {"description": "approvals"}}}},
        "/api/admin/approvals/{id}/decision": {"post": {"summary": "Approve or deny a parked call", "security": [{"AdminKey": []}], "responses": {"200": {"description": "decided approval"}, "404": {"description": "approval_not_found"}, "400": {"description": "already_decided"}}}},
        "/api/admin/zone_config": {
            "get": {"summary": "Zone ETA settings", "security": [{"AdminKey": []}], "responses": {"200": {"description": "zones"}}},
            "post": {"summary": "Upsert zone ETA settings", "security": [{"AdminKey": []}], "responses": {"200": {"description": "zone"}}}
        },
        "/api/admin/metrics": {"get": {"summary": "Message, intent and ticket counters", "security": [{"AdminKey": []}], "responses": {"200": {"description": "metrics"}}}},
        "/api/templates": {
            "get": {"summary": "Reply templates", "responses": {"200": {"description": "templates"}}},
            "post": {"summary": "Create a template", "security": [{"AdminKey": []}], "responses": {"200": {"description": "template"}}}
        },
        "/api/templates/{id}": {
            "put": {"summary": "Update a template", "security": [{"AdminKey": []}], "responses": {"200": {"description": "template"}, "404": {"description": "template_not_found"}}},
            "delete": {"summary": "Delete a template", "security": [{"AdminKey": []}], "responses": {"200": {"description": "deleted"}, "404": {"description": "template_not_found"}}}
        },
        "/ws": {"get": {"summary": "Realtime event stream (WebSocket)", "responses": {"101": {"description": "switching protocols"}}}}
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Simhastha Samwad Relay",
	Description:      "Pilgrim message relay, civic tickets and risk-gated agent tools",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
