// Package docs регистрирует описание API для Swagger UI
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/profile": {
            "get": {"tags": ["Profile"], "summary": "Профиль", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "409": {"description": "Онбординг не пройден"}}},
            "post": {"tags": ["Profile"], "summary": "Онбординг", "consumes": ["application/json"], "produces": ["application/json"], "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/app.OnboardingRequest"}}], "responses": {"201": {"description": "Created"}, "400": {"description": "Неверный запрос"}, "409": {"description": "Онбординг уже пройден"}}},
            "patch": {"tags": ["Profile"], "summary": "Изменить профиль", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/api/dashboard": {
            "get": {"tags": ["Profile"], "summary": "Главный экран", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/api/countdown": {
            "get": {"tags": ["Profile"], "summary": "Обратный отсчет", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/api/reset": {
            "post": {"tags": ["Profile"], "summary": "Сбросить все данные", "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/api.ConfirmRequest"}}], "responses": {"200": {"description": "OK"}, "400": {"description": "Нет подтверждения"}}}
        },
        "/api/progress": {
            "get": {"tags": ["Progress"], "summary": "Прогресс", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/api/weeks/{week}/read": {
            "post": {"tags": ["Progress"], "summary": "Отметить неделю прочитанной", "parameters": [{"type": "integer", "in": "path", "name": "week", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Неверная неделя"}}}
        },
        "/api/weeks/{week}/content": {
            "get": {"tags": ["Content"], "summary": "Руководство недели", "parameters": [{"type": "integer", "in": "path", "name": "week", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/weeks/{week}/content/refresh": {
            "post": {"tags": ["Content"], "summary": "Обновить руководство недели", "parameters": [{"type": "integer", "in": "path", "name": "week", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/milestones": {
            "get": {"tags": ["Milestones"], "summary": "Вехи", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/api/milestones/{id}/celebrate": {
            "post": {"tags": ["Milestones"], "summary": "Отметить веху", "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}, {"in": "body", "name": "request", "schema": {"$ref": "#/definitions/app.CelebrateRequest"}}], "responses": {"200": {"description": "OK"}, "404": {"description": "Неизвестная веха"}}}
        },
        "/api/contractions": {
            "get": {"tags": ["Contractions"], "summary": "Журнал сокращений", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/api/contractions/start": {
            "post": {"tags": ["Contractions"], "summary": "Начать замер", "responses": {"200": {"description": "OK"}}}
        },
        "/api/contractions/stop": {
            "post": {"tags": ["Contractions"], "summary": "Завершить замер", "responses": {"200": {"description": "OK"}}}
        },
        "/api/contractions/toggle": {
            "post": {"tags": ["Contractions"], "summary": "Старт или стоп замера", "responses": {"200": {"description": "OK"}}}
        },
        "/api/contractions/reset": {
            "post": {"tags": ["Contractions"], "summary": "Очистить журнал", "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/api.ConfirmRequest"}}], "responses": {"200": {"description": "OK"}, "400": {"description": "Нет подтверждения"}}}
        },
        "/api/contractions/share": {
            "get": {"tags": ["Contractions"], "summary": "Текстовая выгрузка журнала", "produces": ["text/plain"], "responses": {"200": {"description": "OK"}}}
        },
        "/api/checklist/{id}/toggle": {
            "post": {"tags": ["Checklist"], "summary": "Переключить пункт сумки", "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Неизвестный пункт"}}}
        }
    },
    "definitions": {
        "api.ConfirmRequest": {
            "type": "object",
            "properties": {"confirmed": {"type": "boolean"}}
        },
        "app.OnboardingRequest": {
            "type": "object",
            "properties": {
                "lmpDate": {"type": "string", "example": "2026-01-01"},
                "partnerName": {"type": "string"},
                "babyNickname": {"type": "string"}
            }
        },
        "app.CelebrateRequest": {
            "type": "object",
            "properties": {
                "note": {"type": "string"},
                "photo": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "DadGuide API",
	Description:      "API трекера схваток и прогресса будущего отца",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
