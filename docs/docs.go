// Package docs is generated by swaggo/swag. Regenerate with `swag init -g cmd/server/main.go`.
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
        "/sessions": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Sessions"
                ],
                "summary": "Start a session",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/sessions/current": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Sessions"
                ],
                "summary": "Get the current session",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/sessions/current/end": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Sessions"
                ],
                "summary": "End the current session",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/sessions/current/attempts": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Sessions"
                ],
                "summary": "Record an answer",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/sessions/current/visits": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Sessions"
                ],
                "summary": "Record a visit",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/sessions/current/highlights": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Sessions"
                ],
                "summary": "Record a highlight",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/sessions/current/resets": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Sessions"
                ],
                "summary": "Reset a question",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/statistics": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Statistics"
                ],
                "summary": "Get statistics",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Statistics"
                ],
                "summary": "Reset statistics",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/statistics/clean": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Statistics"
                ],
                "summary": "Clean old statistics",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/statistics/export": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Export"
                ],
                "summary": "Export statistics",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/exams/{examCode}/questions/{questionNumber}/status": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Statistics"
                ],
                "summary": "Question status",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "examCode",
                        "name": "examCode",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "questionNumber",
                        "name": "questionNumber",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/favorites": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Favorites"
                ],
                "summary": "Get favorites",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Favorites"
                ],
                "summary": "Reset favorites",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/favorites/export": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Export"
                ],
                "summary": "Export favorites",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/favorites/import": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Export"
                ],
                "summary": "Import favorites",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/favorites/{examCode}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Favorites"
                ],
                "summary": "Query favorites of an exam",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "examCode",
                        "name": "examCode",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/favorites/{examCode}/{questionNumber}/favorite": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Favorites"
                ],
                "summary": "Toggle favorite",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "examCode",
                        "name": "examCode",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "questionNumber",
                        "name": "questionNumber",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/favorites/{examCode}/{questionNumber}/note": {
            "put": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Favorites"
                ],
                "summary": "Set note",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "examCode",
                        "name": "examCode",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "questionNumber",
                        "name": "questionNumber",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/favorites/{examCode}/{questionNumber}/category": {
            "put": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Favorites"
                ],
                "summary": "Set category",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "examCode",
                        "name": "examCode",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "questionNumber",
                        "name": "questionNumber",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/categories": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Categories"
                ],
                "summary": "List categories",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            },
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Categories"
                ],
                "summary": "Create a category",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/categories/{name}": {
            "delete": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Categories"
                ],
                "summary": "Delete a category",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "name",
                        "name": "name",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/resume": {
            "delete": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Resume"
                ],
                "summary": "Reset resume positions",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/resume/{examCode}": {
            "put": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Resume"
                ],
                "summary": "Save resume position",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "examCode",
                        "name": "examCode",
                        "in": "path",
                        "required": true
                    }
                ]
            },
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Resume"
                ],
                "summary": "Get resume position",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "examCode",
                        "name": "examCode",
                        "in": "path",
                        "required": true
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Resume"
                ],
                "summary": "Clear resume position",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "examCode",
                        "name": "examCode",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Exams Viewer statistics API",
	Description:      "Study sessions, statistics, favorites and resume positions for the exam viewer.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
