package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers the API documentation endpoints.
// - GET /swagger/index.html  -> Swagger UI loading the document below
// - GET /swagger/doc.json    -> OpenAPI 3 document
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", swaggerJSON)
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>hemohub - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

type apiRoute struct {
	method, path, summary string
	guarded                bool
}

var authRoutes = []apiRoute{
	{"post", "/register", "Register an account", false},
	{"post", "/login", "Log in; sets the token cookie", false},
	{"post", "/logout", "Revoke the current token", true},
	{"get", "/profile", "Current profile", true},
	{"put", "/profile", "Merge-update the profile", true},
}

var roleRoutes = map[string][]apiRoute{
	"donor": {
		{"get", "/dashboard", "Eligibility and appointment counts", true},
		{"get", "/hospitals", "Hospital directory", true},
		{"post", "/appointment", "Book an appointment", true},
		{"get", "/appointments", "Own appointments", true},
		{"get", "/appointment/:id", "One appointment", true},
		{"delete", "/appointment/:id", "Cancel an appointment", true},
	},
	"hospital": {
		{"get", "/dashboard", "Stock summary and pending work", true},
		{"post", "/stock", "Add a blood stock lot", true},
		{"get", "/stock", "Own stock", true},
		{"put", "/stock/:id", "Update a lot", true},
		{"delete", "/stock/:id", "Delete a lot", true},
		{"get", "/appointments", "Appointments booked at this hospital", true},
		{"put", "/appointment/:id/status", "Change appointment status", true},
		{"get", "/requests", "Requests addressed to this hospital", true},
		{"put", "/request/:id/status", "Change request status", true},
		{"post", "/license", "Upload the license document (multipart field license)", true},
		{"get", "/license", "Presigned link to the license document", true},
	},
	"recipient": {
		{"get", "/dashboard", "Request counts", true},
		{"get", "/hospitals", "Hospital directory", true},
		{"post", "/request", "Submit a blood request", true},
		{"get", "/requests", "Own requests", true},
		{"delete", "/request/:id", "Delete a request", true},
	},
	"admin": {
		{"get", "/dashboard", "Entity counts and last stock sweep", true},
		{"get", "/users", "Donors, hospitals and recipients", true},
		{"delete", "/delete/:type/:id", "Delete a donor, hospital or recipient", true},
		{"get", "/appointments", "All appointments", true},
		{"put", "/appointment/:id/status", "Change appointment status", true},
		{"get", "/stock", "All stock", true},
		{"put", "/stock/:id", "Update a lot", true},
		{"get", "/requests", "All requests", true},
		{"put", "/request/:id/status", "Change request status", true},
		{"get", "/deletelogs", "Delete log (includeRecovered=true for all)", true},
		{"get", "/deletelogs/:id", "One delete-log entry", true},
		{"post", "/deletelogs/:id/restore", "Restore a deleted document", true},
		{"get", "/hospitals/:id/license", "Presigned link to a hospital's license", true},
		{"post", "/jobs/stock-sweep", "Run the stock expiry sweep now", true},
	},
}

var pathParam = regexp.MustCompile(`:([a-z]+)`)

func buildSwagger() []byte {
	paths := map[string]map[string]interface{}{}
	add := func(tag string, rt apiRoute) {
		p := pathParam.ReplaceAllString(rt.path, "{$1}")
		if paths[p] == nil {
			paths[p] = map[string]interface{}{}
		}
		responses := map[string]interface{}{"200": map[string]string{"description": "success envelope"}}
		if rt.guarded {
			responses["401"] = map[string]string{"description": "missing, invalid or revoked token"}
		}
		op := map[string]interface{}{"summary": rt.summary, "tags": []string{tag}, "responses": responses}
		if rt.guarded {
			op["security"] = []map[string][]string{{"bearer": {}}, {"cookie": {}}}
		}
		var params []map[string]interface{}
		for _, m := range pathParam.FindAllStringSubmatch(rt.path, -1) {
			params = append(params, map[string]interface{}{"name": m[1], "in": "path", "required": true, "schema": map[string]string{"type": "string"}})
		}
		if params != nil {
			op["parameters"] = params
		}
		paths[p][rt.method] = op
	}
	for role, routes := range roleRoutes {
		for _, rt := range append(append([]apiRoute{}, authRoutes...), routes...) {
			rt.path = "/api/" + role + rt.path
			add(role, rt)
		}
	}
	for _, rt := range []apiRoute{
		{"get", "/health", "Liveness check", false},
		{"get", "/ready", "Readiness check", false},
		{"get", "/metrics", "Prometheus metrics", false},
	} {
		add(strings.TrimPrefix(rt.path, "/"), rt)
	}

	doc := map[string]interface{}{
		"openapi": "3.0.0",
		"info":    map[string]string{"title": "hemohub", "version": "v1.0.0"},
		"paths":   paths,
		"components": map[string]interface{}{
			"securitySchemes": map[string]interface{}{
				"bearer": map[string]string{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
				"cookie": map[string]string{"type": "apiKey", "in": "cookie", "name": "token"},
			},
		},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return b
}

var swaggerJSON = buildSwagger()
