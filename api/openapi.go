package api

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed openapi.json
var openAPIDoc []byte

// OpenAPIDoc is the machine readable description of the HTTP API.
func OpenAPIDoc() []byte {
	return openAPIDoc
}

func serveOpenAPI(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", openAPIDoc)
}

// RegisterDocs exposes the OpenAPI document at /openapi.json.
func RegisterDocs(router gin.IRouter) {
	router.GET("/openapi.json", serveOpenAPI)
}
