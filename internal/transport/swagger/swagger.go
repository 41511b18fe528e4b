package swagger

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Handler serves the swagger UI against the OpenAPI document exposed at
// the site root. The document itself lives in api/openapi.yml and carries
// example create/update payloads for the transactions API.
func Handler() http.Handler {
	return httpSwagger.Handler(
		httpSwagger.URL("/openapi.yml"),
	)
}
