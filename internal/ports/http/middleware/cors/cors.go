package cors

import (
	"net/http"

	"github.com/rs/cors"
)

const preflightMaxAge = 600

// AddCorsPolicy lets the frontend origins call the api. Without allowed
// origins every origin is accepted.
func AddCorsPolicy(handler http.Handler, allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Session-ID"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           preflightMaxAge,
	})

	return c.Handler(handler)
}
