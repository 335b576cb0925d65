package bootstrap

import (
	"net/http"

	"ppm-backend/internal/config"
	"ppm-backend/internal/interfaces/router"
)

// New builds the scheduling API as a plain http.Handler for serverless hosts,
// which cannot import internal packages directly.
func New() (http.Handler, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	app, _, _, err := router.CreateApp(cfg)
	if err != nil {
		return nil, err
	}
	return router.Handler(app), nil
}
