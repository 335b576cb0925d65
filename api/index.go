package handler

import (
	"net/http"

	"ppm-backend/bootstrap"
)

var serve http.Handler

func init() {
	app, err := bootstrap.New()
	if err != nil {
		panic("app create: " + err.Error())
	}
	serve = app
}

// Handler is the serverless entry point. All requests are rewritten here.
func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()
	serve.ServeHTTP(w, r)
}
