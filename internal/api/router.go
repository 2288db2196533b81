package api

import (
	"net/http"

	"network-design-service/internal/api/handlers"
	"network-design-service/internal/ports"
	"network-design-service/internal/services"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(designer *services.NetworkDesigner, store ports.RunStore) http.Handler {
	mux := http.NewServeMux()

	runHandler := &handlers.RunHandler{Designer: designer, Store: store}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/runs", runHandler.Runs)
	mux.HandleFunc("/runs/", runHandler.Get)

	return loggingMiddleware(mux)
}
