package server

import (
	"encoding/json"
	"log"
	"net/http"
)

// ReloadResponse is the body of the /reload endpoint in catalog mode.
type ReloadResponse struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message,omitempty"`
	ReloadedAPIs []string `json:"reloaded_apis,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// HandleHealth answers health checks.
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		response := map[string]any{
			"status":  "healthy",
			"service": "mcpgen",
		}
		if err := json.NewEncoder(w).Encode(response); err != nil {
			log.Printf("Failed to encode health response: %v", err)
		}
	}
}

// HandleReload triggers a catalog reload and reports which endpoints were
// remounted.
func HandleReload(reloadFunc func() ([]string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		reloaded, err := reloadFunc()
		response := ReloadResponse{
			Success:      err == nil,
			ReloadedAPIs: reloaded,
		}
		if err != nil {
			response.Error = err.Error()
			log.Printf("Reload failed: %v", err)
		} else {
			log.Printf("Successfully reloaded %d APIs: %v", len(reloaded), reloaded)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			log.Printf("Failed to encode reload response: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}
}
