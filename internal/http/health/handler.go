package health

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type response struct {
	OK      bool   `json:"ok"`
	Mode    string `json:"mode"`
	Driver  string `json:"driver"`
	DataDir string `json:"dataDir,omitempty"`
}

// Handler reports liveness together with the active storage backend.
func Handler(driver, dataDir string) http.HandlerFunc {
	resp := response{OK: true, Mode: driver + "-storage", Driver: driver, DataDir: dataDir}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}
