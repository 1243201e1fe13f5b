package httpapi

import (
	"net/http"

	"github.com/elvisdt/HT-MONITOR-BLE/internal/beacon"
	"github.com/elvisdt/HT-MONITOR-BLE/internal/utils"
)

// StatsProvider is satisfied by *beacon.Pipeline.
type StatsProvider interface {
	Stats() beacon.Stats
}

// ConnChecker reports broker connectivity; nil when forwarding is off.
type ConnChecker interface {
	IsConnected() bool
}

type statusHandlers struct {
	stats StatsProvider
	mqtt  ConnChecker
}

func NewMux(stats StatsProvider, mqtt ConnChecker) *http.ServeMux {
	h := &statusHandlers{stats: stats, mqtt: mqtt}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /stats", h.handleStats)
	return mux
}

func NewServer(addr string, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: requestLogger(mux),
	}
}

func (h *statusHandlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	mqttState := "disabled"
	if h.mqtt != nil {
		if !h.mqtt.IsConnected() {
			utils.WriteError(w, http.StatusServiceUnavailable, "mqtt not connected")
			return
		}
		mqttState = "connected"
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "mqtt": mqttState})
}

func (h *statusHandlers) handleStats(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, h.stats.Stats())
}
