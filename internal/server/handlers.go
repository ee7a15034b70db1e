package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sw33tLie/valuestream/internal/utils"
	"github.com/sw33tLie/valuestream/pkg/bridge"
)

const maxBridgeBody = 1 << 20

func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request) {
	var msg bridge.Message
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBridgeBody)).Decode(&msg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	utils.Log.Debugf("[server] bridge call %s %s %s", r.Header.Get("X-Bridge-Call"), msg.Action, msg.URL)
	writeJSON(w, s.Gateway.Handle(r.Context(), msg))
}

func (s *Server) handleOrigin(w http.ResponseWriter, r *http.Request) {
	reply := s.Gateway.Handle(r.Context(), bridge.Message{Action: bridge.ActionGetOrigin})
	writeJSON(w, map[string]string{"origin": reply.Origin})
}

func (s *Server) handleZaps(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "history not available", http.StatusNotFound)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	zaps, err := s.DB.ListRecentZaps(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, zaps)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
