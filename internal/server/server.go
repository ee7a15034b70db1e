package server

import (
	"net/http"

	"github.com/sw33tLie/valuestream/internal/utils"
	"github.com/sw33tLie/valuestream/pkg/bridge"
	"github.com/sw33tLie/valuestream/pkg/storage"
)

// Server exposes the privileged gateway to unprivileged workers running in
// other processes.
type Server struct {
	Gateway  *bridge.Gateway
	DB       *storage.DB // optional; enables /api/zaps
	Username string
	Password string
}

func New(g *bridge.Gateway, db *storage.DB, user, pass string) *Server {
	return &Server{
		Gateway:  g,
		DB:       db,
		Username: user,
		Password: pass,
	}
}

// Handler returns the routes without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+bridge.BRIDGE_PATH, s.basicAuth(s.handleBridge))
	mux.HandleFunc("GET /api/origin", s.basicAuth(s.handleOrigin))
	mux.HandleFunc("GET /api/zaps", s.basicAuth(s.handleZaps))
	return mux
}

func (s *Server) Start(addr string) error {
	utils.Log.Infof("Starting bridge gateway on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
