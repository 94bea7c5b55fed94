package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/retype/internal/session"
)

// NewRouter exposes the session over HTTP
func NewRouter(s *session.Session) *mux.Router {
	h := &Handler{s: s}
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")

	r.HandleFunc("/api/identity", h.GetIdentity).Methods("GET")
	r.HandleFunc("/api/identity/access-code", h.RedeemAccessCode).Methods("POST")

	r.HandleFunc("/api/content", h.GetContent).Methods("GET")
	r.HandleFunc("/api/content/{kind}/{id}/complete", h.CompleteItem).Methods("POST")

	r.HandleFunc("/api/stats", h.GetStats).Methods("GET")
	r.HandleFunc("/api/stats/today", h.GetToday).Methods("GET")
	r.HandleFunc("/api/stats/total", h.GetTotal).Methods("GET")
	r.HandleFunc("/api/stats/weekly", h.GetWeekly).Methods("GET")

	r.HandleFunc("/api/sessions", h.CreateSession).Methods("POST")
	return r
}
