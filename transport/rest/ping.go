package rest

import "net/http"

type pingHandler struct{}

func NewPingHandler() http.Handler {
	return &pingHandler{}
}

func (that *pingHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}
