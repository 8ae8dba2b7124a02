package invoke

import (
	log "github.com/mgutz/logxi/v1"
	"io"
	"io/ioutil"
	"net/http"
)

const maxRequestBytes = 64 * 1024

func NewHTTPHandler(invoker *Invoker) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/scale", &scaleHandler{invoker: invoker})
	mux.HandleFunc("/health", func(rw http.ResponseWriter, req *http.Request) {
		respondText(rw, http.StatusOK, "ok")
	})
	return mux
}

type scaleHandler struct {
	invoker *Invoker
}

func (h *scaleHandler) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		rw.Header().Set("Allow", http.MethodPost)
		respondText(rw, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := ioutil.ReadAll(io.LimitReader(req.Body, maxRequestBytes))
	if err != nil {
		respondText(rw, http.StatusBadRequest, "unable to read request body")
		return
	}

	scaleReq, err := ParseScaleRequest(body)
	if err != nil {
		respondText(rw, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.invoker.Invoke(req.Context(), scaleReq)
	if err != nil {
		respondText(rw, http.StatusInternalServerError, err.Error())
		return
	}
	respondText(rw, http.StatusOK, msg)
}

func respondText(rw http.ResponseWriter, status int, msg string) {
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	rw.WriteHeader(status)
	_, err := rw.Write([]byte(msg + "\n"))
	if err != nil {
		log.Warn("invoke: error writing response", "err", err)
	}
}
