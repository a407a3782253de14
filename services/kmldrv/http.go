package kmldrv

import (
	"errors"
	"io"
	"net/http"

	"github.com/sugawarayuuta/sonnet"

	"github.com/vax-r/KMLdrv/internal/logger"
)

type httpHandler struct {
	svc *Service
}

func HTTPHandler(s *Service) http.Handler {
	h := &httpHandler{
		svc: s,
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /state", h.HandleGetState)
	mux.HandleFunc("PUT /state", h.HandleSetState)
	mux.HandleFunc("GET /stream", h.HandleStream)
	mux.HandleFunc("GET /stats", h.HandleStats)

	return mux
}

func (h *httpHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, h.svc.Flags().String())
}

func (h *httpHandler) HandleSetState(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 64))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	flags, err := ParseFlags(string(body))
	if err != nil {
		log.Warn("rejected flags", "body", string(body), "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.svc.SetFlags(flags)
	w.WriteHeader(http.StatusNoContent)
}

// HandleStream holds a file open for the life of the request and copies
// frames to the client as they arrive.
func (h *httpHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	f, err := h.svc.Open(false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)
	_ = rc.Flush()

	buf := make([]byte, FifoSize)
	for {
		n, err := f.Read(ctx, buf)
		if err != nil {
			if !errors.Is(err, ErrInterrupted) {
				log.Info("stream ended", "file", f.ID(), "err", err)
			}
			return
		}

		if _, err := w.Write(buf[:n]); err != nil {
			return
		}
		_ = rc.Flush()
	}
}

func (h *httpHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	data, err := sonnet.Marshal(h.svc.Stats())
	if err != nil {
		log.Error("encode stats", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
