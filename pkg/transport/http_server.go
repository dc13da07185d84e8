package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes limita o corpo aceito no modo servidor (o API Gateway já limita a 10MB).
const maxBodyBytes = 10 << 20

// NewRouter expõe /{entity} para os mesmos métodos aceitos pela Lambda.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(ObservabilityMiddleware)
	r.HandleFunc("/{entity}", h.ServeHTTP).
		Methods(http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete)
	return r
}

// ServeHTTP adapta uma requisição net/http para Serve.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	defer r.Body.Close()
	if err != nil {
		http.Error(w, `"`+MsgUnhandledRequest+`"`, http.StatusBadRequest)
		return
	}

	query := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	headers := make(map[string]string)
	for k, v := range r.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	resp := h.Serve(r.Context(), Request{
		Method:  r.Method,
		Entity:  mux.Vars(r)["entity"],
		Query:   query,
		Headers: headers,
		Body:    body,
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(HeaderCorrelationID, resp.CorrelationID)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

// ListenAndServe sobe o servidor HTTP e o encerra quando ctx é cancelado.
func ListenAndServe(ctx context.Context, port int, handler http.Handler) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Msgf("Servidor HTTP ouvindo em %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode  int
	startTime   time.Time
	wroteHeader bool
}

func (rw *responseWriterWrapper) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.Header().Set(HeaderLatency, fmt.Sprintf("%d", time.Since(rw.startTime).Milliseconds()))
	rw.ResponseWriter.WriteHeader(code)
	rw.wroteHeader = true
}

func (rw *responseWriterWrapper) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// ObservabilityMiddleware garante o correlation id na requisição e grava a
// latência na resposta. O log de conclusão fica com o Handler.
func ObservabilityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(HeaderCorrelationID) == "" {
			r.Header.Set(HeaderCorrelationID, uuid.NewString())
		}
		w.Header().Set(HeaderCorrelationID, r.Header.Get(HeaderCorrelationID))

		wrapper := &responseWriterWrapper{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			startTime:      time.Now(),
		}
		next.ServeHTTP(wrapper, r)
	})
}
