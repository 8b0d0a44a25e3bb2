package router

import (
	"net/http"
	"time"

	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/router/middleware"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/usecase/chart"
	"github.com/rs/zerolog"
)

type statusWriter struct {
	http.ResponseWriter
	status int
	n      int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.n += n
	return n, err
}

func logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(sw, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Int("bytes", sw.n).
				Dur("took", time.Since(start)).
				Msg("http request")
		})
	}
}

// wrap your mux with Cors(mux) when starting the server
func Cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")

			// Reflect requested headers/method for preflight robustness
			reqHdrs := r.Header.Get("Access-Control-Request-Headers")
			if reqHdrs == "" {
				reqHdrs = "Content-Type, Authorization"
			}
			w.Header().Set("Access-Control-Allow-Headers", reqHdrs)

			reqMethod := r.Header.Get("Access-Control-Request-Method")
			if reqMethod == "" {
				reqMethod = "GET, POST, OPTIONS"
			}
			w.Header().Set("Access-Control-Allow-Methods", reqMethod)
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		// Short-circuit preflight so it never hits the route table
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GET /api/v1/market/WETH-USDC/depth?zoom=12.5&offset=0
func bindDepth(serverRouter *http.ServeMux, usecase chart.ChartUseCase, logger zerolog.Logger) {
	log := logging(logger)
	depthRouter := NewDepthRouter(usecase)
	serverRouter.Handle("GET /api/v1/market", log(http.HandlerFunc(depthRouter.Markets)))
	serverRouter.Handle("GET /api/v1/market/{symbol}/depth", log(http.HandlerFunc(depthRouter.Chart)))
	serverRouter.Handle("POST /api/v1/market/{symbol}/depth/zoom", log(http.HandlerFunc(depthRouter.Zoom)))
	serverRouter.Handle("POST /api/v1/market/{symbol}/depth/pan", log(http.HandlerFunc(depthRouter.Pan)))
	serverRouter.Handle("POST /api/v1/market/{symbol}/depth/tooltip", log(http.HandlerFunc(depthRouter.Tooltip)))
}

func bindIngest(serverRouter *http.ServeMux, usecase chart.ChartUseCase, tokenMaker *middleware.JWTMaker, logger zerolog.Logger) {
	authmiddleware := middleware.AuthMiddleware(tokenMaker)
	log := logging(logger)
	ingestRouter := NewIngestRouter(usecase)
	serverRouter.Handle("POST /api/v1/market/{symbol}/snapshot", log(authmiddleware(http.HandlerFunc(ingestRouter.Snapshot))))
	serverRouter.Handle("POST /api/v1/market/{symbol}/level", log(authmiddleware(http.HandlerFunc(ingestRouter.Level))))
}

type BindRouterOpts struct {
	ServerRouter *http.ServeMux
	ChartUseCase chart.ChartUseCase
	TokenMaker   *middleware.JWTMaker
	Logger       zerolog.Logger
}

func BindRouter(opts BindRouterOpts) {
	logger := opts.Logger.With().Str("component", "http").Logger()
	bindDepth(opts.ServerRouter, opts.ChartUseCase, logger)
	bindIngest(opts.ServerRouter, opts.ChartUseCase, opts.TokenMaker, logger)

	//healthcheck
	opts.ServerRouter.Handle("GET /healthz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": 200,
			"health": "healthy",
		})
	}))
}
