package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"github.com/thisisjab/sieve/criteria"
	"github.com/thisisjab/sieve/engine"
	"github.com/thisisjab/sieve/querier"
)

// Searcher runs and explains criteria. *engine.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, c criteria.Criteria) (engine.SearchResult, error)
	Explain(c criteria.Criteria) (querier.BuildResult, error)
}

type server struct {
	cfg      Config
	logger   *slog.Logger
	searcher Searcher
}

func NewServer(cfg Config, logger *slog.Logger, searcher Searcher) (*server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &server{
		cfg:      cfg,
		logger:   logger,
		searcher: searcher,
	}, nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/healthcheck", s.healthCheckHandler)
	mux.HandleFunc("POST /api/search", s.searchHandler)
	mux.HandleFunc("GET /api/search", s.searchQueryHandler)
	mux.HandleFunc("POST /api/compile", s.compileHandler)

	return s.recoverPanicMiddleware(
		s.requestIDMiddleware(
			s.requestLoggerMiddleware(
				s.corsMiddleware(gzhttp.GzipHandler(mux)),
			),
		),
	)
}

func (s *server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.routes(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down server", "addr", s.cfg.Addr)
		if err := srv.Shutdown(context.WithoutCancel(ctx)); err != nil {
			s.logger.Error("failed to shutdown server", "addr", s.cfg.Addr, "error", err)
		}
	}()

	var serverErr error
	if s.cfg.CertFile != "" && s.cfg.KeyFile != "" {
		s.logger.Info("starting server with TLS", "addr", s.cfg.Addr)
		serverErr = srv.ListenAndServeTLS(s.cfg.CertFile, s.cfg.KeyFile)
	} else {
		s.logger.Info("starting server without TLS", "addr", s.cfg.Addr)
		serverErr = srv.ListenAndServe()
	}

	if serverErr != nil && serverErr != http.ErrServerClosed {
		return serverErr
	}

	return nil
}
