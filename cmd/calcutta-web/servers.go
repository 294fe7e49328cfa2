package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"

	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/sync/errgroup"

	"github.com/lucke/calcutta-web/internal/util/slogx"
)

const shutdownTimeout = 10 * time.Second

type server struct {
	name   string
	secure bool
	serv   *http.Server
}

type servers struct {
	servs []server
	log   *slog.Logger
}

func newServers(log *slog.Logger, o *Options, handler http.Handler) *servers {
	s := &servers{log: log}
	if o.HTTPS == nil {
		s.add("insecure", false, o.AddrWithPort(), handler, nil)
		return s
	}
	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(slices.Clone(o.HTTPS.AllowedSecureDomains)...),
		Cache:      autocert.DirCache(o.HTTPS.CachePath),
	}
	// Without ExposeInsecure, plain http only answers ACME challenges and redirects to https.
	var insecure http.Handler
	if o.HTTPS.ExposeInsecure {
		insecure = m.HTTPHandler(handler)
	} else {
		insecure = m.HTTPHandler(nil)
	}
	s.add("insecure", false, o.AddrWithPort(), insecure, nil)
	s.add("secure", true, o.SecureAddrWithPort(), handler, m)
	return s
}

func (s *servers) add(name string, secure bool, addr string, handler http.Handler, m *autocert.Manager) {
	serv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 30 * time.Second,
	}
	if m != nil {
		serv.TLSConfig = m.TLSConfig()
	}
	s.servs = append(s.servs, server{name: name, secure: secure, serv: serv})
}

// Run serves until ctx is done or one of the servers fails. Then all the servers are shut down.
func (s *servers) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, sv := range s.servs {
		sv.serv.BaseContext = func(net.Listener) context.Context { return gctx }
		g.Go(func() error {
			log := s.log.With(slog.String("name", sv.name), slog.String("addr", sv.serv.Addr))
			log.Info("starting http server")
			var err error
			if sv.secure {
				err = sv.serv.ListenAndServeTLS("", "")
			} else {
				err = sv.serv.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("listen http server failed", slogx.Err(err))
				return fmt.Errorf("server %v: %w", sv.name, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, sv := range s.servs {
			log := s.log.With(slog.String("name", sv.name))
			log.Info("stopping http server")
			if err := sv.serv.Shutdown(shutdownCtx); err != nil {
				log.Warn("could not shut down server", slogx.Err(err))
			}
		}
		return nil
	})
	return g.Wait()
}
