package utils

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 30 * time.Second
	shutdownTimeout     = 15 * time.Second
)

// Server is an http.Server that drains in-flight requests on SIGINT or SIGTERM
// and then runs the registered shutdown hooks in order.
type Server struct {
	*http.Server

	signalChan   chan os.Signal
	shutdownChan chan struct{}
	closers      []func() error
}

// NewServer creates a Server with timeouts and handler.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *Server {
	return &Server{
		Server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		signalChan:   make(chan os.Signal, 1),
		shutdownChan: make(chan struct{}),
	}
}

// NewGraceServer builds a Server with the default timeouts.
func NewGraceServer(addr string, handler http.Handler) *Server {
	return NewServer(addr, handler, defaultReadTimeout, defaultWriteTimeout)
}

// OnShutdown registers a cleanup run after the HTTP server has drained,
// e.g. closing the database or the redis client.
func (srv *Server) OnShutdown(fn func() error) {
	srv.closers = append(srv.closers, fn)
}

// ListenAndServe blocks until a shutdown signal has been fully handled.
func (srv *Server) ListenAndServe() error {
	addr := srv.Addr
	if addr == "" {
		addr = ":http"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return srv.Serve(ln)
}

// Serve accepts connections on ln until shutdown.
func (srv *Server) Serve(ln net.Listener) error {
	signal.Notify(srv.signalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(srv.signalChan)
	go srv.awaitSignal()

	if err := srv.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	<-srv.shutdownChan
	return nil
}

func (srv *Server) awaitSignal() {
	sig := <-srv.signalChan
	Sugar.Infow("graceful shutdown", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		Sugar.Errorf("HTTP server shutdown error: %v", err)
	} else {
		Sugar.Info("HTTP server shutdown success")
	}
	for _, fn := range srv.closers {
		if err := fn(); err != nil {
			Sugar.Warnf("shutdown hook failed: %v", err)
		}
	}
	_ = Logger.Sync()
	close(srv.shutdownChan)
}
