// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package web

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WebServer is the struct that holds all necessary information
// for a single port on which web services are served on
type WebServer struct {
	Mux      *http.ServeMux
	Serv     *http.Server
	Listener net.Listener
}

// NewWebserver returns a pointer to a new WebServer struct and
// initialises it with a new http.ServeMux
func NewWebserver() *WebServer {
	return &WebServer{
		Mux: http.NewServeMux(),
	}
}

// SetServer fills the WebServer struct and starts a net.Listener on the
// provided address. Port 0 picks a free port.
func (w *WebServer) SetServer(addr string) error {
	w.Serv = &http.Server{
		Addr:    addr,
		Handler: w.Mux,
	}
	var err error
	w.Listener, err = net.Listen("tcp", addr)
	return err
}

// HandleMetrics exports the metrics of g on /metrics.
func (w *WebServer) HandleMetrics(g prometheus.Gatherer) {
	w.Mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// Serve serves HTTP on the listener until Shutdown is called.
func (w *WebServer) Serve() error {
	err := w.Serv.Serve(w.Listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (w *WebServer) Shutdown(ctx context.Context) error {
	return w.Serv.Shutdown(ctx)
}
