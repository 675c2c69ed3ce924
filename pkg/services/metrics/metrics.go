// Package metrics implements HTTP services exposing Prometheus metrics and
// pprof profiles of the running process.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/TKONIY/gmpt/pkg/config"
	"go.uber.org/zap"
)

// Service serves metrics.
type Service struct {
	http        []*http.Server
	config      config.BasicService
	log         *zap.Logger
	serviceType string

	lock    sync.Mutex
	started bool
}

// NewService configures logger and returns a new service instance.
func NewService(name string, srvs []*http.Server, cfg config.BasicService, log *zap.Logger) *Service {
	return &Service{
		http:        srvs,
		config:      cfg,
		serviceType: name,
		log:         log.With(zap.String("service", name)),
	}
}

// Start runs http services with the exposed endpoints on the configured
// ports. Listeners are opened synchronously, so Start returns an error if
// any of the addresses can't be used.
func (ms *Service) Start() error {
	if !ms.config.Enabled {
		ms.log.Info("service hasn't started since it's disabled")
		return nil
	}
	ms.lock.Lock()
	defer ms.lock.Unlock()
	if ms.started {
		return nil
	}
	lns := make([]net.Listener, 0, len(ms.http))
	for _, srv := range ms.http {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, l := range lns {
				_ = l.Close()
			}
			return err
		}
		srv.Addr = ln.Addr().String() // set Addr to the actual address
		lns = append(lns, ln)
	}
	for i, srv := range ms.http {
		ms.log.Info("service is running", zap.String("endpoint", srv.Addr))
		go func(srv *http.Server, ln net.Listener) {
			err := srv.Serve(ln)
			if !errors.Is(err, http.ErrServerClosed) {
				ms.log.Error("failed to start service", zap.String("endpoint", srv.Addr), zap.Error(err))
			}
		}(srv, lns[i])
	}
	ms.started = true
	return nil
}

// Addresses returns the addresses services listen on.
func (ms *Service) Addresses() []string {
	res := make([]string, len(ms.http))
	for i, srv := range ms.http {
		res[i] = srv.Addr
	}
	return res
}

// ShutDown stops the service.
func (ms *Service) ShutDown() {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	if !ms.started {
		return
	}
	for _, srv := range ms.http {
		ms.log.Info("shutting down service", zap.String("endpoint", srv.Addr))
		err := srv.Shutdown(context.Background())
		if err != nil {
			ms.log.Error("can't shut service down", zap.String("endpoint", srv.Addr), zap.Error(err))
		}
	}
	ms.started = false
	_ = ms.log.Sync()
}
