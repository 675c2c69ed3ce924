package metrics

import (
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/TKONIY/gmpt/pkg/config"
	"go.uber.org/zap"
)

const readHeaderTimeout = 5 * time.Second

// NewPprofService creates a service for gathering pprof profiles, see
// https://golang.org/pkg/net/http/pprof/. Build profiles are mostly useful
// for the bench command.
func NewPprofService(cfg config.BasicService, log *zap.Logger) *Service {
	if log == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return NewService("Pprof", servers(cfg, mux), cfg, log)
}
