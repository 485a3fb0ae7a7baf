// Package serverless exposes the service as a single http.HandlerFunc for
// function platforms. Configuration comes from the environment only.
package serverless

import (
	"net/http"
	"sync"

	"github.com/cpipredict/cpi-predictor/app"
	"github.com/cpipredict/cpi-predictor/config"
	"github.com/cpipredict/cpi-predictor/infra/logger"
)

var (
	once    sync.Once
	handler http.Handler
	initErr error
)

func setup() {
	cfg, err := config.Load("")
	if err != nil {
		initErr = err
		return
	}
	svc, err := app.New(cfg)
	if err != nil {
		initErr = err
		return
	}
	handler = svc.Handler()
}

// Handler serves one request. The service is built on the first call and
// reused by the warm instance afterwards.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(setup)
	if initErr != nil {
		logger.New("serverless").Errorf("init: %v", initErr)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"service unavailable"}` + "\n"))
		return
	}
	handler.ServeHTTP(w, r)
}
