package http

import (
	"net/http"

	"github.com/kickerhub/kickerstats/internal/backfill"
	"github.com/kickerhub/kickerstats/internal/config"
	"github.com/kickerhub/kickerstats/internal/ledger"
	"github.com/kickerhub/kickerstats/internal/metrics"
)

type Server struct {
	Ledger         *ledger.Service
	Backfill       *backfill.Job
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Router         *http.ServeMux
}
