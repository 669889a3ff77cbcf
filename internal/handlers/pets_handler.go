package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/gp-notifier/internal/metrics"
	"github.com/imrishuroy/gp-notifier/internal/sightings"
	"github.com/imrishuroy/gp-notifier/internal/validation"
)

// HandlerConfig groups dependencies for the pets handlers.
type HandlerConfig struct {
	Store   *sightings.Store
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Fanout  *Fanout
}

// RegisterPetsRoutes registers the ingestion and query routes.
func RegisterPetsRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}
	r.SetHTMLTemplate(pageTemplate)

	r.POST("/pets", func(c *gin.Context) {
		var req validation.IngestBatchRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			m.BatchesRejected.Inc()
			logger.Warn("batch rejected", "error", err, "request_id", RequestID(c))
			return
		}

		batch := sightings.NormalizeAll(req.Embeds, cfg.Store.Stamp())
		cfg.Store.Insert(batch...)
		cfg.Store.Prune()

		m.BatchesAccepted.Inc()
		m.SightingsIngested.Add(float64(len(batch)))
		logger.Info("batch ingested", "embeds", len(batch), "request_id", RequestID(c))

		c.Status(http.StatusOK)
		cfg.Fanout.Dispatch(RequestID(c), batch)
	})

	r.GET("/latest-pets", func(c *gin.Context) {
		snap := cfg.Store.Snapshot()
		m.SightingsRetained.Set(float64(len(snap)))
		c.JSON(http.StatusOK, snap)
	})

	r.GET("/", func(c *gin.Context) {
		snap := cfg.Store.Snapshot()
		m.SightingsRetained.Set(float64(len(snap)))
		c.HTML(http.StatusOK, pageTemplateName, newPageData(snap))
	})
}
