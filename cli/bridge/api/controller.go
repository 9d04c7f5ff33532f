package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type Controller struct {
	Handler *Handler
	router  *gin.Engine
}

func NewController(handler *Handler) *Controller {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", handler.GetHealth)
	router.GET("/metrics", handler.GetMetrics())
	router.GET("/live", handler.GetLive)

	vehicles := router.Group("/vehicles")
	{
		vehicles.GET("", handler.GetVehicles)
		vehicles.GET("/:rtu_id", handler.GetVehicle)
	}

	return &Controller{Handler: handler, router: router}
}

func (c *Controller) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.router.ServeHTTP(w, r)
}

// Run serves on listen until ctx is done.
func (c *Controller) Run(ctx context.Context, listen string) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           c.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Status API listening on %s", listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
