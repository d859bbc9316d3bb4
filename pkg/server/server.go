package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"statusmon/pkg/api"
	"statusmon/pkg/log"
	"statusmon/pkg/models"
	"statusmon/pkg/status"
	"statusmon/pkg/ui"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	component = "server"

	shutdownTimeout  = 10 * time.Second
	reconnectMessage = "Server is back online"
)

// StatusServer serves the monitored page, the status API and live updates.
type StatusServer struct {
	echo     *echo.Echo
	monitor  *status.Monitor
	client   *api.Client
	page     *ui.Page
	notifier *ui.Notifier
	hub      *Hub
	interval time.Duration
	handle   *status.Handle
}

// NewStatusServer wires the monitor, request client, page and notifier into
// an HTTP server. The hub is registered as a monitor indicator and receives
// every toast.
func NewStatusServer(monitor *status.Monitor, client *api.Client, page *ui.Page, notifier *ui.Notifier, interval time.Duration) *StatusServer {
	srv := &StatusServer{
		echo:     echo.New(),
		monitor:  monitor,
		client:   client,
		page:     page,
		notifier: notifier,
		hub:      NewHub(monitor.Snapshot),
		interval: interval,
	}

	monitor.AddIndicator(srv.hub)
	notifier.OnNotify(srv.hub.Toast)
	srv.setupRoutes()
	return srv
}

// Handler exposes the HTTP handler.
func (srv *StatusServer) Handler() http.Handler {
	return srv.echo
}

// Start begins monitoring, serves on addr and blocks until SIGINT or SIGTERM.
func (srv *StatusServer) Start(addr string) error {
	srv.handle = srv.monitor.Start(srv.interval, srv.onReconnect)

	go func() {
		log.Component(component).Info().
			Str("addr", addr).
			Str("backend", srv.client.BaseURL()).
			Msg("Starting status server")

		if err := srv.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Component(component).Fatal().Err(err).Msg("Server startup failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return srv.Shutdown()
}

// Shutdown stops monitoring, disconnects live clients and stops the server.
func (srv *StatusServer) Shutdown() error {
	log.Component(component).Info().Msg("Shutting down server...")

	if srv.handle != nil {
		srv.handle.Stop()
	}
	srv.hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.echo.Shutdown(ctx); err != nil {
		log.Component(component).Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	log.Component(component).Info().Msg("Server gracefully stopped")
	return nil
}

func (srv *StatusServer) onReconnect() {
	if _, err := srv.notifier.Notify(reconnectMessage, models.ToastSuccess); err != nil {
		log.Component(component).Debug().Err(err).Msg("Reconnect toast not shown")
	}
}

func (srv *StatusServer) setupRoutes() {
	srv.echo.HideBanner = true
	srv.echo.HidePort = true
	srv.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
	}))
	srv.echo.Use(middleware.Recover())

	srv.echo.GET("/", srv.servePage)
	srv.echo.GET("/api/status", srv.getStatus)
	srv.echo.POST("/api/notify", srv.postNotify)
	srv.echo.Any("/api/proxy/*", srv.proxy)
	srv.echo.GET("/ws", srv.hub.serveWS)
}

// servePage handles GET /.
func (srv *StatusServer) servePage(ctx echo.Context) error {
	var buf bytes.Buffer
	if err := srv.page.Render(&buf); err != nil {
		log.Component(component).Error().Err(err).Msg("Failed to render page")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to render page",
		})
	}
	return ctx.HTMLBlob(http.StatusOK, buf.Bytes())
}

// getStatus handles GET /api/status.
func (srv *StatusServer) getStatus(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, srv.monitor.Snapshot())
}
