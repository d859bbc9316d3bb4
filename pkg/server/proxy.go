package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"statusmon/pkg/api"
	"statusmon/pkg/log"

	"github.com/labstack/echo/v4"
)

const maxProxyBody = 10 << 20

// proxy handles ANY /api/proxy/*, forwarding to the backend through the
// request wrapper.
func (srv *StatusServer) proxy(ctx echo.Context) error {
	endpoint := "/" + ctx.Param("*")
	if query := ctx.QueryString(); query != "" {
		endpoint += "?" + query
	}

	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxProxyBody))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Failed to read request body",
		})
	}

	opts := &api.Options{
		Method: ctx.Request().Method,
		Body:   body,
	}
	if contentType := ctx.Request().Header.Get(echo.HeaderContentType); contentType != "" {
		opts.Headers = map[string]string{echo.HeaderContentType: contentType}
	}

	var result json.RawMessage
	err = srv.client.Request(ctx.Request().Context(), endpoint, opts, &result)
	if err != nil {
		return proxyError(ctx, endpoint, err)
	}
	if len(result) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	return ctx.JSONBlob(http.StatusOK, result)
}

func proxyError(ctx echo.Context, endpoint string, err error) error {
	var httpErr *api.HTTPError
	switch {
	case errors.Is(err, api.ErrOffline):
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": err.Error(),
		})
	case errors.As(err, &httpErr):
		return ctx.JSON(httpErr.StatusCode, map[string]string{
			"error": err.Error(),
		})
	default:
		log.Component(component).Warn().Err(err).Str("endpoint", endpoint).Msg("Proxy request failed")
		return ctx.JSON(http.StatusBadGateway, map[string]string{
			"error": err.Error(),
		})
	}
}
