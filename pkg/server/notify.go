package server

import (
	"errors"
	"net/http"
	"strings"

	"statusmon/pkg/models"
	"statusmon/pkg/ui"

	"github.com/labstack/echo/v4"
)

// NotifyRequest is the body of POST /api/notify.
type NotifyRequest struct {
	Message string           `json:"message"`
	Kind    models.ToastKind `json:"kind"`
}

// postNotify handles POST /api/notify.
func (srv *StatusServer) postNotify(ctx echo.Context) error {
	var req NotifyRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Message) == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Message is required",
		})
	}

	toast, err := srv.notifier.Notify(req.Message, req.Kind)
	if err != nil {
		if errors.Is(err, ui.ErrElementNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{
				"error": "Page has no toast element",
			})
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return ctx.JSON(http.StatusOK, toast)
}
