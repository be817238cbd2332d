package handler

import (
	"net/http"

	"planhub/internal/delivery/response"
	"planhub/internal/delivery/scheduler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// ExpireResult is the body returned by a triggered sweep.
type ExpireResult struct {
	Expired int `json:"expired"`
}

// TaskHandler exposes the worker's jobs to external schedulers.
type TaskHandler struct {
	sweeper *scheduler.Sweeper
}

// TaskHandlerParams holds dependencies for the TaskHandler
type TaskHandlerParams struct {
	fx.In

	Sweeper *scheduler.Sweeper
}

func NewTaskHandler(params TaskHandlerParams) *TaskHandler {
	return &TaskHandler{
		sweeper: params.Sweeper,
	}
}

// Expire runs one expiry sweep and reports how many rows it expired.
// A sweep that is already running yields 409.
func (h *TaskHandler) Expire(c echo.Context) error {
	expired, err := h.sweeper.Run(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ExpireResult{Expired: expired})
}

// Health reports liveness only; it does not touch the store.
func (h *TaskHandler) Health(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "")
}
