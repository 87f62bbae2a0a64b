package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opentutorials-org/otu-sync/internal/config"
	"github.com/opentutorials-org/otu-sync/internal/errs"
	"github.com/opentutorials-org/otu-sync/internal/service"
	"github.com/opentutorials-org/otu-sync/internal/validate"
)

// PushHandler serves POST /sync/push.
type PushHandler struct {
	svc service.Pusher
	rt  config.RuntimeConfig
	log *zap.Logger
}

func NewPushHandler(svc service.Pusher, rt config.RuntimeConfig, log *zap.Logger) *PushHandler {
	return &PushHandler{svc: svc, rt: rt, log: log}
}

type errorBody struct {
	Error   string           `json:"error"`
	Details []errs.Violation `json:"details,omitempty"`
}

// Push validates the batch and applies it for the authenticated user.
func (h *PushHandler) Push(c *gin.Context) {
	userID, ok := UserIDFromContext(c)
	if !ok {
		h.log.Error("sync push rejected", zap.Error(errs.ErrNoUser))
		c.JSON(http.StatusInternalServerError, errorBody{Error: errs.ErrNoUser.Error()})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "bad request"})
		return
	}
	batch, err := validate.ParsePush(body)
	if err != nil {
		h.writeInvalid(c, err)
		return
	}

	ctx := c.Request.Context()
	if h.rt.MaxPushDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.rt.MaxPushDuration)
		defer cancel()
	}

	lastPulledAt := parseLastPulledAt(c.Query("last_pulled_at"))
	stats, err := h.svc.Push(ctx, userID, lastPulledAt, batch)
	h.log.Info("sync push",
		zap.String("user_id", userID.String()),
		zap.Int64("last_pulled_at", lastPulledAt),
		zap.Any("folder", stats.Folder),
		zap.Any("page", stats.Page),
		zap.Any("alarm", stats.Alarm),
		zap.Bool("ok", err == nil),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *PushHandler) writeInvalid(c *gin.Context, err error) {
	var ibe *errs.InvalidBodyError
	if errors.As(err, &ibe) {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body", Details: ibe.Details})
		return
	}
	var bre *errs.BadRequestError
	if errors.As(err, &bre) {
		c.JSON(http.StatusBadRequest, errorBody{Error: "bad request"})
		return
	}
	c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
}

// parseLastPulledAt defaults to 0 when the value is absent or unparseable.
func parseLastPulledAt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
