package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/eacrag/internal/app"
	appErr "github.com/xxxsen/eacrag/internal/pkg/errors"
	"github.com/xxxsen/eacrag/internal/pkg/response"
	"github.com/xxxsen/eacrag/internal/schedule"
)

type ChatHandler struct {
	state   *app.State
	runner  *schedule.Runner
	refresh schedule.Job
}

func NewChatHandler(state *app.State, runner *schedule.Runner, refresh schedule.Job) *ChatHandler {
	return &ChatHandler{state: state, runner: runner, refresh: refresh}
}

type chatRequest struct {
	Query *string `json:"query"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, fmt.Errorf("%w: decode chat body: %w", appErr.ErrInvalid, err))
		return
	}
	if req.Query == nil {
		handleError(c, fmt.Errorf("%w: query is required", appErr.ErrInvalid))
		return
	}
	engine, err := h.state.Engine()
	if err != nil {
		handleError(c, err)
		return
	}
	res, err := engine.Answers.Answer(c.Request.Context(), *req.Query)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

// Refresh queues a knowledge base rebuild and returns without waiting for it.
func (h *ChatHandler) Refresh(c *gin.Context) {
	if _, err := h.state.Engine(); err != nil {
		handleError(c, err)
		return
	}
	h.runner.Submit(h.refresh)
	response.Success(c, gin.H{"status": "Refresh started"})
}
