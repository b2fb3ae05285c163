package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/eacrag/internal/app"
	"github.com/xxxsen/eacrag/internal/pkg/response"
	"github.com/xxxsen/eacrag/internal/schedule"
)

type HealthHandler struct {
	state  *app.State
	runner *schedule.Runner
}

func NewHealthHandler(state *app.State, runner *schedule.Runner) *HealthHandler {
	return &HealthHandler{state: state, runner: runner}
}

type refreshStatus struct {
	Running      int    `json:"running"`
	LastStarted  string `json:"last_started,omitempty"`
	LastFinished string `json:"last_finished,omitempty"`
	LastError    string `json:"last_error,omitempty"`
}

type healthResponse struct {
	State   string        `json:"state"`
	Error   string        `json:"error,omitempty"`
	Refresh refreshStatus `json:"refresh"`
}

func (h *HealthHandler) Health(c *gin.Context) {
	st := h.runner.Status()
	res := healthResponse{
		State: h.state.Phase().String(),
		Refresh: refreshStatus{
			Running:      st.Running,
			LastStarted:  formatTime(st.LastStarted),
			LastFinished: formatTime(st.LastFinished),
			LastError:    st.LastError,
		},
	}
	if err := h.state.Err(); err != nil {
		res.Error = err.Error()
	}
	response.Success(c, res)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
