package charts

import (
	"log/slog"
	"net/http"

	"github.com/VivaainNg/finance-tracker/internal/transport"
	"github.com/VivaainNg/finance-tracker/pkg/logger"
)

type ServiceAPI interface {
	ChartData() (*ChartData, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) GetChartData(w http.ResponseWriter, r *http.Request) {
	data, err := h.Service.ChartData()
	if err != nil {
		h.Logger.Error("GetChartData: failed to build chart data", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to load chart data")
		return
	}

	h.WriteJSON(w, http.StatusOK, data)
}
