package category

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/VivaainNg/finance-tracker/internal/transport"
	"github.com/VivaainNg/finance-tracker/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	GetAllCategories() ([]*Category, error)
	GetByID(id int64) (*Category, error)
	Create(dto CategoryDTO) (*Category, error)
	Update(id int64, dto CategoryDTO) (*Category, error)
	Delete(id int64) error
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

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.GetAllCategories()
	if err != nil {
		h.Logger.Error("GetCategories: failed to get categories", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to get categories")
		return
	}

	h.WriteJSON(w, http.StatusOK, CategoriesResponse{Categories: categories})
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var dto CategoryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cat, err := h.Service.Create(dto)
	if err != nil {
		h.Logger.Error("CreateCategory: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, cat)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid category ID")
		return
	}

	var dto CategoryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cat, err := h.Service.Update(id, dto)
	if err != nil {
		h.Logger.Error("UpdateCategory: service error", "error", err, "category_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, cat)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid category ID")
		return
	}

	if err := h.Service.Delete(id); err != nil {
		h.Logger.Error("DeleteCategory: service error", "error", err, "category_id", id)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
