package datatable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/VivaainNg/finance-tracker/internal"
	"github.com/VivaainNg/finance-tracker/internal/auth"
	"github.com/VivaainNg/finance-tracker/internal/transport"
	"github.com/VivaainNg/finance-tracker/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(service *Service) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func requesterFrom(r *http.Request) Requester {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return Requester{Anonymous: true}
	}
	return Requester{UserID: user.ID}
}

// List renders one page of the model's datatable. A page parameter that
// is not a positive integer within range sends the client back to page 1;
// an unknown model path degrades to an inline diagnostic.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "model")

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.redirectFirstPage(w, r)
			return
		}
		page = parsed
	}

	result, err := h.Service.List(path, requesterFrom(r), page, r.URL.Query())
	if err != nil {
		if errors.Is(err, internal.ErrBadPageNumber) {
			h.redirectFirstPage(w, r)
			return
		}
		if errors.Is(err, internal.ErrUnknownModel) {
			h.WriteInlineError(w, fmt.Sprintf("Getting ModelName with path: %s", path))
			return
		}
		h.Logger.Error("datatable list", "model", path, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) redirectFirstPage(w http.ResponseWriter, r *http.Request) {
	target := *r.URL
	q := target.Query()
	q.Set("page", "1")
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusSeeOther)
}

// Create builds a new record from the posted form and redirects back.
// Anything but POST just bounces to the referring page.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "model")

	if r.Method != http.MethodPost {
		h.RedirectBack(w, r, "/")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid form payload")
		return
	}

	if _, err := h.Service.Create(path, requesterFrom(r), r.PostForm); err != nil {
		h.handleEngineError(w, path, err)
		return
	}
	h.RedirectBack(w, r, "/")
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "model")
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid form payload")
		return
	}

	if err := h.Service.Update(path, requesterFrom(r), id, r.PostForm); err != nil {
		h.handleEngineError(w, path, err)
		return
	}
	h.RedirectBack(w, r, "/")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "model")
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(path, id); err != nil {
		h.handleEngineError(w, path, err)
		return
	}
	h.RedirectBack(w, r, "/")
}

// ExportCSV streams the currently visible columns of the filtered
// listing as a CSV attachment named after the model path.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "model")

	header, rows, err := h.Service.ExportCSV(path, requesterFrom(r), r.URL.Query())
	if err != nil {
		h.handleEngineError(w, path, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path+".csv"))

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		h.Logger.Error("datatable csv header", "model", path, "error", err)
		return
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			h.Logger.Error("datatable csv row", "model", path, "error", err)
			return
		}
	}
	cw.Flush()
}

// SaveFilters upserts one saved filter per posted form key.
func (h *Handler) SaveFilters(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "model")

	d, err := h.Service.Resolve(path)
	if err != nil {
		h.handleEngineError(w, path, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid form payload")
		return
	}

	for key := range r.PostForm {
		if err := h.Service.Preferences().UpsertFilter(d.Path, key, r.PostForm.Get(key)); err != nil {
			h.Logger.Error("saving filter", "model", d.Path, "key", key, "error", err)
			h.WriteError(w, http.StatusInternalServerError, "failed to save filters")
			return
		}
	}
	h.RedirectBack(w, r, "/")
}

func (h *Handler) DeleteFilter(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "model")
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Preferences().DeleteFilter(path, id); err != nil {
		h.Logger.Error("deleting filter", "model", path, "filter_id", id, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to delete filter")
		return
	}
	h.RedirectBack(w, r, "/")
}

func (h *Handler) SetPageSize(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "model")

	if err := r.ParseForm(); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid form payload")
		return
	}
	n, err := strconv.Atoi(r.PostFormValue("items_per_page"))
	if err != nil {
		n = DefaultPageSize
	}

	if err := h.Service.Preferences().SetPageSize(path, n); err != nil {
		h.Logger.Error("saving page size", "model", path, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to save page size")
		return
	}
	h.RedirectBack(w, r, "/")
}

// ToggleVisibility flips one column's hidden flag.
func (h *Handler) ToggleVisibility(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "model")

	if err := r.ParseForm(); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid form payload")
		return
	}
	key := r.PostFormValue("key")
	if key == "" {
		h.WriteError(w, http.StatusBadRequest, "key is required")
		return
	}
	hidden := r.PostFormValue("value") == "true"

	if err := h.Service.Preferences().ToggleVisibility(path, key, hidden); err != nil {
		h.Logger.Error("toggling visibility", "model", path, "key", key, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to toggle column")
		return
	}
	h.RedirectBack(w, r, "/")
}

// Describe exposes the introspection surface for one model: fields,
// choices, foreign keys with their candidate rows, and the current
// column visibility.
func (h *Handler) Describe(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "model")

	d, err := h.Service.Resolve(path)
	if err != nil {
		h.handleEngineError(w, path, err)
		return
	}

	visibility, err := h.Service.Preferences().Visibility(d.Path, d.FieldNames())
	if err != nil {
		h.Logger.Error("loading visibility", "model", d.Path, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	hidden := make(map[string]bool, len(visibility))
	for _, row := range visibility {
		hidden[row.Key] = row.Value
	}

	options, err := h.Service.ForeignKeyOptions(d.Path)
	if err != nil {
		h.Logger.Error("loading fk options", "model", d.Path, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to load options")
		return
	}

	pageSize, err := h.Service.Preferences().PageSize(d.Path)
	if err != nil {
		h.Logger.Error("loading page size", "model", d.Path, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}

	filters, err := h.Service.Preferences().SavedFilters(d.Path)
	if err != nil {
		h.Logger.Error("loading saved filters", "model", d.Path, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"modelPath":      d.Path,
		"displayName":    d.DisplayName,
		"fields":         d.FieldNames(),
		"integerFields":  d.FieldNamesOfKind(KindInteger),
		"decimalFields":  d.FieldNamesOfKind(KindDecimal),
		"datetimeFields": d.FieldNamesOfKind(KindDateTime),
		"emailFields":    d.FieldNamesOfKind(KindEmail),
		"textFields":     d.FieldNamesOfKind(KindText),
		"choices":        d.ChoiceFields(),
		"foreignKeys":    d.ForeignKeys(),
		"fkOptions":      options,
		"hiddenColumns":  hidden,
		"pageSize":       pageSize,
		"savedFilters":   filters,
	})
}

func (h *Handler) handleEngineError(w http.ResponseWriter, path string, err error) {
	if errors.Is(err, internal.ErrUnknownModel) {
		h.WriteInlineError(w, fmt.Sprintf("Getting ModelName with path: %s", path))
		return
	}
	if appErr, ok := internal.IsAppError(err); ok {
		h.HandleServiceError(w, appErr)
		return
	}
	h.Logger.Error("datatable engine", "model", path, "error", err)
	h.WriteError(w, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid record ID")
		return 0, false
	}
	return id, true
}
