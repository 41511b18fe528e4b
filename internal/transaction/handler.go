package transaction

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"

	"github.com/VivaainNg/finance-tracker/internal/auth"
	"github.com/VivaainNg/finance-tracker/internal/transport"
	"github.com/VivaainNg/finance-tracker/pkg/logger"
)

type ServiceAPI interface {
	List(filters ListFilters) ([]*Transaction, error)
	Get(id int64) (*Transaction, error)
	Create(dto CreateTransactionDTO, ownerID int64) (*Transaction, error)
	Update(id int64, dto UpdateTransactionDTO) (*Transaction, error)
	Patch(id int64, dto PatchTransactionDTO) (*Transaction, error)
	Delete(id int64) error
	Summary(ownerID int64) (DashboardSummary, error)
	Export(filters ExportFilters) ([]*Transaction, error)
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

// ListTransactions handles GET /api/transactions with the camelCase
// query filters (dateTimeMin/dateTimeMax and amountMin/amountMax are
// inclusive bounds; search matches remarks case-insensitively).
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filters, err := parseListFilters(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := h.Service.List(filters)
	if err != nil {
		h.Logger.Error("ListTransactions: service error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponseSlice(txs))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	tx, err := h.Service.Get(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(tx))
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var dto CreateTransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := h.Service.Create(dto, 0)
	if err != nil {
		h.Logger.Error("CreateTransaction: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, ToResponse(tx))
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var dto UpdateTransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := h.Service.Update(id, dto)
	if err != nil {
		h.Logger.Error("UpdateTransaction: service error", "error", err, "transaction_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(tx))
}

func (h *Handler) PatchTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var dto PatchTransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := h.Service.Patch(id, dto)
	if err != nil {
		h.Logger.Error("PatchTransaction: service error", "error", err, "transaction_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(tx))
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(id); err != nil {
		h.Logger.Error("DeleteTransaction: service error", "error", err, "transaction_id", id)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Dashboard returns the owner's aggregate totals.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := h.Service.Summary(user.ID)
	if err != nil {
		h.Logger.Error("Dashboard: service error", "error", err, "user_id", user.ID)
		h.WriteError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	h.WriteJSON(w, http.StatusOK, summary)
}

// CreateTransactionModal handles the HTMX form submission for creating
// a transaction. Ownership is forced to the requester and the client is
// redirected back via the HX-Redirect header.
func (h *Handler) CreateTransactionModal(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if r.Method != http.MethodPost {
		h.RedirectBack(w, r, "/")
		return
	}

	dto, err := dtoFromForm(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.Service.Create(dto, user.ID); err != nil {
		h.Logger.Error("CreateTransactionModal: service error", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.HXRedirect(w, "/")
}

// UpdateTransactionModal handles the HTMX form submission for updating
// an existing transaction.
func (h *Handler) UpdateTransactionModal(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	dto, err := dtoFromForm(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	patch := PatchTransactionDTO{
		Category:  dto.Category,
		Amount:    dto.Amount,
		DateTime:  dto.DateTime,
		Remarks:   &dto.Remarks,
		CreatedBy: &user.ID,
	}
	if dto.PaymentType != "" {
		patch.PaymentType = &dto.PaymentType
	}
	if dto.TransactionType != "" {
		patch.TransactionType = &dto.TransactionType
	}

	if _, err := h.Service.Patch(id, patch); err != nil {
		h.Logger.Error("UpdateTransactionModal: service error", "error", err, "transaction_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.HXRedirect(w, "/")
}

// DeleteTransactionModal deletes a transaction and redirects the HTMX
// client back to the referring page.
func (h *Handler) DeleteTransactionModal(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserFromContext(r.Context()); !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(id); err != nil {
		h.Logger.Error("DeleteTransactionModal: service error", "error", err, "transaction_id", id)
		h.HandleServiceError(w, err)
		return
	}

	target := r.Referer()
	if target == "" {
		target = "/"
	}
	h.HXRedirect(w, target)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.Logger.Error("invalid transaction ID", "id", idStr)
		h.WriteError(w, http.StatusBadRequest, "invalid transaction ID")
		return 0, false
	}
	return id, true
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseTimeParam(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func parseListFilters(r *http.Request) (ListFilters, error) {
	var filters ListFilters
	q := r.URL.Query()

	if v := q.Get("id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filters, err
		}
		filters.ID = &id
	}
	if v := q.Get("dateTimeMin"); v != "" {
		t, err := parseTimeParam(v)
		if err != nil {
			return filters, err
		}
		filters.DateTimeMin = &t
	}
	if v := q.Get("dateTimeMax"); v != "" {
		t, err := parseTimeParam(v)
		if err != nil {
			return filters, err
		}
		filters.DateTimeMax = &t
	}
	if v := q.Get("amountMin"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return filters, err
		}
		filters.AmountMin = &d
	}
	if v := q.Get("amountMax"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return filters, err
		}
		filters.AmountMax = &d
	}
	if v := q.Get("createdBy"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filters, err
		}
		filters.CreatedBy = &id
	}
	filters.Search = q.Get("search")

	return filters, nil
}

// dtoFromForm maps the HTMX modal form fields onto the create DTO.
func dtoFromForm(r *http.Request) (CreateTransactionDTO, error) {
	var dto CreateTransactionDTO

	if err := r.ParseForm(); err != nil {
		return dto, err
	}

	if v := r.PostFormValue("category"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			dto.Category = &id
		}
	}
	if v := r.PostFormValue("amount"); v != "" {
		dto.Amount = &v
	}
	if v := r.PostFormValue("date_time"); v != "" {
		if t, err := parseTimeParam(v); err == nil {
			dto.DateTime = &t
		}
	}
	dto.PaymentType = r.PostFormValue("payment_type")
	dto.TransactionType = r.PostFormValue("transaction_type")
	dto.Remarks = r.PostFormValue("remarks")

	return dto, nil
}
