package transaction

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/xuri/excelize/v2"

	"github.com/VivaainNg/finance-tracker/internal"
	"github.com/VivaainNg/finance-tracker/internal/auth"
)

const exportTimeLayout = "2006-01-02 15:04:05"

var exportHeader = []string{
	"Datetime",
	"Amount(RM)",
	"Payment Type",
	"Category",
	"Transaction Type",
	"Remarks",
	"Created By",
}

// ExportTransactions streams the requester's filtered transactions as
// CSV or XLSX. The filter state lives in the referring page's query
// string, so it is reconstructed from the Referer header rather than
// from the request URL itself.
func (h *Handler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	filters := exportFiltersFromReferer(r.Referer())
	if user, ok := auth.UserFromContext(r.Context()); ok {
		filters.OwnerID = &user.ID
	}

	txs, err := h.Service.Export(filters)
	if err != nil {
		h.Logger.Error("ExportTransactions: service error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to export transactions")
		return
	}

	format := chi.URLParam(r, "format")
	switch format {
	case "csv":
		h.writeCSV(w, txs)
	case "xlsx":
		h.writeXLSX(w, txs)
	default:
		h.Logger.Warn("ExportTransactions: unsupported format", "format", format)
		h.HandleServiceError(w, internal.ErrUnsupportedFormat)
	}
}

// exportFiltersFromReferer parses the datatable filter parameters out
// of the referring page's URL. A missing or unparseable Referer simply
// yields no filters.
func exportFiltersFromReferer(referer string) ExportFilters {
	var filters ExportFilters
	if referer == "" {
		return filters
	}

	u, err := url.Parse(referer)
	if err != nil {
		return filters
	}
	q := u.Query()

	filters.Remarks = q.Get("remarks")
	filters.PaymentType = q.Get("payment_type")
	filters.TransactionType = q.Get("transaction_type")
	for _, raw := range q["category"] {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filters.CategoryIDs = append(filters.CategoryIDs, id)
		}
	}

	return filters
}

func exportRow(t *Transaction) []string {
	return []string{
		t.DateTime.Format(exportTimeLayout),
		t.Amount.StringFixed(2),
		t.PaymentType,
		t.CategoryName,
		t.TransactionType,
		t.Remarks,
		t.CreatedByUsername,
	}
}

func (h *Handler) writeCSV(w http.ResponseWriter, txs []*Transaction) {
	filename := fmt.Sprintf("transactions-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		h.Logger.Error("writeCSV: header write failed", "error", err)
		return
	}
	for _, t := range txs {
		if err := cw.Write(exportRow(t)); err != nil {
			h.Logger.Error("writeCSV: row write failed", "error", err, "transaction_id", t.ID)
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.Logger.Error("writeCSV: flush failed", "error", err)
	}
}

func (h *Handler) writeXLSX(w http.ResponseWriter, txs []*Transaction) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Transactions"
	index, err := f.NewSheet(sheet)
	if err != nil {
		h.Logger.Error("writeXLSX: sheet creation failed", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	header := make([]interface{}, len(exportHeader))
	for i, col := range exportHeader {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		h.Logger.Error("writeXLSX: header write failed", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}

	for i, t := range txs {
		row := exportRow(t)
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			h.Logger.Error("writeXLSX: row write failed", "error", err, "transaction_id", t.ID)
			h.WriteError(w, http.StatusInternalServerError, "failed to build workbook")
			return
		}
	}

	filename := fmt.Sprintf("transactions-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := f.Write(w); err != nil {
		h.Logger.Error("writeXLSX: response write failed", "error", err)
	}
}
