package orders

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"storedesk/api/shared/web"
	"storedesk/infrastructure/audit"
	"storedesk/infrastructure/sequence"
	"storedesk/infrastructure/sqlite"
)

// CreateOrderCommandHandler finalizes a store's worksheet into an order.
func CreateOrderCommandHandler(db *sqlite.DB, auditSvc *audit.Service, defaultBoxCapacity int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid store id")
			return
		}
		var req CreateOrderRequest
		if err := web.DecodeJSON(r, &req); err != nil {
			web.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		order, err := CreateOrder(r.Context(), db, auditSvc, storeID, req.Notes, defaultBoxCapacity)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				web.RespondError(w, http.StatusNotFound, "store not found")
				return
			}
			slog.Error("create order failed", slog.Int64("store_id", storeID), slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to create order")
			return
		}
		web.RespondJSON(w, http.StatusCreated, order)
	}
}

// OrdersListQueryHandler returns order summaries, newest first.
func OrdersListQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := ListOrders(r.Context(), db)
		if err != nil {
			slog.Error("list orders failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to list orders")
			return
		}
		web.RespondJSON(w, http.StatusOK, rows)
	}
}

// OrderQueryHandler returns one order with its snapshot lines.
func OrderQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid order id")
			return
		}
		order, err := GetOrder(r.Context(), db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				web.RespondError(w, http.StatusNotFound, "order not found")
				return
			}
			slog.Error("load order failed", slog.Int64("order_id", id), slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to load order")
			return
		}
		web.RespondJSON(w, http.StatusOK, order)
	}
}

// NextPOQueryHandler reports the next PO number without consuming it.
func NextPOQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next, err := sequence.Peek(r.Context(), db, sequence.KindPO)
		if err != nil {
			slog.Error("peek po number failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to read next PO number")
			return
		}
		web.RespondJSON(w, http.StatusOK, map[string]int64{"next_po_number": next})
	}
}

// OrderExportQueryHandler streams one order as CSV.
func OrderExportQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid order id")
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=order-%d.csv", id))
		if err := writeOrderCSV(r.Context(), db, w, id); err != nil {
			slog.Error("export order failed", slog.Int64("order_id", id), slog.Any("err", err))
		}
	}
}
