package items

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"

	"storedesk/api/batch"
	"storedesk/api/shared/web"
	"storedesk/infrastructure/audit"
	"storedesk/infrastructure/sqlite"
)

// ItemsListQueryHandler returns the item master.
func ItemsListQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := ListItems(r.Context(), db)
		if err != nil {
			slog.Error("list items failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to list items")
			return
		}
		web.RespondJSON(w, http.StatusOK, rows)
	}
}

// ItemQueryHandler returns one item.
func ItemQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseItemID(r)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid item id")
			return
		}
		item, err := GetItem(r.Context(), db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				web.RespondError(w, http.StatusNotFound, "item not found")
				return
			}
			slog.Error("load item failed", slog.Int64("item_id", id), slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to load item")
			return
		}
		web.RespondJSON(w, http.StatusOK, item)
	}
}

// ItemCreateCommandHandler inserts one item.
func ItemCreateCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateItemRequest
		if err := web.DecodeJSON(r, &req); err != nil {
			web.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		item, err := CreateItem(r.Context(), db, auditSvc, req)
		if err != nil {
			var verr *batch.ValidationError
			if errors.As(err, &verr) {
				web.RespondError(w, http.StatusBadRequest, verr.Msg)
				return
			}
			var serr sqlite3.Error
			if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
				web.RespondError(w, http.StatusConflict, "company code already exists")
				return
			}
			slog.Error("create item failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to create item")
			return
		}
		web.RespondJSON(w, http.StatusCreated, item)
	}
}

// ItemDeleteCommandHandler removes one item with its dependent rows.
func ItemDeleteCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseItemID(r)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid item id")
			return
		}
		if err := DeleteItem(r.Context(), db, auditSvc, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				web.RespondError(w, http.StatusNotFound, "item not found")
				return
			}
			slog.Error("delete item failed", slog.Int64("item_id", id), slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to delete item")
			return
		}
		web.RespondJSON(w, http.StatusOK, map[string]int64{"deleted": id})
	}
}

// ItemsBatchCommandHandler applies partial edits to item rows.
func ItemsBatchCommandHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var updates []batch.Update
		if err := web.DecodeJSON(r, &updates); err != nil {
			web.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		var res batch.Result
		err := db.WithWriteTx(r.Context(), func(ctx context.Context, tx bun.Tx) error {
			var err error
			res, err = batch.Apply(ctx, tx, ItemSchema(), updates)
			return err
		})
		if err != nil {
			var verr *batch.ValidationError
			if errors.As(err, &verr) {
				web.RespondError(w, http.StatusBadRequest, verr.Error())
				return
			}
			slog.Error("items batch failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to apply item batch")
			return
		}
		web.RespondJSON(w, http.StatusOK, res)
	}
}

// ItemsImportCommandHandler ingests the item master CSV.
func ItemsImportCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reader, err := importReader(r)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		summary, err := ImportCSV(r.Context(), db, auditSvc, reader)
		if err != nil {
			if strings.Contains(err.Error(), "CSV header") {
				web.RespondError(w, http.StatusBadRequest, err.Error())
				return
			}
			slog.Error("item import failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to import items")
			return
		}
		web.RespondJSON(w, http.StatusOK, summary)
	}
}

// ItemBarcodeQueryHandler renders the item's company code as a code128 PNG.
func ItemBarcodeQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseItemID(r)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid item id")
			return
		}
		item, err := GetItem(r.Context(), db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				web.RespondError(w, http.StatusNotFound, "item not found")
				return
			}
			slog.Error("load item failed", slog.Int64("item_id", id), slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to load item")
			return
		}

		pngBytes, err := RenderCode128PNG(item.CompanyCode, 600, 140)
		if err != nil {
			slog.Error("render barcode failed", slog.Int64("item_id", id), slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to render barcode")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(pngBytes)))
		_, _ = w.Write(pngBytes)
	}
}

func importReader(r *http.Request) (io.Reader, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New("missing file upload")
		}
		return file, nil
	}
	return r.Body, nil
}

func parseItemID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
