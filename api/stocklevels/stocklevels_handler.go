package stocklevels

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"

	"storedesk/api/batch"
	"storedesk/api/shared/web"
	"storedesk/infrastructure/audit"
	"storedesk/infrastructure/sqlite"
)

// StockLevelsListQueryHandler returns every stocking target.
func StockLevelsListQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := ListStockLevels(r.Context(), db)
		if err != nil {
			slog.Error("list stock levels failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to list stock levels")
			return
		}
		web.RespondJSON(w, http.StatusOK, rows)
	}
}

// StockLevelQueryHandler returns one stocking target.
func StockLevelQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseStockLevelID(r)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid stock level id")
			return
		}
		level, err := GetStockLevel(r.Context(), db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				web.RespondError(w, http.StatusNotFound, "stock level not found")
				return
			}
			slog.Error("load stock level failed", slog.Int64("stock_level_id", id), slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to load stock level")
			return
		}
		web.RespondJSON(w, http.StatusOK, level)
	}
}

// StockLevelCreateCommandHandler inserts one stocking target.
func StockLevelCreateCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateStockLevelRequest
		if err := web.DecodeJSON(r, &req); err != nil {
			web.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		level, err := CreateStockLevel(r.Context(), db, auditSvc, req)
		if err != nil {
			var verr *batch.ValidationError
			if errors.As(err, &verr) {
				web.RespondError(w, http.StatusBadRequest, verr.Msg)
				return
			}
			var serr sqlite3.Error
			if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
				web.RespondError(w, http.StatusConflict, "target for this store and item already exists")
				return
			}
			slog.Error("create stock level failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to create stock level")
			return
		}
		web.RespondJSON(w, http.StatusCreated, level)
	}
}

// StockLevelDeleteCommandHandler removes one stocking target.
func StockLevelDeleteCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseStockLevelID(r)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid stock level id")
			return
		}
		if err := DeleteStockLevel(r.Context(), db, auditSvc, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				web.RespondError(w, http.StatusNotFound, "stock level not found")
				return
			}
			slog.Error("delete stock level failed", slog.Int64("stock_level_id", id), slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to delete stock level")
			return
		}
		web.RespondJSON(w, http.StatusOK, map[string]int64{"deleted": id})
	}
}

// StockLevelsBatchCommandHandler applies partial edits to targets.
func StockLevelsBatchCommandHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var updates []batch.Update
		if err := web.DecodeJSON(r, &updates); err != nil {
			web.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		var res batch.Result
		err := db.WithWriteTx(r.Context(), func(ctx context.Context, tx bun.Tx) error {
			var err error
			res, err = batch.Apply(ctx, tx, StockLevelSchema(), updates)
			return err
		})
		if err != nil {
			var verr *batch.ValidationError
			if errors.As(err, &verr) {
				web.RespondError(w, http.StatusBadRequest, verr.Error())
				return
			}
			slog.Error("stock levels batch failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to apply stock level batch")
			return
		}
		web.RespondJSON(w, http.StatusOK, res)
	}
}

func parseStockLevelID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
