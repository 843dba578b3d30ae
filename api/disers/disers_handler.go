package disers

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"

	"storedesk/api/batch"
	"storedesk/api/shared/web"
	"storedesk/infrastructure/audit"
	"storedesk/infrastructure/sqlite"
)

// DisersListQueryHandler returns the diser roster with store names.
func DisersListQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := ListDisers(r.Context(), db)
		if err != nil {
			slog.Error("list disers failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to list disers")
			return
		}
		web.RespondJSON(w, http.StatusOK, rows)
	}
}

// DiserQueryHandler returns one diser.
func DiserQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseDiserID(r)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid diser id")
			return
		}
		diser, err := GetDiser(r.Context(), db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				web.RespondError(w, http.StatusNotFound, "diser not found")
				return
			}
			slog.Error("load diser failed", slog.Int64("diser_id", id), slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to load diser")
			return
		}
		web.RespondJSON(w, http.StatusOK, diser)
	}
}

// DiserCreateCommandHandler inserts one diser.
func DiserCreateCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDiserRequest
		if err := web.DecodeJSON(r, &req); err != nil {
			web.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		diser, err := CreateDiser(r.Context(), db, auditSvc, req)
		if err != nil {
			var verr *batch.ValidationError
			if errors.As(err, &verr) {
				web.RespondError(w, http.StatusBadRequest, verr.Msg)
				return
			}
			slog.Error("create diser failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to create diser")
			return
		}
		web.RespondJSON(w, http.StatusCreated, diser)
	}
}

// DiserDeleteCommandHandler removes one diser.
func DiserDeleteCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseDiserID(r)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid diser id")
			return
		}
		if err := DeleteDiser(r.Context(), db, auditSvc, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				web.RespondError(w, http.StatusNotFound, "diser not found")
				return
			}
			slog.Error("delete diser failed", slog.Int64("diser_id", id), slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to delete diser")
			return
		}
		web.RespondJSON(w, http.StatusOK, map[string]int64{"deleted": id})
	}
}

// DisersBatchCommandHandler applies partial edits to diser rows.
func DisersBatchCommandHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var updates []batch.Update
		if err := web.DecodeJSON(r, &updates); err != nil {
			web.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		var res batch.Result
		err := db.WithWriteTx(r.Context(), func(ctx context.Context, tx bun.Tx) error {
			var err error
			res, err = batch.Apply(ctx, tx, DiserSchema(), updates)
			return err
		})
		if err != nil {
			var verr *batch.ValidationError
			if errors.As(err, &verr) {
				web.RespondError(w, http.StatusBadRequest, verr.Error())
				return
			}
			slog.Error("disers batch failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to apply diser batch")
			return
		}
		web.RespondJSON(w, http.StatusOK, res)
	}
}

func parseDiserID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
