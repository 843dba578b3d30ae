package stores

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

// StoresListQueryHandler returns the store master.
func StoresListQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := ListStores(r.Context(), db)
		if err != nil {
			slog.Error("list stores failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to list stores")
			return
		}
		web.RespondJSON(w, http.StatusOK, rows)
	}
}

// StoreQueryHandler returns one store.
func StoreQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseStoreID(r)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid store id")
			return
		}
		store, err := GetStore(r.Context(), db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				web.RespondError(w, http.StatusNotFound, "store not found")
				return
			}
			slog.Error("load store failed", slog.Int64("store_id", id), slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to load store")
			return
		}
		web.RespondJSON(w, http.StatusOK, store)
	}
}

// StoreCreateCommandHandler inserts one store.
func StoreCreateCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateStoreRequest
		if err := web.DecodeJSON(r, &req); err != nil {
			web.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		store, err := CreateStore(r.Context(), db, auditSvc, req)
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
			slog.Error("create store failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to create store")
			return
		}
		web.RespondJSON(w, http.StatusCreated, store)
	}
}

// StoreDeleteCommandHandler removes one store with its dependent rows.
func StoreDeleteCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseStoreID(r)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid store id")
			return
		}
		if err := DeleteStore(r.Context(), db, auditSvc, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				web.RespondError(w, http.StatusNotFound, "store not found")
				return
			}
			slog.Error("delete store failed", slog.Int64("store_id", id), slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to delete store")
			return
		}
		web.RespondJSON(w, http.StatusOK, map[string]int64{"deleted": id})
	}
}

// StoresBatchCommandHandler applies partial edits to store rows.
func StoresBatchCommandHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var updates []batch.Update
		if err := web.DecodeJSON(r, &updates); err != nil {
			web.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		var res batch.Result
		err := db.WithWriteTx(r.Context(), func(ctx context.Context, tx bun.Tx) error {
			var err error
			res, err = batch.Apply(ctx, tx, StoreSchema(), updates)
			return err
		})
		if err != nil {
			var verr *batch.ValidationError
			if errors.As(err, &verr) {
				web.RespondError(w, http.StatusBadRequest, verr.Error())
				return
			}
			slog.Error("stores batch failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to apply store batch")
			return
		}
		web.RespondJSON(w, http.StatusOK, res)
	}
}

// StoresImportCommandHandler ingests the store master CSV.
func StoresImportCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reader, err := importReader(r)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		summary, err := ImportCSV(r.Context(), db, auditSvc, reader)
		if err != nil {
			if strings.Contains(err.Error(), "invalid CSV header") || strings.Contains(err.Error(), "read header") {
				web.RespondError(w, http.StatusBadRequest, err.Error())
				return
			}
			slog.Error("store import failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to import stores")
			return
		}
		web.RespondJSON(w, http.StatusOK, summary)
	}
}

// importReader accepts either a bare CSV body or a multipart upload with a
// "file" part.
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

func parseStoreID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
