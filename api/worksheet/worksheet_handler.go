package worksheet

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
	"storedesk/infrastructure/sqlite"
)

// WorksheetQueryHandler returns the full worksheet for a store.
func WorksheetQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := parseStoreID(r)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid store id")
			return
		}
		data, err := LoadPageData(r.Context(), db, storeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				web.RespondError(w, http.StatusNotFound, "store not found")
				return
			}
			slog.Error("load worksheet failed", slog.Int64("store_id", storeID), slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to load worksheet")
			return
		}
		web.RespondJSON(w, http.StatusOK, data)
	}
}

// WorksheetBatchCommandHandler applies a list of partial row edits for one
// store as a single transaction. Raw-field edits recompute the derived
// columns; rows belonging to other stores are skipped silently.
func WorksheetBatchCommandHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := parseStoreID(r)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid store id")
			return
		}
		var updates []batch.Update
		if err := web.DecodeJSON(r, &updates); err != nil {
			web.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		var res batch.Result
		err = db.WithWriteTx(r.Context(), func(ctx context.Context, tx bun.Tx) error {
			var err error
			res, err = batch.Apply(ctx, tx, RowSchema(storeID), updates)
			return err
		})
		if err != nil {
			var verr *batch.ValidationError
			if errors.As(err, &verr) {
				web.RespondError(w, http.StatusBadRequest, verr.Error())
				return
			}
			slog.Error("worksheet batch failed", slog.Int64("store_id", storeID), slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to apply worksheet batch")
			return
		}
		web.RespondJSON(w, http.StatusOK, res)
	}
}

func parseStoreID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
