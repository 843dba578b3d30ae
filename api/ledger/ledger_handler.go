package ledger

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

// LedgerListQueryHandler returns every ledger entry ordered by item name.
func LedgerListQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := ListEntries(r.Context(), db)
		if err != nil {
			slog.Error("list ledger entries failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to list ledger entries")
			return
		}
		web.RespondJSON(w, http.StatusOK, rows)
	}
}

// LedgerEntryQueryHandler returns one ledger entry.
func LedgerEntryQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseEntryID(r)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid ledger entry id")
			return
		}
		entry, err := GetEntry(r.Context(), db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				web.RespondError(w, http.StatusNotFound, "ledger entry not found")
				return
			}
			slog.Error("load ledger entry failed", slog.Int64("entry_id", id), slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to load ledger entry")
			return
		}
		web.RespondJSON(w, http.StatusOK, entry)
	}
}

// LedgerDeleteCommandHandler hard-deletes one ledger entry.
func LedgerDeleteCommandHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseEntryID(r)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid ledger entry id")
			return
		}
		if err := DeleteEntry(r.Context(), db, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				web.RespondError(w, http.StatusNotFound, "ledger entry not found")
				return
			}
			slog.Error("delete ledger entry failed", slog.Int64("entry_id", id), slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to delete ledger entry")
			return
		}
		web.RespondJSON(w, http.StatusOK, map[string]int64{"deleted": id})
	}
}

// LedgerBatchCommandHandler applies mid-cycle field edits: no roll-forward,
// no store reset, changes apply as-is with the derived chain recomputed.
func LedgerBatchCommandHandler(db *sqlite.DB, mode TotalMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var updates []batch.Update
		if err := web.DecodeJSON(r, &updates); err != nil {
			web.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		var res batch.Result
		err := db.WithWriteTx(r.Context(), func(ctx context.Context, tx bun.Tx) error {
			var err error
			res, err = batch.Apply(ctx, tx, EntrySchema(mode), updates)
			return err
		})
		if err != nil {
			var verr *batch.ValidationError
			if errors.As(err, &verr) {
				web.RespondError(w, http.StatusBadRequest, verr.Error())
				return
			}
			slog.Error("ledger batch failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to apply ledger batch")
			return
		}
		web.RespondJSON(w, http.StatusOK, res)
	}
}

// GenerateBarcodesCommandHandler runs the stage-transition commit for one
// cycle.
func GenerateBarcodesCommandHandler(db *sqlite.DB, auditSvc *audit.Service, mode TotalMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cycleID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid cycle id")
			return
		}
		var updates []batch.Update
		if err := web.DecodeJSON(r, &updates); err != nil {
			web.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := GenerateBarcodes(r.Context(), db, auditSvc, mode, cycleID, updates)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				web.RespondError(w, http.StatusNotFound, "cycle not found")
			case errors.Is(err, ErrCycleClosed):
				web.RespondError(w, http.StatusConflict, "cycle already closed")
			default:
				var verr *batch.ValidationError
				if errors.As(err, &verr) {
					web.RespondError(w, http.StatusBadRequest, verr.Error())
					return
				}
				slog.Error("generate barcodes failed", slog.Int64("cycle_id", cycleID), slog.Any("err", err))
				web.RespondError(w, http.StatusInternalServerError, "failed to generate barcodes")
			}
			return
		}
		web.RespondJSON(w, http.StatusOK, res)
	}
}

func parseEntryID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
