package bmr

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"storedesk/api/ledger"
	"storedesk/api/shared/web"
	"storedesk/infrastructure/audit"
	"storedesk/infrastructure/sqlite"
)

// GroupedQueryHandler returns the per-item aggregation across processed
// stores.
func GroupedQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups, err := GroupByItem(r.Context(), db)
		if err != nil {
			slog.Error("group by item failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to group worksheet rows")
			return
		}
		web.RespondJSON(w, http.StatusOK, groups)
	}
}

// OpenCycleCommandHandler starts a new workflow cycle.
func OpenCycleCommandHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cycle, err := OpenCycle(r.Context(), db)
		if err != nil {
			slog.Error("open cycle failed", slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to open cycle")
			return
		}
		web.RespondJSON(w, http.StatusCreated, cycle)
	}
}

// AssignFactoryCommandHandler applies one chunk of factory assignments.
func AssignFactoryCommandHandler(db *sqlite.DB, auditSvc *audit.Service, mode ledger.TotalMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cycleID, err := parseCycleID(r)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid cycle id")
			return
		}
		var chunk AssignChunk
		if err := web.DecodeJSON(r, &chunk); err != nil {
			web.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(chunk.Assignments) == 0 {
			web.RespondError(w, http.StatusBadRequest, "no assignments in chunk")
			return
		}

		res, err := AssignFactory(r.Context(), db, auditSvc, mode, cycleID, chunk)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				web.RespondError(w, http.StatusNotFound, "cycle not found")
			case errors.Is(err, ErrCycleClosed):
				web.RespondError(w, http.StatusConflict, "cycle already closed")
			default:
				slog.Error("assign factory failed", slog.Int64("cycle_id", cycleID), slog.Any("err", err))
				web.RespondError(w, http.StatusInternalServerError, "failed to assign factories")
			}
			return
		}
		web.RespondJSON(w, http.StatusOK, res)
	}
}

// CycleEntriesQueryHandler returns the ledger entries scoped to one cycle.
func CycleEntriesQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cycleID, err := parseCycleID(r)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "invalid cycle id")
			return
		}
		rows, err := CycleEntries(r.Context(), db, cycleID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				web.RespondError(w, http.StatusNotFound, "cycle not found")
				return
			}
			slog.Error("load cycle entries failed", slog.Int64("cycle_id", cycleID), slog.Any("err", err))
			web.RespondError(w, http.StatusInternalServerError, "failed to load cycle entries")
			return
		}
		web.RespondJSON(w, http.StatusOK, rows)
	}
}

func parseCycleID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
