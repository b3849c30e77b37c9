package api

import (
	"net/http"
	"strconv"

	"github.com/vouchd/vouchd/internal/api/presenter"
	"github.com/vouchd/vouchd/internal/core"
)

const defaultAuditLimit = 100

// auditReader is implemented by auditors that keep entries queryable.
type auditReader interface {
	GetRecent(limit int) ([]core.AuditEntry, error)
}

func (s *Server) handleAuditEntries(w http.ResponseWriter, r *http.Request) {
	reader, ok := s.auditor.(auditReader)
	if !ok {
		presenter.Error(w, r, "configured auditor does not support reading entries", http.StatusNotImplemented)
		return
	}

	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			presenter.Error(w, r, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := reader.GetRecent(limit)
	if err != nil {
		presenter.Error(w, r, "reading audit entries failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	presenter.JSON(w, r, entries, http.StatusOK)
}
