package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seqstage/seqstage-backend/api/responses"
	"github.com/seqstage/seqstage-backend/internal/attempts"
	"github.com/seqstage/seqstage-backend/pkg/logger"
)

// OrganismSummary aggregates staging state for one organism: record status
// counts per entity type plus its recent attempts.
func OrganismSummary(svc attempts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.SummarizeOrganism(r.Context(), chi.URLParam(r, "scopeKey"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
