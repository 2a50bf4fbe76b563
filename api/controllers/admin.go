package controllers

import (
	"net/http"

	"github.com/seqstage/seqstage-backend/api/responses"
	"github.com/seqstage/seqstage-backend/internal/broker"
	"github.com/seqstage/seqstage-backend/pkg/logger"
)

// AdminExpireLeases runs the reap sweep on demand. The cron worker runs the
// same sweep on an interval; both paths are concurrent-safe.
func AdminExpireLeases(svc broker.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.ExpireStaleLeases(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
