package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/seqstage/seqstage-backend/api/responses"
	"github.com/seqstage/seqstage-backend/api/validators"
	"github.com/seqstage/seqstage-backend/internal/attempts"
	"github.com/seqstage/seqstage-backend/internal/broker"
	"github.com/seqstage/seqstage-backend/pkg/config"
	"github.com/seqstage/seqstage-backend/pkg/enums"
	pkgerrors "github.com/seqstage/seqstage-backend/pkg/errors"
	"github.com/seqstage/seqstage-backend/pkg/logger"
	"github.com/seqstage/seqstage-backend/pkg/pagination"
	"github.com/seqstage/seqstage-backend/pkg/types"
)

type reportItemRequest struct {
	ID              uuid.UUID        `json:"id" validate:"required"`
	Status          string           `json:"status" validate:"required"`
	ResponsePayload types.PayloadMap `json:"response_payload,omitempty"`
	Accession       *string          `json:"accession,omitempty"`
	ParentAccession *string          `json:"parent_accession,omitempty"`
	SubmittedAt     *time.Time       `json:"submitted_at,omitempty"`
}

type reportRequest struct {
	Samples     []reportItemRequest `json:"samples,omitempty" validate:"dive"`
	Experiments []reportItemRequest `json:"experiments,omitempty" validate:"dive"`
	Reads       []reportItemRequest `json:"reads,omitempty" validate:"dive"`
	Projects    []reportItemRequest `json:"projects,omitempty" validate:"dive"`
}

func (req *reportRequest) toInput(attemptID uuid.UUID) (broker.ReportInput, error) {
	input := broker.ReportInput{
		AttemptID: attemptID,
		Items:     make(map[enums.EntityType][]broker.ReportItem),
	}
	lists := map[enums.EntityType][]reportItemRequest{
		enums.EntityTypeSample:     req.Samples,
		enums.EntityTypeExperiment: req.Experiments,
		enums.EntityTypeRead:       req.Reads,
		enums.EntityTypeProject:    req.Projects,
	}
	for entityType, list := range lists {
		if len(list) == 0 {
			continue
		}
		items := make([]broker.ReportItem, 0, len(list))
		for _, raw := range list {
			status, err := enums.ParseSubmissionStatus(raw.Status)
			if err != nil {
				return broker.ReportInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
			}
			items = append(items, broker.ReportItem{
				SubmissionID:    raw.ID,
				Status:          status,
				Accession:       raw.Accession,
				ParentAccession: raw.ParentAccession,
				ResponsePayload: raw.ResponsePayload,
				SubmittedAt:     raw.SubmittedAt,
			})
		}
		input.Items[entityType] = items
	}
	return input, nil
}

// AttemptRenew extends the attempt's lease window.
func AttemptRenew(svc broker.Service, cfg config.BrokerConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseAttemptID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		extend, err := validators.ParseQueryInt(r, "extend_minutes", 0, 1, cfg.MaxLeaseMinutes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Renew(r.Context(), id, extend)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AttemptReport applies externally observed per-record outcomes.
func AttemptReport(svc broker.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseAttemptID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req reportRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := req.toInput(id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Report(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AttemptFinalize releases the attempt's remaining leases and closes it.
func AttemptFinalize(svc broker.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseAttemptID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Finalize(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AttemptsList returns the cursor-paginated attempt history, newest first.
func AttemptsList(svc attempts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := attempts.ListParams{
			OrganismKey: validators.SanitizeString(r.URL.Query().Get("organism_key"), 255),
			Limit:       limit,
			Cursor:      r.URL.Query().Get("cursor"),
		}
		result, err := svc.ListAttempts(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AttemptGet returns one attempt with its derived status, optionally with
// its associated records grouped by entity type.
func AttemptGet(svc attempts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseAttemptID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		includeItems := r.URL.Query().Get("include_items") == "true"
		detail, err := svc.GetAttempt(r.Context(), id, includeItems)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// AttemptItems returns the attempt's associated records grouped by type.
func AttemptItems(svc attempts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseAttemptID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.AttemptItems(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"attempt_id": id, "items": items})
	}
}
