package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/seqstage/seqstage-backend/api/responses"
	"github.com/seqstage/seqstage-backend/api/validators"
	"github.com/seqstage/seqstage-backend/internal/broker"
	"github.com/seqstage/seqstage-backend/pkg/config"
	"github.com/seqstage/seqstage-backend/pkg/enums"
	pkgerrors "github.com/seqstage/seqstage-backend/pkg/errors"
	"github.com/seqstage/seqstage-backend/pkg/logger"
)

type claimRequest struct {
	SampleIDs            []uuid.UUID `json:"sample_ids,omitempty"`
	ExperimentIDs        []uuid.UUID `json:"experiment_ids,omitempty"`
	ReadIDs              []uuid.UUID `json:"read_ids,omitempty"`
	ProjectIDs           []uuid.UUID `json:"project_ids,omitempty"`
	LeaseDurationMinutes int         `json:"lease_duration_minutes,omitempty" validate:"omitempty,min=1"`
	CampaignLabel        string      `json:"campaign_label,omitempty" validate:"omitempty,max=120"`
}

func (req *claimRequest) explicitIDs() map[enums.EntityType][]uuid.UUID {
	explicit := make(map[enums.EntityType][]uuid.UUID)
	if len(req.SampleIDs) > 0 {
		explicit[enums.EntityTypeSample] = req.SampleIDs
	}
	if len(req.ExperimentIDs) > 0 {
		explicit[enums.EntityTypeExperiment] = req.ExperimentIDs
	}
	if len(req.ReadIDs) > 0 {
		explicit[enums.EntityTypeRead] = req.ReadIDs
	}
	if len(req.ProjectIDs) > 0 {
		explicit[enums.EntityTypeProject] = req.ProjectIDs
	}
	if len(explicit) == 0 {
		return nil
	}
	return explicit
}

// BrokerClaim opens an attempt and leases eligible drafts to the caller.
// The body is optional; without explicit id lists the claim takes the
// latest draft per entity within the organism scope.
func BrokerClaim(svc broker.Service, cfg config.BrokerConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scopeKey := chi.URLParam(r, "scopeKey")

		perTypeLimit, err := validators.ParseQueryInt(r, "per_type_limit", 0, 1, cfg.MaxPerTypeLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req claimRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		input := broker.ClaimInput{
			ScopeKey:     scopeKey,
			PerTypeLimit: perTypeLimit,
			LeaseMinutes: req.LeaseDurationMinutes,
			ExplicitIDs:  req.explicitIDs(),
		}
		if label := validators.SanitizeString(req.CampaignLabel, 120); label != "" {
			input.CampaignLabel = &label
		}

		result, err := svc.Claim(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func parseAttemptID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "attempt id must be a uuid")
	}
	return id, nil
}
