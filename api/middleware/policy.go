package middleware

import (
	"net/http"

	"github.com/seqstage/seqstage-backend/api/responses"
	"github.com/seqstage/seqstage-backend/pkg/enums"
	pkgerrors "github.com/seqstage/seqstage-backend/pkg/errors"
	"github.com/seqstage/seqstage-backend/pkg/logger"
)

// Action names a guarded operation. Routes declare the action they perform
// and the static policy table below decides which roles may perform it.
type Action string

const (
	ActionBrokerClaim       Action = "broker:claim"
	ActionBrokerReport      Action = "broker:report"
	ActionBrokerRenew       Action = "broker:renew"
	ActionBrokerFinalize    Action = "broker:finalize"
	ActionDashboardRead     Action = "dashboard:read"
	ActionAdminExpireLeases Action = "admin:expire_leases"
)

var policy = map[Action][]enums.ActorRole{
	ActionBrokerClaim:    {enums.ActorRoleBroker, enums.ActorRoleAdmin},
	ActionBrokerReport:   {enums.ActorRoleBroker, enums.ActorRoleAdmin},
	ActionBrokerRenew:    {enums.ActorRoleBroker, enums.ActorRoleAdmin},
	ActionBrokerFinalize: {enums.ActorRoleBroker, enums.ActorRoleAdmin},
	ActionDashboardRead: {
		enums.ActorRoleAdmin,
		enums.ActorRoleCurator,
		enums.ActorRoleBroker,
		enums.ActorRoleGenomeLauncher,
	},
	ActionAdminExpireLeases: {enums.ActorRoleAdmin},
}

// Allowed reports whether the role may perform the action. Unknown actions
// are denied.
func Allowed(action Action, role enums.ActorRole) bool {
	for _, allowed := range policy[action] {
		if allowed == role {
			return true
		}
	}
	return false
}

// RequireAction rejects requests whose context role is not permitted the
// action. It assumes Auth already ran.
func RequireAction(action Action, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Allowed(action, RoleFromContext(r.Context())) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "action not permitted for role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
