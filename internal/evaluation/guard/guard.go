// Package guard is the single authority on whether a historical evaluation or
// one of its action items may be mutated. It is a pure policy evaluator:
// every input (actor, record, recency window, current time) arrives as an
// argument, and the verdict comes back as a tagged decision, never as a
// silent no-op.
package guard

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"clave/internal/auth"
	"clave/internal/evaluation/models"
)

// Op distinguishes evaluation updates from deletes. The current policy treats
// them identically; the parameter keeps call sites explicit and leaves room
// for the operations to diverge.
type Op string

const (
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Reason identifies why a mutation was denied.
type Reason string

const (
	ReasonRoleForbidden      Reason = "role_forbidden"
	ReasonNotOwner           Reason = "not_owner"
	ReasonStaleWindow        Reason = "stale_window"
	ReasonNotRecentEnough    Reason = "not_recent_enough"
	ReasonFutureTimestamp    Reason = "future_timestamp"
	ReasonNewTimestampTooOld Reason = "new_timestamp_too_old"
)

// EditWindow is how long a non-admin editor may keep mutating an evaluation
// after its timestamp.
const EditWindow = 24 * time.Hour

// RecentWindowSize is how many of the most recently timestamped evaluations
// keep their action items editable ("only the last two activated protocols'
// measures are editable").
const RecentWindowSize = 2

// Decision is the guard's verdict. Denials always carry a reason and a
// human-readable detail.
type Decision struct {
	Allowed bool
	Reason  Reason
	Detail  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason Reason, detail string) Decision {
	return Decision{Reason: reason, Detail: detail}
}

// CanMutateEvaluation decides whether actor may update or delete eval.
// Checks run in a fixed order and the first denial wins. recentIDs is
// accepted for signature symmetry with CanMutateActionItem; evaluations
// themselves are not recency-gated. now must be UTC.
func CanMutateEvaluation(actor auth.Actor, eval *models.Evaluation, recentIDs []uuid.UUID, op Op, now time.Time) Decision {
	_ = recentIDs
	if actor.Role != auth.RoleAdministrator && actor.Role != auth.RoleEditorManager {
		return deny(ReasonRoleForbidden, fmt.Sprintf("role %q may not %s evaluations", actor.Role, op))
	}
	if d := checkEditorRestrictions(actor, eval, now); !d.Allowed {
		return d
	}
	return allow()
}

// CanMutateActionItem decides whether actor may change the status of an
// action item owned by eval. Every authenticated role passes the role check;
// ownership and the edit window bind editors only, while the recency gate
// binds everyone, administrators included.
func CanMutateActionItem(actor auth.Actor, eval *models.Evaluation, recentIDs []uuid.UUID, now time.Time) Decision {
	if !actor.Role.Valid() {
		return deny(ReasonRoleForbidden, fmt.Sprintf("unknown role %q", actor.Role))
	}
	if d := checkEditorRestrictions(actor, eval, now); !d.Allowed {
		return d
	}
	for _, id := range recentIDs {
		if id == eval.ID {
			return allow()
		}
	}
	return deny(ReasonNotRecentEnough, fmt.Sprintf("only the measures of the last %d activated protocols are editable", RecentWindowSize))
}

// CheckNewTimestamp validates a replacement timestamp carried by an
// evaluation update: never in the future, and for non-admin editors never
// older than the edit window.
func CheckNewTimestamp(actor auth.Actor, newTS, now time.Time) Decision {
	newTS = newTS.UTC()
	if newTS.After(now) {
		return deny(ReasonFutureTimestamp, "new timestamp may not be in the future")
	}
	if actor.Role == auth.RoleEditorManager && now.Sub(newTS) > EditWindow {
		return deny(ReasonNewTimestampTooOld, "new timestamp may not be older than 24 hours")
	}
	return allow()
}

// checkEditorRestrictions applies the ownership and edit-window rules that
// bind non-admin editors. Naive stored timestamps compare as UTC.
func checkEditorRestrictions(actor auth.Actor, eval *models.Evaluation, now time.Time) Decision {
	if actor.Role != auth.RoleEditorManager {
		return allow()
	}
	if eval.EvaluatorID != actor.ID {
		return deny(ReasonNotOwner, "editors may not mutate other users' evaluations")
	}
	if now.Sub(eval.TimestampUTC()) > EditWindow {
		return deny(ReasonStaleWindow, "editors may only mutate evaluations less than 24 hours old")
	}
	return allow()
}
