package user

import (
	"strconv"

	"github.com/ignite/billingd/internal/domain"
)

// diff computes the field changes a patch would apply to the current user,
// stringified as {"field": {"old": ..., "new": ...}} for the update event
// payload. Fields whose new value equals the current one are omitted, so an
// empty diff means the patch is a no-op.
func diff(current *domain.User, patch domain.UserPatch) map[string]map[string]string {
	changes := make(map[string]map[string]string)

	if v, ok := patch.Email.Value(); ok && v != current.Email {
		changes["email"] = map[string]string{"old": current.Email, "new": v}
	}
	if v, ok := patch.Name.Value(); ok && v != current.Name {
		changes["name"] = map[string]string{"old": current.Name, "new": v}
	}
	if !patch.Age.IsUnset() {
		oldVal := stringifyAge(current.Age)
		newVal := stringifyAge(patch.Age.Ptr())
		if oldVal != newVal {
			changes["age"] = map[string]string{"old": oldVal, "new": newVal}
		}
	}

	return changes
}

func stringifyAge(age *int) string {
	if age == nil {
		return "null"
	}
	return strconv.Itoa(*age)
}
