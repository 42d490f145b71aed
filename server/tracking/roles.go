package tracking

import (
	"sort"

	"github.com/matchvision/pov-overlay/server/models"
)

// RoleTable maps raw tracker ids to semantic roles. It is immutable once
// built and injected at construction, never a package global, so tests and
// multiple sessions can carry distinct mappings.
//
// Several ids may map to the same role: id continuity breaks when the tracker
// loses a person (occlusion, a dive) and re-detects them under a fresh id.
type RoleTable struct {
	byID  map[int]models.Role
	roles []models.Role
}

func NewRoleTable(mapping map[int]models.Role) RoleTable {
	byID := make(map[int]models.Role, len(mapping))
	seen := make(map[models.Role]bool)
	var roles []models.Role

	for id, role := range mapping {
		byID[id] = role
		if !seen[role] {
			seen[role] = true
			roles = append(roles, role)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })

	return RoleTable{byID: byID, roles: roles}
}

// Resolve returns the role for a raw track id. Unknown ids report ok=false
// and are dropped silently by callers: not every detected object corresponds
// to a modeled role.
func (t RoleTable) Resolve(trackID int) (models.Role, bool) {
	role, ok := t.byID[trackID]
	return role, ok
}

// Roles returns every distinct role in the table, in stable order.
func (t RoleTable) Roles() []models.Role {
	return t.roles
}

func (t RoleTable) Len() int {
	return len(t.byID)
}
