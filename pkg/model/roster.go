package model

import "sort"

type Role string

const (
	RoleRoot       Role = "root"
	RoleSelf       Role = "self"
	RoleChild      Role = "child"
	RoleGrandchild Role = "grandchild"
)

// DisplayOrder is the fixed row order of every snapshot
var DisplayOrder = []Role{RoleRoot, RoleSelf, RoleChild, RoleGrandchild}

// RootPID is the PID of the tree root (init)
const RootPID PID = 1

// Roster maps each observed role to the PID it had when first seen
type Roster map[Role]PID

func (r Roster) Has(role Role) bool {
	_, ok := r[role]
	return ok
}

func (r Roster) Clone() Roster {
	out := make(Roster, len(r))
	for role, pid := range r {
		out[role] = pid
	}
	return out
}

// Merge adds the roles of other that r does not know yet.
// Known roles keep their PID even if other disagrees.
func (r Roster) Merge(other Roster) {
	for role, pid := range other {
		if _, ok := r[role]; !ok {
			r[role] = pid
		}
	}
}

// Roles returns the roles of r sorted by name
func (r Roster) Roles() []Role {
	roles := make([]Role, 0, len(r))
	for role := range r {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}
