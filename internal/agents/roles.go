package agents

// Role identifies one specialist agent in the pipeline.
type Role string

const (
	RolePlanner  Role = "planner"
	RoleReviewer Role = "reviewer"

	// Producer roles. Each owns one slice of the generated project.
	RoleUI   Role = "ui"
	RoleAPI  Role = "api"
	RoleData Role = "data"
)

// DefaultProducerRoles returns the producer roles in their merge order.
// Artifacts from a later role override same-named artifacts from an earlier
// one, so the data role is authoritative for shared files like schemas.
func DefaultProducerRoles() []Role {
	return []Role{RoleUI, RoleAPI, RoleData}
}

// KnownProducerRole reports whether the role has a dedicated producer scope.
// Unknown roles still run, with a generic scope.
func KnownProducerRole(r Role) bool {
	_, ok := producerScopes[r]
	return ok
}
