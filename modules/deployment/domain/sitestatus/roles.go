package sitestatus

import "fmt"

// Role is a fixed directory role. Role assignment itself is owned by the
// directory collaborator; the engine only consumes resolved roles.
type Role string

const (
	RoleAdmin              Role = "admin"
	RoleOpsManager         Role = "ops_manager"
	RoleDeploymentEngineer Role = "deployment_engineer"
	RoleUser               Role = "user"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleOpsManager, RoleDeploymentEngineer, RoleUser:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}
