package supervisor

import "fmt"

// =============================================================================
// Unit Naming Functions
// =============================================================================

// UnitName generates the program unit name for a service.
// Pattern: {project}-{branch}-{service}
//
// Example:
//
//	UnitName("shop", "main", "web") // returns "shop-main-web"
func UnitName(project, branch, service string) string {
	return fmt.Sprintf("%s-%s-%s", project, branch, service)
}

// GroupName generates the group unit name for a deployment.
// Pattern: {project}-{branch}
func GroupName(project, branch string) string {
	return fmt.Sprintf("%s-%s", project, branch)
}

// UnitFileName returns the config file name for a program unit.
func UnitFileName(unitName string) string {
	return unitName + ".conf"
}

// GroupFileName returns the config file name for the group unit.
func GroupFileName(project, branch string) string {
	return fmt.Sprintf("%s-%s-group.conf", project, branch)
}
