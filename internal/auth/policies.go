package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"

	"go-forum-app/internal/logger"
)

// Roles of the forum. member inherits anonymous and admin inherits member.
const (
	RoleAnonymous = "anonymous"
	RoleMember    = "member"
	RoleAdmin     = "admin"
)

// DefaultPolicies are the route permissions of each role.
var DefaultPolicies = [][]string{
	{RoleAnonymous, "/", "GET"},
	{RoleAnonymous, "/page/:page", "GET"},
	{RoleAnonymous, "/n/:id", "GET"},
	{RoleAnonymous, "/t/:id", "GET"},
	{RoleAnonymous, "/u/:id", "GET"},
	{RoleAnonymous, "/u/:id/topics", "GET"},
	{RoleAnonymous, "/search", "GET"},
	{RoleAnonymous, "/auth/login", "GET"},
	{RoleAnonymous, "/auth/callback", "GET"},
	{RoleAnonymous, "/robots.txt", "GET"},
	{RoleAnonymous, "/sitemap.xml", "GET"},
	{RoleAnonymous, "/static/*", "GET"},

	{RoleMember, "/t/:id", "POST"},
	{RoleMember, "/t/create", "POST"},
	{RoleMember, "/t/:id/edit", "GET"},
	{RoleMember, "/t/:id/edit", "POST"},
	{RoleMember, "/t/:id/append", "GET"},
	{RoleMember, "/t/:id/append", "POST"},
	{RoleMember, "/notifications", "GET"},
	{RoleMember, "/auth/logout", "GET"},

	{RoleAdmin, "/api/*", "*"},
}

// SeedDefaultPolicies ensures the default policies and role hierarchy exist
// and grants the admin role to admins. It is idempotent and runs on every start.
func SeedDefaultPolicies(e casbin.IEnforcer, admins []string, log logger.Logger) {
	log.Info("Seeding default authorization policies...")

	for _, p := range DefaultPolicies {
		if has, _ := e.HasPolicy(p); !has {
			if _, err := e.AddPolicy(p); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			}
		}
	}

	grant(e, RoleMember, RoleAnonymous, log)
	grant(e, RoleAdmin, RoleMember, log)
	for _, name := range admins {
		grant(e, name, RoleAdmin, log)
	}
	log.Info("Policy seeding complete.")
}

// GrantMember gives a logged-in user the member role.
func GrantMember(e casbin.IEnforcer, username string, log logger.Logger) {
	grant(e, username, RoleMember, log)
}

func grant(e casbin.IEnforcer, user, role string, log logger.Logger) {
	if has, _ := e.HasRoleForUser(user, role); has {
		return
	}
	if _, err := e.AddRoleForUser(user, role); err != nil {
		log.Error(err, fmt.Sprintf("Failed to add role '%s' -> '%s'", user, role))
	}
}
