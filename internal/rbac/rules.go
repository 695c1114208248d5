package rbac

// Default policy. Catalog mutation is instructor/admin territory; the
// ownership rule on top of it (only the course owner may touch its quizzes)
// lives in the services, not here.
var RolePermissions = map[string][]string{
	"student": {
		"quiz:view",
		"course:view",
		"attempt:start",
		"attempt:submit",
		"attempt:view-own",
		"user:change_password",
	},
	"instructor": {
		"quiz:view",
		"quiz:view-answers",
		"quiz:create",
		"quiz:update",
		"quiz:delete",
		"attempt:view-all",
		"course:view",
		"course:create",
		"course:enroll",
		"users:list",
		"users:bulk_upsert",
		"user:change_password",
	},
	"admin": {
		"*", // everything, including quiz:list-all
	},
}
