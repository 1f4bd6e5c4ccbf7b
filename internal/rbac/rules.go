package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"candidate": {
		"test:view",
		"attempt:create",
		"attempt:save",
		"attempt:finalize",
		"attempt:view-own",
		"attempt:delete-own",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
