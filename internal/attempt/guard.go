package attempt

// RoleAdmin is the only role with cross-user access. Everything else is
// treated as a regular candidate.
const RoleAdmin = "admin"

type access int

const (
	accessRead access = iota
	accessMutate
	accessDelete
)

// authorize is the single ownership/role check applied before every
// operation. Administrators may read anything and delete anything, but never
// mutate another user's attempt; owners mutate freely while the attempt is
// live and may delete it only while it is still in progress.
func authorize(a Attempt, callerID, callerRole string, want access) error {
	if callerID == "" {
		return ErrUnauthenticated
	}
	owner := callerID == a.UserID
	admin := callerRole == RoleAdmin

	switch want {
	case accessRead:
		if owner || admin {
			return nil
		}
	case accessMutate:
		if owner {
			return nil
		}
	case accessDelete:
		if admin {
			return nil
		}
		if owner && a.Status == StatusInProgress {
			return nil
		}
	}
	return ErrForbidden
}
