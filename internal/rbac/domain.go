package rbac

// Group is a staff group users are assigned to.
type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Membership describes what the RBAC layer needs to know about a user.
type Membership struct {
	UserID    int64
	Active    bool
	Superuser bool
	Groups    []string
}
