package viewmodels

type AdminUsersUserItem struct {
	ID             string
	Email          string
	Name           string
	Roles          []string
	IsActive       bool
	LastLogin      string
	LastLoginTitle string
	IsSelf         bool
	IsLastAdmin    bool
}

// HasRole reports whether the row carries role.
func (u AdminUsersUserItem) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type AdminUsersViewData struct {
	Layout   LayoutData
	Users    []AdminUsersUserItem
	HasUsers bool
	Roles    []string
	Alert    *Alert

	Pagination Pagination
}

type Pagination struct {
	Page        int
	TotalPages  int
	TotalCount  int64
	ShowingFrom int
	ShowingTo   int
	BaseHref    string
}

func (p Pagination) HasPrev() bool {
	return p.Page > 1
}

func (p Pagination) HasNext() bool {
	return p.Page < p.TotalPages
}
