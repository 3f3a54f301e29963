package viewmodels

type LayoutData struct {
	Title      string
	CSRFToken  string
	SignedIn   bool
	UserEmail  string
	UserName   string
	UserRoles  []string
	IsAdmin    bool
	HomeHref   string
	Nav        []NavItem
	Toast      *ToastViewData
	ActivePath string
}

// NavItem is a link to an area the signed-in user may enter.
type NavItem struct {
	Title  string
	Href   string
	Group  string
	Active bool
}

type ToastViewData struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Alert struct {
	Title       string
	Message     string
	Destructive bool
}
