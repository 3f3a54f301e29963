package viewmodels

type HomeViewData struct {
	Layout        LayoutData
	SignupEnabled bool
}

// AreaViewData backs the generic area page. The area's real content is
// served by the feature that owns it.
type AreaViewData struct {
	Layout      LayoutData
	Area        string
	Heading     string
	Description string
	RoleLabel   string
}

type DeniedViewData struct {
	Layout   LayoutData
	Title    string
	Message  string
	Reason   string
	HomeHref string
	HomeText string
	SignedIn bool
}
