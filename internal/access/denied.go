package access

import "github.com/medportal/medportal/internal/auth"

// DeniedView is what the access-denied page shows. It carries no behavior:
// leaving the page is always a user action.
type DeniedView struct {
	Reason   Reason
	Title    string
	Message  string
	HomeArea AreaPath
	HomeHref string
	SignedIn bool
}

// NewDeniedView describes d for p. The home link points at p's canonical
// area, or at the login area for anonymous visitors.
func NewDeniedView(g *Guard, d Decision, p *auth.Principal) DeniedView {
	v := DeniedView{
		Reason:   d.Reason,
		Title:    "Access denied",
		SignedIn: p != nil,
	}
	if p != nil {
		v.HomeArea = g.Resolver().CanonicalArea(p)
	} else {
		v.HomeArea = g.Table().Login()
	}
	v.HomeHref = g.Table().Route(v.HomeArea)

	switch d.Reason {
	case ReasonRedirectDisabled:
		v.Message = "Your account does not have access to this page."
	case ReasonRedirectLoop:
		v.Message = "We could not find a page for your account. Please contact an administrator."
	case ReasonUnknownArea:
		v.Message = "This page does not exist or is not available."
	default:
		v.Message = "You do not have permission to view this page."
	}
	return v
}
