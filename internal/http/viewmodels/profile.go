package viewmodels

type ProfileForm struct {
	Name  string
	Phone string
}

type ProfileViewData struct {
	Layout LayoutData
	Email  string
	Roles  []string
	Form   ProfileForm
	Alert  *Alert
}
