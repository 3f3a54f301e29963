package viewmodels

type LoginViewData struct {
	CSRFToken     string
	Email         string
	Next          string
	ErrorMessage  string
	SignupEnabled bool
	Toast         *ToastViewData
}

type SignupViewData struct {
	CSRFToken    string
	Email        string
	Name         string
	Phone        string
	ErrorMessage string
	Toast        *ToastViewData
}
