package handler

const (
	// BaseLayout is the default path for layout templates.
	BaseLayout = "layouts/base"

	// RootPath is the root path the route group.
	RootPath = "/"

	// AuthPath prefixes external login flows. A 401 there renders the error
	// page instead of redirecting to the login form.
	AuthPath = RootPath + "auth/"

	// RouterRootPath is the path of a route group's index.
	RouterRootPath = "/"

	// ErrNilACDFatalLogMsg is used if app or cfg or db var pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or db is nil"

	// TemplateError renders an error page with Status and Message.
	TemplateError = "error"
)
