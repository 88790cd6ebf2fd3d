// Package navigation provides the page title, breadcrumbs and menu state of a rendered page.
package navigation

// Portal sections, used to highlight the active menu entry.
const (
	SectionHome          = "home"
	SectionAnnouncements = "announcements"
	SectionEvents        = "events"
	SectionNews          = "news"
	SectionBarangays     = "barangays"
	SectionLegislative   = "legislative"
	SectionNotifications = "notifications"
	SectionDashboard     = "dashboard"
	SectionAccount       = "account"
	SectionAdmin         = "admin"
)

// BreadcrumbItem represents a single breadcrumb link.
type BreadcrumbItem struct {
	Title  string
	URL    string
	Active bool
}

// Context represents the navigation context for a page.
type Context struct {
	ActiveSection string
	ActivePage    string
	Breadcrumbs   []BreadcrumbItem
	PageTitle     string
}

// NewContext creates a new navigation context.
func NewContext(pageTitle, activeSection, activePage string) *Context {
	return &Context{
		PageTitle:     pageTitle,
		ActiveSection: activeSection,
		ActivePage:    activePage,
		Breadcrumbs:   make([]BreadcrumbItem, 0),
	}
}

// Page starts a context with the Home breadcrumb, the common case.
func Page(pageTitle, activeSection, activePage string) *Context {
	return NewContext(pageTitle, activeSection, activePage).AddBreadcrumb("Home", "/", false)
}

// AddBreadcrumb adds a breadcrumb item to the context.
func (c *Context) AddBreadcrumb(title, url string, active bool) *Context {
	c.Breadcrumbs = append(c.Breadcrumbs, BreadcrumbItem{
		Title:  title,
		URL:    url,
		Active: active,
	})

	return c
}

// Current adds the active, last breadcrumb.
func (c *Context) Current(title, url string) *Context {
	return c.AddBreadcrumb(title, url, true)
}

// IsActive checks if the given section and page match the current context.
func (c *Context) IsActive(section, page string) bool {
	return c.ActiveSection == section && c.ActivePage == page
}

// IsSectionActive checks if the given section is active.
func (c *Context) IsSectionActive(section string) bool {
	return c.ActiveSection == section
}
