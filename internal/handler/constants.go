package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"

	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteRegister is the registration route.
	RouteRegister = "/register"

	// RoutePost is the post detail route.
	RoutePost = "/post/{id}"
	// RouteBlogSlug is the slug-based post permalink route.
	RouteBlogSlug = "/blog/{slug}"
	// RouteNewPost is the post creation route.
	RouteNewPost = "/new-post"
	// RouteEditPost is the post edit route.
	RouteEditPost = "/edit-post/{id}"
	// RouteDeletePost is the post deletion route.
	RouteDeletePost = "/delete/{id}"

	// RouteAbout is the about page route.
	RouteAbout = "/about"
	// RouteContact is the contact page route.
	RouteContact = "/contact"
	// RouteHealth is the health check route.
	RouteHealth = "/health"
)

// Redirect target constants.
const (
	redirectHome     = "/"
	redirectLogin    = "/login"
	redirectRegister = "/register"
)
