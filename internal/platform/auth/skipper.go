package auth

import "github.com/labstack/echo/v4"

// publicPaths bypass authentication.
var publicPaths = map[string]bool{
	"/health": true,
}

func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Path())
}

// IsPublicPath reports whether the route pattern path bypasses authentication.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
