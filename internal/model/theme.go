package model

// DefaultTheme is assigned to every new user.
const DefaultTheme = "retro"

// Themes lists the accepted page themes in display order.
var Themes = []string{
	"light", "dark", "cupcake", "bumblebee", "emerald", "corporate",
	"synthwave", "retro", "cyberpunk", "valentine", "halloween", "garden",
	"forest", "aqua", "lofi", "pastel", "fantasy", "wireframe", "black",
	"luxury", "dracula", "cmyk", "autumn", "business", "acid", "lemonade",
	"night", "coffee", "winter", "dim", "nord", "sunset", "caramellatte",
	"abyss", "silk",
}

var themeSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Themes))
	for _, t := range Themes {
		m[t] = struct{}{}
	}
	return m
}()

// IsValidTheme reports whether name is one of Themes.
func IsValidTheme(name string) bool {
	_, ok := themeSet[name]
	return ok
}
