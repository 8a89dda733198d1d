package css

// userAgent holds per-tag default declarations. They follow a reset
// stylesheet: no default margins or padding, border-box sizing, replaced
// elements display as blocks.
var userAgent = map[string][]Declaration{}

func init() {
	for _, t := range []string{
		"html", "body", "div", "p", "section", "header", "footer", "main", "nav",
		"article", "aside", "ul", "ol", "li", "h1", "h2", "h3", "h4", "h5", "h6",
		"form", "blockquote", "figure", "img", "svg", "canvas", "video", "hr", "table",
	} {
		userAgent[t] = []Declaration{{Property: "display", Value: "block"}}
	}
	for _, t := range []string{"head", "script", "style", "meta", "title", "link", "template", "noscript"} {
		userAgent[t] = []Declaration{{Property: "display", Value: "none"}}
	}
	userAgent["button"] = []Declaration{
		{Property: "display", Value: "inline-block"},
		{Property: "background-color", Value: "transparent"},
		{Property: "text-align", Value: "center"},
	}
	userAgent["strong"] = []Declaration{{Property: "font-weight", Value: "700"}}
	userAgent["b"] = userAgent["strong"]
	userAgent["em"] = []Declaration{{Property: "font-style", Value: "italic"}}
	userAgent["i"] = userAgent["em"]
	userAgent["del"] = []Declaration{{Property: "text-decoration-line", Value: "line-through"}}
	userAgent["s"] = userAgent["del"]
	userAgent["code"] = []Declaration{{Property: "font-family", Value: "monospace"}}
	userAgent["pre"] = []Declaration{
		{Property: "display", Value: "block"},
		{Property: "white-space", Value: "pre"},
		{Property: "font-family", Value: "monospace"},
	}
}

// inherited lists the properties that flow from parent to child.
var inherited = map[string]bool{
	"color":                true,
	"font-size":            true,
	"font-weight":          true,
	"font-style":           true,
	"font-family":          true,
	"line-height":          true,
	"white-space":          true,
	"text-align":           true,
	"visibility":           true,
	"letter-spacing":       true,
	"word-break":           true,
	"overflow-wrap":        true,
	"font-variant-numeric": true,
}

// initialStyle is the style of the document root.
func initialStyle() Style {
	return Style{
		"color":       "#000000",
		"font-size":   "16px",
		"font-weight": "400",
		"font-style":  "normal",
		"font-family": "sans-serif",
		"line-height": "normal",
		"white-space": "normal",
		"text-align":  "start",
		"visibility":  "visible",
	}
}

// IsInherited reports whether prop inherits by default.
func IsInherited(prop string) bool {
	return IsCustomProperty(prop) || inherited[prop]
}
