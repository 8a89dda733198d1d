package css

import "strings"

var sides = [4]string{"top", "right", "bottom", "left"}

var corners = [4]string{"top-left", "top-right", "bottom-right", "bottom-left"}

// boxValues spreads 1-4 values over top/right/bottom/left.
func boxValues(parts []string) ([4]string, bool) {
	var out [4]string
	switch len(parts) {
	case 1:
		out = [4]string{parts[0], parts[0], parts[0], parts[0]}
	case 2:
		out = [4]string{parts[0], parts[1], parts[0], parts[1]}
	case 3:
		out = [4]string{parts[0], parts[1], parts[2], parts[1]}
	case 4:
		out = [4]string{parts[0], parts[1], parts[2], parts[3]}
	default:
		return out, false
	}
	return out, true
}

var borderStyles = map[string]bool{
	"none": true, "hidden": true, "solid": true, "dashed": true, "dotted": true,
	"double": true, "groove": true, "ridge": true, "inset": true, "outset": true,
}

// Expand turns a declaration into longhand declarations. Properties that are
// not shorthands come back unchanged. Values containing var() are expanded
// after substitution by the resolver, so Expand always sees final values for
// shorthands.
func Expand(prop, value string) []Declaration {
	one := []Declaration{{Property: prop, Value: value}}
	parts := Fields(value)
	switch prop {
	case "margin", "padding":
		v, ok := boxValues(parts)
		if !ok {
			return nil
		}
		out := make([]Declaration, 4)
		for i, s := range sides {
			out[i] = Declaration{Property: prop + "-" + s, Value: v[i]}
		}
		return out
	case "inset":
		v, ok := boxValues(parts)
		if !ok {
			return nil
		}
		out := make([]Declaration, 4)
		for i, s := range sides {
			out[i] = Declaration{Property: s, Value: v[i]}
		}
		return out
	case "border-width", "border-style", "border-color":
		v, ok := boxValues(parts)
		if !ok {
			return nil
		}
		suffix := strings.TrimPrefix(prop, "border-")
		out := make([]Declaration, 4)
		for i, s := range sides {
			out[i] = Declaration{Property: "border-" + s + "-" + suffix, Value: v[i]}
		}
		return out
	case "border":
		return expandBorder(parts, sides[:])
	case "border-top", "border-right", "border-bottom", "border-left":
		return expandBorder(parts, []string{strings.TrimPrefix(prop, "border-")})
	case "border-radius":
		// Elliptical radii collapse to their horizontal component.
		if i := strings.IndexByte(value, '/'); i >= 0 {
			parts = Fields(value[:i])
		}
		v, ok := boxValues(parts)
		if !ok {
			return nil
		}
		out := make([]Declaration, 4)
		for i, c := range corners {
			out[i] = Declaration{Property: "border-" + c + "-radius", Value: v[i]}
		}
		return out
	case "background":
		return expandBackground(value)
	case "flex":
		return expandFlex(parts)
	case "gap":
		switch len(parts) {
		case 1:
			return []Declaration{{"row-gap", parts[0], false}, {"column-gap", parts[0], false}}
		case 2:
			return []Declaration{{"row-gap", parts[0], false}, {"column-gap", parts[1], false}}
		}
		return nil
	case "overflow":
		switch len(parts) {
		case 1:
			return []Declaration{{"overflow-x", parts[0], false}, {"overflow-y", parts[0], false}}
		case 2:
			return []Declaration{{"overflow-x", parts[0], false}, {"overflow-y", parts[1], false}}
		}
		return nil
	case "place-items":
		if len(parts) == 0 {
			return nil
		}
		return []Declaration{{"align-items", parts[0], false}, {"justify-items", parts[len(parts)-1], false}}
	}
	return one
}

func expandBorder(parts []string, which []string) []Declaration {
	width, style, col := "medium", "none", "currentcolor"
	for _, p := range parts {
		switch {
		case borderStyles[strings.ToLower(p)]:
			style = strings.ToLower(p)
		case IsColor(p):
			col = p
		default:
			width = p
		}
	}
	out := make([]Declaration, 0, len(which)*3)
	for _, s := range which {
		out = append(out,
			Declaration{Property: "border-" + s + "-width", Value: width},
			Declaration{Property: "border-" + s + "-style", Value: style},
			Declaration{Property: "border-" + s + "-color", Value: col},
		)
	}
	return out
}

func expandBackground(value string) []Declaration {
	out := []Declaration{
		{Property: "background-color", Value: "transparent"},
		{Property: "background-image", Value: "none"},
	}
	layers := SplitCommas(value)
	var images []string
	for li, layer := range layers {
		for _, p := range Fields(layer) {
			lp := strings.ToLower(p)
			switch {
			case strings.HasPrefix(lp, "url(") || strings.Contains(lp, "gradient("):
				images = append(images, p)
			case li == len(layers)-1 && IsColor(p):
				out[0].Value = p
			case lp == "cover" || lp == "contain":
				out = append(out, Declaration{Property: "background-size", Value: lp})
			}
		}
	}
	if len(images) > 0 {
		out[1].Value = strings.Join(images, ", ")
	}
	return out
}

func expandFlex(parts []string) []Declaration {
	grow, shrink, basis := "0", "1", "auto"
	switch {
	case len(parts) == 1 && parts[0] == "none":
		grow, shrink, basis = "0", "0", "auto"
	case len(parts) == 1 && parts[0] == "auto":
		grow, shrink, basis = "1", "1", "auto"
	case len(parts) == 1 && parts[0] == "initial":
	case len(parts) == 1:
		if _, ok := ParseLength(parts[0]); ok && parts[0] != "0" {
			grow, basis = "1", parts[0]
		} else {
			grow, basis = parts[0], "0%"
		}
	case len(parts) == 2:
		grow = parts[0]
		if _, ok := ParseLength(parts[1]); ok && parts[1] != "0" && !isNumber(parts[1]) {
			basis = parts[1]
		} else {
			shrink, basis = parts[1], "0%"
		}
	case len(parts) >= 3:
		grow, shrink, basis = parts[0], parts[1], parts[2]
	default:
		return nil
	}
	return []Declaration{
		{Property: "flex-grow", Value: grow},
		{Property: "flex-shrink", Value: shrink},
		{Property: "flex-basis", Value: basis},
	}
}

func isNumber(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && c != '.' {
			return false
		}
	}
	return s != ""
}
