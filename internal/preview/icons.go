package preview

import (
	"strconv"

	"golang.org/x/net/html"

	"github.com/arran4/chat2png/internal/dom"
)

// Icons are 24x24 stroked outlines drawn with straight segments and
// circles so both rasterizers paint them the same way.

type icon func() []*html.Node

func line(x1, y1, x2, y2 float64) *html.Node {
	return dom.SVG("line",
		dom.WithAttr("x1", fnum(x1)), dom.WithAttr("y1", fnum(y1)),
		dom.WithAttr("x2", fnum(x2)), dom.WithAttr("y2", fnum(y2)),
	)
}

func polyline(points string) *html.Node {
	return dom.SVG("polyline", dom.WithAttr("points", points))
}

func polygon(points string, opts ...dom.Option) *html.Node {
	return dom.SVG("polygon", append([]dom.Option{dom.WithAttr("points", points)}, opts...)...)
}

func circle(cx, cy, r float64, opts ...dom.Option) *html.Node {
	return dom.SVG("circle", append([]dom.Option{
		dom.WithAttr("cx", fnum(cx)), dom.WithAttr("cy", fnum(cy)), dom.WithAttr("r", fnum(r)),
	}, opts...)...)
}

func rectEl(x, y, w, h, rx float64) *html.Node {
	return dom.SVG("rect",
		dom.WithAttr("x", fnum(x)), dom.WithAttr("y", fnum(y)),
		dom.WithAttr("width", fnum(w)), dom.WithAttr("height", fnum(h)),
		dom.WithAttr("rx", fnum(rx)),
	)
}

func path(d string) *html.Node {
	return dom.SVG("path", dom.WithAttr("d", d))
}

func fnum(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

var (
	iconArrowLeft = func() []*html.Node {
		return []*html.Node{polyline("12 19 5 12 12 5"), line(19, 12, 5, 12)}
	}
	iconVideo = func() []*html.Node {
		return []*html.Node{rectEl(2, 6, 14, 12, 2), polygon("16 10 22 7 22 17 16 14")}
	}
	iconPhone = func() []*html.Node {
		return []*html.Node{path("M5 3 H9 L11 8 L8.5 10 L14 15.5 L16 13 L21 15 V19 L19 21 L15 20.5 L8 16 L3.5 9 L3 5 Z")}
	}
	iconMoreVertical = func() []*html.Node {
		return []*html.Node{
			circle(12, 5, 1, dom.WithAttr("fill", "currentColor")),
			circle(12, 12, 1, dom.WithAttr("fill", "currentColor")),
			circle(12, 19, 1, dom.WithAttr("fill", "currentColor")),
		}
	}
	iconMic = func() []*html.Node {
		return []*html.Node{
			rectEl(9, 2, 6, 12, 3),
			polyline("19 10 19 12 17.5 15.5 14.5 18 12 18.5 9.5 18 6.5 15.5 5 12 5 10"),
			line(12, 19, 12, 22),
		}
	}
	iconCheckCheck = func() []*html.Node {
		return []*html.Node{polyline("2 12 7 17 18 6"), polyline("13 15.5 14.5 17 22 9.5")}
	}
	iconPlus = func() []*html.Node {
		return []*html.Node{line(5, 12, 19, 12), line(12, 5, 12, 19)}
	}
	iconCamera = func() []*html.Node {
		return []*html.Node{
			path("M3 8 H7 L9 5 H15 L17 8 H21 V19 H3 Z"),
			circle(12, 13, 3),
		}
	}
	iconSmile = func() []*html.Node {
		return []*html.Node{
			circle(12, 12, 10),
			polyline("8 14 10 16 14 16 16 14"),
			line(9, 9, 9.01, 9),
			line(15, 9, 15.01, 9),
		}
	}
	iconPaperclip = func() []*html.Node {
		return []*html.Node{polyline("16 7 8.5 14.5 8.5 16.5 10.5 16.5 18.5 8.5 18.5 5 16 3 13 3 5 11 5 17 7.5 20 12 20 20 12")}
	}
	iconImage = func() []*html.Node {
		return []*html.Node{
			rectEl(3, 3, 18, 18, 2),
			circle(9, 9, 2),
			polyline("21 15 16 10 5 21"),
		}
	}
	iconThumbsUp = func() []*html.Node {
		return []*html.Node{
			path("M7 10 V22 H3 V10 Z"),
			path("M7 10 L11 2 L13 3 L14 9 H20 L22 11 L19.5 20.5 L17.5 22 H7"),
		}
	}
	iconInfo = func() []*html.Node {
		return []*html.Node{circle(12, 12, 10), line(12, 16, 12, 12), line(12, 8, 12.01, 8)}
	}
	iconPlay = func() []*html.Node {
		return []*html.Node{polygon("6 3 20 12 6 21")}
	}
	iconSticker = func() []*html.Node {
		return []*html.Node{
			path("M15.5 3 H5 L3 5 V19 L5 21 H19 L21 19 V8.5 Z"),
			polyline("14 3 14 8 15 10 21 10"),
			line(8, 13, 8.01, 13),
			line(16, 13, 16.01, 13),
			polyline("8 16.5 10 17.5 14 17.5 16 16.5"),
		}
	}
)

// svgIcon wraps an icon in an svg element sized size x size px that
// strokes with the current text color.
func svgIcon(ic icon, size int, style string) *html.Node {
	px := strconv.Itoa(size)
	s := "width: " + px + "px; height: " + px + "px; flex-shrink: 0"
	if style != "" {
		s += "; " + style
	}
	return dom.SVG("svg",
		dom.WithAttr("xmlns", "http://www.w3.org/2000/svg"),
		dom.WithAttr("viewBox", "0 0 24 24"),
		dom.WithAttr("width", px),
		dom.WithAttr("height", px),
		dom.WithAttr("fill", "none"),
		dom.WithAttr("stroke", "currentColor"),
		dom.WithAttr("stroke-width", "2"),
		dom.WithAttr("stroke-linecap", "round"),
		dom.WithAttr("stroke-linejoin", "round"),
		dom.WithAttr("aria-hidden", "true"),
		dom.WithStyle(s),
		dom.WithChildren(ic()...),
	)
}
