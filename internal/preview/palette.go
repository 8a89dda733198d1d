package preview

// Colors used by the mock. Accents follow the wide-gamut palette of the
// web app the mock imitates and are written in oklch; everything else is
// plain sRGB.
const (
	white10 = "rgba(255,255,255,0.1)"

	neutral50  = "#fafafa"
	neutral100 = "#f5f5f5"
	neutral200 = "#e5e5e5"
	neutral400 = "#a3a3a3"
	neutral500 = "#737373"
	neutral600 = "#525252"
	neutral700 = "#404040"
	neutral800 = "#262626"
	neutral900 = "#171717"

	emerald100 = "#d1fae5"
	emerald900 = "#064e3b"

	sky300     = "oklch(82.8% 0.111 230.318)"
	blue600    = "oklch(54.6% 0.245 262.881)"
	emerald400 = "oklch(76.5% 0.177 163.223)"

	onlineGreen = "#22c55e"

	// shadowSm is the bubble shadow. Its color is mixed in oklab.
	shadowSm = "0 1px 3px 0 color-mix(in oklab, #000 10%, transparent), 0 1px 2px -1px color-mix(in oklab, #000 10%, transparent)"
	// frameShadow is the phone frame drop shadow.
	frameShadow = "0 12px 50px rgba(0,0,0,.25)"
)

func alphaWhite(a string) string { return "rgba(255,255,255," + a + ")" }
func alphaBlack(a string) string { return "rgba(0,0,0," + a + ")" }

type palette struct {
	frameBorder, frameBg string

	headerBg, headerText, headerSub, headerIcon, headerBorder string
	avatarBg, avatarText                                      string

	canvasBg string

	meBubbleBg, meBubbleText     string
	themBubbleBg, themBubbleText string
	timeText                     string
	readTick, unreadTick         string

	disclaimerText, disclaimerBg, disclaimerBorder string

	inputBorder, inputBg string
}

func newPalette(wa, dark bool) palette {
	p := palette{}
	if dark {
		p.frameBorder, p.frameBg = white10, "#000000"
		p.timeText = alphaWhite("0.6")
		p.readTick, p.unreadTick = sky300, alphaWhite("0.4")
		p.disclaimerText, p.disclaimerBg, p.disclaimerBorder = alphaWhite("0.35"), alphaBlack("0.3"), white10
	} else {
		p.frameBorder, p.frameBg = neutral200, "#ffffff"
		p.timeText = neutral600
		p.readTick, p.unreadTick = blue600, neutral400
		p.disclaimerText, p.disclaimerBg, p.disclaimerBorder = neutral600, alphaWhite("0.8"), neutral200
	}

	switch {
	case wa && dark:
		p.headerBg, p.headerText, p.headerSub, p.headerIcon = "#202c33", "#ffffff", alphaWhite("0.5"), alphaWhite("0.8")
		p.avatarBg, p.avatarText = "rgba(6,78,59,0.5)", alphaWhite("0.8")
		p.canvasBg = "#0b141a"
		p.meBubbleBg, p.meBubbleText = "#005c4b", "#ffffff"
		p.themBubbleBg, p.themBubbleText = "#1f2c33", alphaWhite("0.95")
		p.inputBorder, p.inputBg = white10, "rgba(11,20,26,0.95)"
	case wa:
		p.headerBg, p.headerText, p.headerSub, p.headerIcon = "#ffffff", neutral900, neutral500, neutral700
		p.headerBorder = neutral200
		p.avatarBg, p.avatarText = emerald100, emerald900
		p.canvasBg = "#eae6df"
		p.meBubbleBg, p.meBubbleText = "#d9fdd3", neutral900
		p.themBubbleBg, p.themBubbleText = "#ffffff", neutral900
		p.inputBorder, p.inputBg = neutral200, alphaWhite("0.9")
	case dark:
		p.headerBg, p.headerText, p.headerSub, p.headerIcon = "#000000", "#ffffff", alphaWhite("0.7"), "#4ea1ff"
		p.headerBorder = white10
		p.avatarBg, p.avatarText = white10, alphaWhite("0.9")
		p.canvasBg = "#000000"
		p.meBubbleBg, p.meBubbleText = "#1877f2", "#ffffff"
		p.themBubbleBg, p.themBubbleText = "#2b2b2e", alphaWhite("0.95")
		p.inputBorder, p.inputBg = white10, alphaBlack("0.9")
	default:
		p.headerBg, p.headerText, p.headerSub, p.headerIcon = "#ffffff", neutral900, neutral700, "#1877f2"
		p.headerBorder = neutral200
		p.avatarBg, p.avatarText = alphaBlack("0.1"), neutral900
		p.canvasBg = "#ffffff"
		p.meBubbleBg, p.meBubbleText = "#1877f2", "#ffffff"
		p.themBubbleBg, p.themBubbleText = "#e5e7eb", neutral900
		p.timeText = neutral700
		p.inputBorder, p.inputBg = neutral200, alphaWhite("0.95")
	}
	return p
}
