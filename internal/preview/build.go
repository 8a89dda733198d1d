package preview

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/arran4/chat2png/internal/chat"
	"github.com/arran4/chat2png/internal/dom"
	"github.com/arran4/chat2png/pkg/logger"
)

// Markers the export pipeline looks for.
const (
	AttrRoot     = "data-chat-root"
	AttrViewport = "data-chat-viewport"
	AttrScroll   = "data-chat-scroll"
	AttrNoExport = "data-noexport"
)

// ViewportHeight is the fixed height of the message area.
const ViewportHeight = 640

const fontStack = "Geist, ui-sans-serif, system-ui, sans-serif"

// st joins property/value pairs into an inline style. Pairs with an empty
// value are dropped. A key that already holds declarations (it contains a
// colon) is copied as is and its value ignored.
func st(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		k, v := pairs[i], pairs[i+1]
		raw := strings.Contains(k, ":")
		if !raw && v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k)
		if !raw {
			b.WriteString(": ")
			b.WriteString(v)
		}
	}
	return b.String()
}

func div(style string, children ...*html.Node) *html.Node {
	return dom.El("div", dom.WithStyle(style), dom.WithChildren(children...))
}

func span(style, text string) *html.Node {
	return dom.El("span", dom.WithStyle(style), dom.WithText(text))
}

func button(label, style string, children ...*html.Node) *html.Node {
	return dom.El("button",
		dom.WithAttr("type", "button"),
		dom.WithAttr("aria-label", label),
		dom.WithStyle(style),
		dom.WithChildren(children...),
	)
}

func img(src, alt, style string) *html.Node {
	return dom.El("img",
		dom.WithAttr("src", src),
		dom.WithAttr("alt", alt),
		dom.WithAttr("draggable", "false"),
		dom.WithStyle(style),
	)
}

func px(v int) string { return strconv.Itoa(v) + "px" }

const (
	truncate   = "overflow: hidden; text-overflow: ellipsis; white-space: nowrap"
	roundFull  = "9999px"
	centerGrid = "display: grid; place-items: center"
)

// builder renders one conversation.
type builder struct {
	c    chat.Conversation
	pal  palette
	wa   bool
	dark bool
	ios  bool
	rich *richText
	// Label of the preview-only badge; empty hides it.
	badge string
}

func newBuilder(c chat.Conversation, rich *richText, badge string) *builder {
	c.Normalize()
	wa, dark := c.Platform == chat.WhatsApp, c.Theme == chat.Dark
	return &builder{
		c: c, pal: newPalette(wa, dark),
		wa: wa, dark: dark, ios: c.OS == chat.IOS,
		rich: rich, badge: badge,
	}
}

// Build renders c as the chat mock. The returned element is the preview
// root: a fit-content wrapper around the phone frame.
func Build(c chat.Conversation) *html.Node {
	return newBuilder(c, nil, "").mount()
}

func (b *builder) mount() *html.Node {
	return div(st("width", "fit-content", "margin-left", "auto", "margin-right", "auto"), b.root())
}

func (b *builder) root() *html.Node {
	maxW := "430px"
	if b.wa && b.ios {
		maxW = "600px"
	}
	root := div(st(
		"width", "100%",
		"max-width", maxW,
		"min-width", "0",
		"margin-left", "auto",
		"margin-right", "auto",
		"font-family", fontStack,
		"font-size", "16px",
		"line-height", "1.5",
		"color", b.pal.headerText,
	), b.frame())
	dom.SetAttr(root, AttrRoot, "")
	return root
}

func (b *builder) frame() *html.Node {
	radius := "24px"
	if b.ios {
		radius = "28px"
	}
	return div(st(
		"position", "relative",
		"width", "100%",
		"overflow", "hidden",
		"border", "1px solid "+b.pal.frameBorder,
		"border-radius", radius,
		"box-shadow", frameShadow,
		"background-color", b.pal.frameBg,
	), b.header(), b.viewport())
}

// ---- Header ----

func (b *builder) header() *html.Node {
	pad := "12px"
	if b.wa && b.ios {
		pad = "10px 12px"
	}
	iconColor := b.pal.headerIcon
	backColor := b.pal.headerText
	if !b.wa {
		backColor = iconColor
	}

	avatar := div(st(
		"width", "36px", "height", "36px",
		"border-radius", roundFull,
		"display", "flex", "align-items", "center", "justify-content", "center",
		"font-size", "14px", "font-weight", "600",
		"overflow", "hidden",
		"background-color", b.pal.avatarBg,
		"color", b.pal.avatarText,
	))
	if b.wa && b.c.ContactAvatar != "" {
		avatar.AppendChild(img(b.c.ContactAvatar, "Contact avatar", st("width", "100%", "height", "100%", "object-fit", "cover")))
	} else {
		avatar.AppendChild(dom.Text(b.c.Initial()))
	}
	avatarWrap := div(st("position", "relative", "flex-shrink", "0"), avatar)
	if !b.wa {
		ring := "#000000"
		if !b.dark {
			ring = "#ffffff"
		}
		avatarWrap.AppendChild(span(st(
			"position", "absolute", "bottom", "-2px", "right", "-2px",
			"display", "block", "width", "12px", "height", "12px",
			"border-radius", roundFull,
			"border", "1px solid "+ring,
			"background-color", onlineGreen,
		), ""))
	}

	name := b.c.ContactName
	if strings.TrimSpace(name) == "" {
		name = "Contacto"
	}
	sub := "Active now"
	if b.wa {
		sub = "en línea"
	}
	names := div(st("flex", "1 1 0%", "min-width", "0"),
		div(st("font-weight", "500", "color", b.pal.headerText, truncate, ""), dom.Text(name)),
		div(st("font-size", "11px", "line-height", "16px", "color", b.pal.headerSub, truncate, ""), dom.Text(sub)),
	)

	actionBtn := func(label string, ic icon) *html.Node {
		return button(label, st("padding", "8px", "border-radius", roundFull, "color", iconColor), svgIcon(ic, 20, ""))
	}
	var actions []*html.Node
	if b.wa {
		actions = []*html.Node{actionBtn("Video", iconVideo), actionBtn("Call", iconPhone), actionBtn("More", iconMoreVertical)}
	} else {
		actions = []*html.Node{actionBtn("Call", iconPhone), actionBtn("Video", iconVideo), actionBtn("Info", iconInfo)}
	}

	border := ""
	if b.pal.headerBorder != "" {
		border = "1px solid " + b.pal.headerBorder
	}
	return div(st(
		"display", "flex", "align-items", "center", "column-gap", "12px",
		"padding", pad,
		"background-color", b.pal.headerBg,
		"border-bottom", border,
	),
		button("Back", st("padding", "8px", "margin-left", "-4px", "border-radius", roundFull, "color", backColor), svgIcon(iconArrowLeft, 20, "")),
		avatarWrap,
		names,
		div(st("display", "flex", "align-items", "center", "column-gap", "4px", "color", b.pal.headerText), actions...),
	)
}

// ---- Chat area ----

func (b *builder) viewport() *html.Node {
	vp := div(st(
		"position", "relative",
		"display", "flex", "flex-direction", "column",
		"height", px(ViewportHeight),
		"background-color", b.pal.canvasBg,
	), b.backdrop(), b.scroll(), b.disclaimer(), b.inputBar())
	dom.SetAttr(vp, AttrViewport, "")
	if b.badge != "" {
		vp.AppendChild(b.previewBadge())
	}
	return vp
}

func (b *builder) backdrop() *html.Node {
	layer := div(st("position", "absolute", "inset", "0", "z-index", "0"))
	if !b.wa {
		return layer
	}
	full := st("position", "absolute", "inset", "0")
	if b.c.Wallpaper != "" {
		tint := alphaWhite("0.2")
		if b.dark {
			tint = alphaBlack("0.35")
		}
		layer.AppendChild(img(b.c.Wallpaper, "Wallpaper", full+"; width: 100%; height: 100%; object-fit: cover"))
		layer.AppendChild(div(full + "; background-color: " + tint))
		return layer
	}
	if b.dark {
		layer.AppendChild(div(full + "; opacity: 0.35; background-image: radial-gradient(circle at 20% 10%, rgba(255,255,255,.10), transparent 35%), radial-gradient(circle at 90% 40%, rgba(255,255,255,.08), transparent 35%), radial-gradient(circle at 40% 90%, rgba(255,255,255,.07), transparent 35%)"))
		layer.AppendChild(div(full + "; opacity: 0.22; background-image: linear-gradient(180deg, rgba(0,0,0,.15), rgba(0,0,0,.55))"))
	} else {
		layer.AppendChild(div(full + "; opacity: 0.22; background-image: radial-gradient(circle at 20% 10%, rgba(0,0,0,.06), transparent 35%), radial-gradient(circle at 90% 40%, rgba(0,0,0,.05), transparent 35%)"))
	}
	return layer
}

func (b *builder) scroll() *html.Node {
	bg := ""
	if !b.wa {
		bg = b.pal.canvasBg
	}
	s := div(st(
		"position", "relative", "z-index", "10",
		"flex", "1 1 0%",
		"overflow-y", "auto",
		"padding", "16px 12px",
		"background-color", bg,
	))
	dom.SetAttr(s, AttrScroll, "")
	for i, m := range b.c.Messages {
		row := b.row(m)
		if i > 0 {
			dom.SetAttr(row, "style", dom.AttrOr(row, "style", "")+"; margin-top: 8px")
		}
		s.AppendChild(row)
	}
	return s
}

func (b *builder) disclaimer() *html.Node {
	return div(st(
		"pointer-events", "none",
		"position", "absolute", "z-index", "20",
		"bottom", "86px", "left", "50%",
		"transform", "translateX(-50%)",
		"font-size", "10px", "line-height", "14px",
		"white-space", "nowrap",
		"padding", "4px 8px",
		"border-radius", roundFull,
		"border", "1px solid "+b.pal.disclaimerBorder,
		"color", b.pal.disclaimerText,
		"background-color", b.pal.disclaimerBg,
	), dom.Text("Simulated chat · Not real"))
}

// previewBadge is shown on screen only; exports drop it.
func (b *builder) previewBadge() *html.Node {
	n := div(st(
		"position", "absolute", "z-index", "30",
		"top", "8px", "right", "8px",
		"font-size", "10px", "line-height", "14px",
		"padding", "2px 8px",
		"border-radius", roundFull,
		"color", "#ffffff",
		"background-color", "rgba(16,185,129,0.85)",
	), dom.Text(b.badge))
	dom.SetAttr(n, AttrNoExport, "true")
	return n
}

// ---- Messages ----

func (b *builder) row(m chat.Message) *html.Node {
	isMe := m.Side == chat.Me
	justify := "flex-start"
	if isMe {
		justify = "flex-end"
	}
	row := div(st("display", "flex", "justify-content", justify))
	dom.SetAttr(row, "data-message-id", m.ID)

	if !b.wa && !isMe {
		row.AppendChild(div(st("margin-right", "8px", "margin-top", "4px", "flex-shrink", "0"),
			div(st(
				"width", "28px", "height", "28px",
				"border-radius", roundFull,
				centerGrid, "",
				"font-size", "11px", "font-weight", "600",
				"background-color", b.pal.avatarBg,
				"color", b.pal.avatarText,
			), dom.Text(b.c.Initial())),
		))
	}
	row.AppendChild(b.bubble(m))
	return row
}

func (b *builder) bubbleRadius(isMe bool) string {
	big := "16px"
	if b.ios {
		big = "22px"
	}
	if isMe {
		return big + " 6px " + big + " " + big
	}
	return "6px " + big + " " + big + " " + big
}

func (b *builder) bubble(m chat.Message) *html.Node {
	isMe := m.Side == chat.Me
	audio := m.Kind() == chat.Audio

	bg, fg := b.pal.themBubbleBg, b.pal.themBubbleText
	if isMe {
		bg, fg = b.pal.meBubbleBg, b.pal.meBubbleText
	}
	maxW, pad := "78%", "8px 12px"
	if audio {
		maxW, pad = "88%", "0"
	}
	bubble := div(st(
		"max-width", maxW,
		"font-size", "15px",
		"line-height", "1.375",
		"box-shadow", shadowSm,
		"padding", pad,
		"border-radius", b.bubbleRadius(isMe),
		"background-color", bg,
		"color", fg,
	))

	switch {
	case audio && b.wa:
		bubble.AppendChild(b.whatsAppAudio(m))
	case audio:
		bubble.AppendChild(b.messengerAudio(m))
	default:
		bubble.AppendChild(b.text(m))
		bubble.AppendChild(b.timeRow(m))
	}
	return bubble
}

func (b *builder) text(m chat.Message) *html.Node {
	body := div(st("white-space", "pre-wrap", "overflow-wrap", "break-word"))
	if b.rich != nil {
		nodes, err := b.rich.Nodes(m.Text)
		if err == nil {
			for _, n := range nodes {
				body.AppendChild(n)
			}
			return body
		}
		logger.Debug("rich text fallback", zap.String("message_id", m.ID), zap.Error(err))
	}
	body.AppendChild(dom.Text(m.Text))
	return body
}

func (b *builder) statusTick(m chat.Message, extra string) *html.Node {
	c := b.pal.unreadTick
	if m.Status == chat.Read {
		c = b.pal.readTick
	}
	s := dom.El("span",
		dom.WithAttr("aria-label", "Status"),
		dom.WithStyle(st("margin-left", "4px", "display", "inline-flex", "align-items", "center", "color", c, extra, "")),
		dom.WithChildren(svgIcon(iconCheckCheck, 16, "")),
	)
	return s
}

func (b *builder) timeRow(m chat.Message) *html.Node {
	row := div(st(
		"margin-top", "4px",
		"display", "flex", "align-items", "center", "justify-content", "flex-end",
		"column-gap", "4px",
		"font-size", "11px", "line-height", "16px",
		"color", b.pal.timeText,
	), span("", m.Time))
	if b.wa && m.Side == chat.Me {
		row.AppendChild(b.statusTick(m, ""))
	}
	return row
}

// ---- Audio ----

func (b *builder) whatsAppAudio(m chat.Message) *html.Node {
	isMe := m.Side == chat.Me
	dotColor, knobColor, unplayed := alphaBlack("0.12"), alphaBlack("0.25"), "rgb(14,165,233)"
	avatarBorder, avatarBg, avatarText := alphaBlack("0.1"), alphaBlack("0.05"), "rgba(23,23,23,0.8)"
	micColor, playColor, speedColor, durColor := "#34b7f1", "rgba(23,23,23,0.55)", "rgba(64,64,64,0.45)", "rgba(23,23,23,0.45)"
	if b.dark {
		dotColor, knobColor, unplayed = alphaWhite("0.14"), alphaWhite("0.30"), "rgba(125,211,252,0.90)"
		avatarBorder, avatarBg, avatarText = white10, alphaBlack("0.2"), alphaWhite("0.8")
		micColor, playColor, speedColor, durColor = "#53bdeb", alphaWhite("0.55"), alphaWhite("0.35"), alphaWhite("0.35")
	}

	avatarSrc, initial := b.c.ContactAvatar, b.c.Initial()
	if isMe {
		avatarSrc, initial = b.c.MeAvatar, "A"
	}
	avatar := div(st(
		"width", "48px", "height", "48px",
		"border-radius", roundFull,
		"overflow", "hidden",
		"border", "1px solid "+avatarBorder,
		centerGrid, "",
		"font-size", "14px", "font-weight", "600",
		"background-color", avatarBg,
		"color", avatarText,
	))
	dom.SetAttr(avatar, "aria-hidden", "true")
	if avatarSrc != "" {
		avatar.AppendChild(img(avatarSrc, "", st("width", "100%", "height", "100%", "object-fit", "cover")))
	} else {
		avatar.AppendChild(dom.Text(initial))
	}
	avatarWrap := div(st("position", "relative", "flex-shrink", "0"),
		avatar,
		dom.El("span",
			dom.WithAttr("aria-hidden", "true"),
			dom.WithStyle(st("position", "absolute", "bottom", "-2px", "right", "-2px", "color", micColor)),
			dom.WithChildren(svgIcon(iconMic, 20, "display: block")),
		),
	)

	dots := div(st("display", "flex", "align-items", "center", "column-gap", "3px", "white-space", "nowrap"))
	for i := 0; i < 24; i++ {
		dots.AppendChild(span(st(
			"display", "inline-block", "flex-shrink", "0",
			"width", "3px", "height", "3px",
			"border-radius", roundFull,
			"background-color", dotColor,
		), ""))
	}
	track := div(st("display", "flex", "align-items", "center", "justify-content", "center", "flex", "1 1 0%", "min-width", "0"),
		div(st("display", "flex", "align-items", "center", "width", "100%", "min-width", "0"),
			span(st("display", "inline-block", "width", "12px", "height", "12px", "border-radius", roundFull, "flex-shrink", "0", "background-color", knobColor), ""),
			div(st("margin-left", "8px", "flex", "1 1 0%", "min-width", "0", "overflow", "hidden"), dots),
			span(st("margin-left", "8px", "flex-shrink", "0", "font-size", "12px", "line-height", "16px", "font-weight", "600", "color", speedColor), "1x"),
		),
	)

	left := div(st("display", "flex", "align-items", "center", "column-gap", "8px", "min-width", "0"))
	if m.Unplayed() {
		left.AppendChild(span(st("display", "inline-block", "width", "8px", "height", "8px", "border-radius", roundFull, "flex-shrink", "0", "background-color", unplayed), ""))
	}
	dur := m.DurationSec
	if dur <= 0 {
		dur = 1
	}
	left.AppendChild(span(st("font-size", "12px", "line-height", "16px", "white-space", "nowrap", "color", durColor), chat.FormatDuration(dur)))

	meta := div(st(
		"margin-left", "auto",
		"display", "flex", "align-items", "center", "column-gap", "4px",
		"font-size", "11px", "line-height", "16px", "white-space", "nowrap",
		"color", b.pal.timeText,
	), span("", m.Time))
	if isMe {
		meta.AppendChild(b.statusTick(m, "flex-shrink: 0"))
	}

	right := div(st("margin-left", "12px", "flex", "1 1 0%", "min-width", "0"),
		div(st("display", "flex", "flex-direction", "column", "min-width", "0", "height", "44px"),
			track,
			div(st("display", "flex", "align-items", "center", "column-gap", "8px", "min-width", "0"), left, meta),
		),
	)

	return div(st("padding", "10px 12px"),
		div(st("display", "flex", "align-items", "center", "min-width", "0"),
			avatarWrap,
			button("Play", st("margin-left", "8px", "flex-shrink", "0", "width", "40px", "height", "40px", "border-radius", roundFull, centerGrid, "", "color", playColor), svgIcon(iconPlay, 20, "")),
			right,
		),
	)
}

func (b *builder) messengerAudio(m chat.Message) *html.Node {
	isMe := m.Side == chat.Me
	playColor, barColor, durColor := neutral800, alphaBlack("0.3"), "rgba(38,38,38,0.75)"
	switch {
	case isMe:
		playColor, barColor, durColor = "#ffffff", alphaWhite("0.85"), alphaWhite("0.85")
	case b.dark:
		playColor, barColor, durColor = alphaWhite("0.85"), alphaWhite("0.55"), alphaWhite("0.8")
	}

	seed := uint32(12345)
	if m.WaveformSeed != nil {
		seed = m.Seed()
	}
	wave := div(st("display", "flex", "align-items", "center", "column-gap", "4px", "height", "20px"))
	for _, h := range chat.WaveBars(seed, 26, 6, 11) {
		wave.AppendChild(dom.El("span",
			dom.WithAttr("aria-hidden", "true"),
			dom.WithStyle(st("display", "block", "flex-shrink", "0", "width", "2px", "height", px(h), "border-radius", roundFull, "background-color", barColor)),
		))
	}
	dur := m.DurationSec
	if dur <= 0 {
		dur = 5
	}
	return div(st("padding", "8px 12px"),
		div(st("display", "flex", "align-items", "center", "column-gap", "12px", "padding", "8px"),
			button("Play", st("flex-shrink", "0", "color", playColor), svgIcon(iconPlay, 20, "display: block")),
			div(st("flex", "1 1 0%", "min-width", "150px"), wave),
			div(st("flex-shrink", "0", "font-size", "12px", "line-height", "16px", "font-variant-numeric", "tabular-nums", "color", durColor), dom.Text(chat.FormatDuration(dur))),
		),
	)
}

// ---- Input bar ----

func (b *builder) inputBar() *html.Node {
	bar := div(st(
		"position", "relative", "z-index", "20",
		"width", "100%",
		"border-top", "1px solid "+b.pal.inputBorder,
		"background-color", b.pal.inputBg,
	))
	switch {
	case b.wa && b.ios:
		bar.AppendChild(b.whatsAppIOSInput())
	case b.wa:
		bar.AppendChild(b.whatsAppAndroidInput())
	default:
		bar.AppendChild(b.messengerInput())
	}
	return bar
}

func (b *builder) whatsAppAndroidInput() *html.Node {
	pillBg, pillBorder, iconColor, hint := neutral50, neutral200, neutral700, neutral500
	micBg := "#25d366"
	if b.dark {
		pillBg, pillBorder, iconColor, hint = "rgba(42,47,51,0.9)", white10, alphaWhite("0.7"), alphaWhite("0.5")
		micBg = "#00a884"
	}
	iconBtn := func(label string, ic icon) *html.Node {
		return button(label, st("flex-shrink", "0", "color", iconColor), svgIcon(ic, 24, "display: block"))
	}
	pill := div(st(
		"flex", "1 1 0%", "min-width", "0",
		"height", "48px",
		"border-radius", roundFull,
		"border", "1px solid "+pillBorder,
		"display", "flex", "align-items", "center", "column-gap", "12px",
		"padding", "0 16px",
		"background-color", pillBg,
	),
		iconBtn("Emoji", iconSmile),
		div(st("display", "flex", "align-items", "center", "column-gap", "8px", "min-width", "0"),
			span(st("display", "block", "width", "3px", "height", "28px", "border-radius", roundFull, "flex-shrink", "0", "background-color", emerald400), ""),
			span(st("font-size", "14px", "line-height", "20px", "color", hint, truncate, ""), "Message"),
		),
		div(st("margin-left", "auto", "display", "flex", "align-items", "center", "column-gap", "16px", "flex-shrink", "0"),
			iconBtn("Attach", iconPaperclip),
			iconBtn("Camera", iconCamera),
		),
	)
	mic := div(st("width", "48px", "height", "48px", "border-radius", roundFull, centerGrid, "", "flex-shrink", "0", "color", "#ffffff", "background-color", micBg),
		svgIcon(iconMic, 20, ""))
	dom.SetAttr(mic, "aria-hidden", "true")
	return div(st("padding", "12px"),
		div(st("display", "flex", "align-items", "center", "column-gap", "12px"), pill, mic),
	)
}

func (b *builder) whatsAppIOSInput() *html.Node {
	iconColor, pillBg, pillBorder, trailing := neutral800, "rgba(245,245,245,0.8)", "rgba(229,229,229,0.7)", neutral700
	if b.dark {
		iconColor, pillBg, pillBorder, trailing = "#ffffff", white10, white10, alphaWhite("0.7")
	}
	side := func(label string, ic icon) *html.Node {
		return button(label, st("flex-shrink", "0", "border-radius", roundFull, "padding", "0", "color", iconColor), svgIcon(ic, 20, "display: block"))
	}
	pill := div(st(
		"flex", "1 1 0%", "min-width", "0",
		"height", "28px",
		"padding", "0 8px",
		"border-radius", roundFull,
		"border", "1px solid "+pillBorder,
		"display", "flex", "align-items", "center",
		"background-color", pillBg,
	),
		span(st("display", "block", "flex", "1 1 0%", "min-width", "0"), ""),
		button("Sticker", st("margin-left", "8px", centerGrid, "", "flex-shrink", "0", "border-radius", roundFull, "color", trailing), svgIcon(iconSticker, 20, "")),
	)
	return div(st("padding", "8px 12px"),
		div(st("display", "flex", "align-items", "center", "column-gap", "8px"),
			side("Plus", iconPlus), pill, side("Camera", iconCamera), side("Mic", iconMic),
		),
	)
}

func (b *builder) messengerInput() *html.Node {
	blue := b.pal.headerIcon
	pillBg, hint := "#f0f2f5", neutral600
	if b.dark {
		pillBg, hint = "#1f1f1f", alphaWhite("0.6")
	}
	round := func(label string, ic icon) *html.Node {
		return button(label, st("width", "40px", "height", "40px", "border-radius", roundFull, centerGrid, "", "flex-shrink", "0", "color", blue), svgIcon(ic, 24, ""))
	}
	pill := div(st(
		"flex", "1 1 0%",
		"height", "40px",
		"border-radius", roundFull,
		"padding", "0 16px",
		"display", "flex", "align-items", "center",
		"min-width", "150px",
		"column-gap", "12px",
		"background-color", pillBg,
	),
		span(st("font-size", "14px", "line-height", "20px", "color", hint, truncate, ""), "Message"),
		button("Emoji", st("margin-left", "auto", centerGrid, "", "flex-shrink", "0", "color", hint), svgIcon(iconSmile, 24, "")),
	)
	return div(st("padding", "12px"),
		div(st("display", "flex", "align-items", "center", "column-gap", "8px"),
			round("Plus", iconPlus), round("Camera", iconCamera), round("Image", iconImage), round("Mic", iconMic),
			pill,
			round("Like", iconThumbsUp),
		),
	)
}
