package chat

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/arran4/chat2png/pkg/idgen"
)

var clockDuration = regexp.MustCompile(`^(\d+):([0-5]\d)$`)

// ParseDuration accepts whole seconds ("75") or minutes and seconds
// ("1:15"). Zero and malformed input are rejected.
func ParseDuration(s string) (int, bool) {
	v := strings.TrimSpace(s)
	if v == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 || strings.HasPrefix(v, "+") || strings.HasPrefix(v, "-") {
			return 0, false
		}
		return n, true
	}
	m := clockDuration.FindStringSubmatch(v)
	if m == nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	seconds, _ := strconv.Atoi(m[2])
	total := minutes*60 + seconds
	if total <= 0 {
		return 0, false
	}
	return total, true
}

// FormatDuration renders seconds as m:ss.
func FormatDuration(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

// NowTime formats t the way bubble timestamps are written ("2:04 pm").
func NowTime(t time.Time) string {
	h := t.Hour()
	ampm := "am"
	if h >= 12 {
		ampm = "pm"
	}
	return fmt.Sprintf("%d:%02d %s", (h+11)%12+1, t.Minute(), ampm)
}

// HashToInt is a stable 31-multiplier string hash used as a waveform seed.
func HashToInt(s string) uint32 {
	var h uint32
	for _, u := range utf16Units(s) {
		h = h*31 + uint32(u)
	}
	return h
}

func utf16Units(s string) []uint16 {
	out := make([]uint16, 0, len(s))
	for _, r := range s {
		if r >= 0x10000 {
			r -= 0x10000
			out = append(out, uint16(0xd800+(r>>10)), uint16(0xdc00+(r&0x3ff)))
			continue
		}
		out = append(out, uint16(r))
	}
	return out
}

// WaveBars returns count bar heights in px from a linear congruential
// sequence: base + x%spread for each step. A zero seed is treated as 1.
func WaveBars(seed uint32, count, base, spread int) []int {
	x := seed
	if x == 0 {
		x = 1
	}
	bars := make([]int, count)
	for i := range bars {
		x = x*1664525 + 1013904223
		bars[i] = base + int(x%uint32(spread))
	}
	return bars
}

// NewText builds an outgoing or incoming text message stamped with now.
// Outgoing messages start as read.
func NewText(side Side, text string, now time.Time) Message {
	m := Message{
		ID:   idgen.NewMessageID(),
		Side: side,
		Time: NowTime(now),
		Type: Text,
		Text: text,
	}
	if side == Me {
		m.Status = Read
	}
	return m
}

// NewAudio builds a voice note. duration is parsed with ParseDuration.
func NewAudio(side Side, duration string, now time.Time) (Message, error) {
	sec, ok := ParseDuration(duration)
	if !ok {
		return Message{}, fmt.Errorf("%w: duration %q", ErrInvalidMessage, duration)
	}
	played := side == Me
	seed := rand.Int64N(1_000_000)
	m := Message{
		ID:           idgen.NewMessageID(),
		Side:         side,
		Time:         NowTime(now),
		Type:         Audio,
		DurationSec:  sec,
		IsPlayed:     &played,
		WaveformSeed: &seed,
	}
	if side == Me {
		m.Status = Read
	}
	return m, nil
}
