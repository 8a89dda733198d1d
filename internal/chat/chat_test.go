package chat

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"75", 75, true},
		{" 12 ", 12, true},
		{"1:15", 75, true},
		{"0:12", 12, true},
		{"10:05", 605, true},
		{"0", 0, false},
		{"0:00", 0, false},
		{"1:60", 0, false},
		{"1:5", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseDuration(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1:15", FormatDuration(75))
	assert.Equal(t, "0:05", FormatDuration(5))
	assert.Equal(t, "10:00", FormatDuration(600))
	assert.Equal(t, "0:00", FormatDuration(-1))
}

func TestNowTime(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2024, 1, 15, h, m, 0, 0, time.UTC) }
	assert.Equal(t, "2:04 pm", NowTime(at(14, 4)))
	assert.Equal(t, "12:00 am", NowTime(at(0, 0)))
	assert.Equal(t, "12:30 pm", NowTime(at(12, 30)))
	assert.Equal(t, "9:07 am", NowTime(at(9, 7)))
}

func TestHashAndWaveBars(t *testing.T) {
	assert.Equal(t, uint32(0), HashToInt(""))
	assert.Equal(t, uint32('a'), HashToInt("a"))
	assert.Equal(t, uint32('a')*31+uint32('b'), HashToInt("ab"))

	bars := WaveBars(1, 26, 6, 11)
	require.Len(t, bars, 26)
	// x = 1*1664525 + 1013904223 = 1015568748; 1015568748 % 11 = 7
	assert.Equal(t, 13, bars[0])
	for _, b := range bars {
		assert.GreaterOrEqual(t, b, 6)
		assert.LessOrEqual(t, b, 16)
	}
	assert.Equal(t, WaveBars(0, 5, 6, 13), WaveBars(1, 5, 6, 13))
	assert.Equal(t, WaveBars(42, 18, 6, 13), WaveBars(42, 18, 6, 13))
}

func TestMessageDefaults(t *testing.T) {
	m := Message{ID: "x", Side: Them}
	assert.Equal(t, Text, m.Kind())
	assert.True(t, m.Unplayed())
	assert.Equal(t, HashToInt("x"), m.Seed())

	played := true
	seed := int64(7)
	m.IsPlayed, m.WaveformSeed = &played, &seed
	assert.False(t, m.Unplayed())
	assert.Equal(t, uint32(7), m.Seed())

	assert.False(t, Message{ID: "y", Side: Me}.Unplayed())
}

func TestNewMessages(t *testing.T) {
	now := time.Date(2024, 1, 15, 14, 4, 0, 0, time.UTC)
	m := NewText(Me, "hola", now)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, Read, m.Status)
	assert.Equal(t, "2:04 pm", m.Time)
	assert.Empty(t, NewText(Them, "hey", now).Status)

	a, err := NewAudio(Them, "1:15", now)
	require.NoError(t, err)
	assert.Equal(t, 75, a.DurationSec)
	assert.True(t, a.Unplayed())
	require.NotNil(t, a.WaveformSeed)
	assert.Less(t, *a.WaveformSeed, int64(1_000_000))

	_, err = NewAudio(Me, "nope", now)
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestConversationValidate(t *testing.T) {
	c := New()
	require.NoError(t, c.Validate())
	assert.Equal(t, "B", c.Initial())
	assert.Equal(t, "#070b10", c.Theme.Background())
	assert.Equal(t, "#f3f4f6", Light.Background())

	bad := c.Clone()
	bad.Platform = "telegram"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPlatform)

	bad = c.Clone()
	bad.Messages = append(bad.Messages, Message{ID: "z", Side: Me, Text: "  "})
	assert.ErrorIs(t, bad.Validate(), ErrInvalidMessage)

	assert.Equal(t, "A", Conversation{}.Initial())
}

func TestStoreDispatch(t *testing.T) {
	s := NewStore(New())
	var seen []Conversation
	unsub := s.Subscribe(func(c Conversation) { seen = append(seen, c) })

	require.NoError(t, s.Dispatch(SetTheme(Light)))
	require.NoError(t, s.Dispatch(SetContactName("Ana")))
	require.NoError(t, s.Dispatch(ClearMessages{}))
	assert.ErrorIs(t, s.Dispatch(SetPlatform("icq")), ErrInvalidPlatform)

	snap := s.Snapshot()
	assert.Equal(t, Light, snap.Theme)
	assert.Equal(t, WhatsApp, snap.Platform)
	assert.Equal(t, "Ana", snap.ContactName)
	assert.Empty(t, snap.Messages)
	require.Len(t, seen, 3)
	assert.Equal(t, Light, seen[0].Theme)
	assert.Len(t, seen[0].Messages, 4)

	unsub()
	require.NoError(t, s.Dispatch(LoadDemo{}))
	assert.Len(t, seen, 3)
	assert.Len(t, s.Snapshot().Messages, 4)
}

func TestStoreSnapshotIsolated(t *testing.T) {
	s := NewStore(New())
	snap := s.Snapshot()
	snap.Messages[0].Text = "changed"
	assert.NotEqual(t, "changed", s.Snapshot().Messages[0].Text)
}

func TestStoreReplaceNormalizes(t *testing.T) {
	s := NewStore(Conversation{})
	require.NoError(t, s.Dispatch(Replace(Conversation{ContactName: "Luz"})))
	snap := s.Snapshot()
	assert.Equal(t, WhatsApp, snap.Platform)
	assert.Equal(t, Dark, snap.Theme)
	assert.Equal(t, Android, snap.OS)
}

func TestStoreConcurrentDispatch(t *testing.T) {
	s := NewStore(Conversation{})
	var mu sync.Mutex
	count := 0
	s.Subscribe(func(Conversation) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Dispatch(AddMessage(NewText(Them, "hi", time.Now())))
		}()
	}
	wg.Wait()
	assert.Len(t, s.Snapshot().Messages, 20)
	assert.Equal(t, 20, count)
}

func TestIngest(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	url, err := IngestBytes(buf.Bytes())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	_, err = Ingest(strings.NewReader("just text"))
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = IngestBytes(make([]byte, MaxImageBytes+1))
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestParseConversation(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "me.png"), buf.Bytes(), 0o644))

	src := `
platform: messenger
theme: light
me_avatar: me.png
messages:
  - id: "1"
    side: them
    time: "9:41 am"
    text: Hola
  - side: me
    time: "9:42 am"
    type: audio
    duration_sec: 75
`
	path := filepath.Join(dir, "chat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Messenger, c.Platform)
	assert.Equal(t, Light, c.Theme)
	assert.Equal(t, Android, c.OS)
	assert.Equal(t, DefaultContactName, c.ContactName)
	assert.True(t, strings.HasPrefix(c.MeAvatar, "data:image/png;base64,"))
	require.Len(t, c.Messages, 2)
	assert.Equal(t, Audio, c.Messages[1].Kind())
	assert.Equal(t, 75, c.Messages[1].DurationSec)
	assert.NotEmpty(t, c.Messages[1].ID)
}

func TestParseConversationJSON(t *testing.T) {
	c, err := Parse([]byte(`{"platform":"whatsapp","os":"ios","contact_name":"Ana","messages":[]}`), "")
	require.NoError(t, err)
	assert.Equal(t, IOS, c.OS)
	assert.Equal(t, "Ana", c.ContactName)
	assert.Empty(t, c.Messages)
}

func TestParseConversationRejects(t *testing.T) {
	_, err := Parse([]byte("platform: telegram"), "")
	assert.ErrorIs(t, err, ErrInvalidPlatform)

	_, err = Parse([]byte("wallpaper: missing.png"), t.TempDir())
	assert.Error(t, err)
}
