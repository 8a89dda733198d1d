package chat

// SampleMessages is the demo conversation.
func SampleMessages() []Message {
	return []Message{
		{ID: "1", Side: Me, Text: "Así se están viendo tus boletos 🤔", Time: "2:04 pm", Status: Read},
		{ID: "2", Side: Me, Text: "Jajajaja", Time: "2:04 pm", Status: Read},
		{ID: "3", Side: Them, Text: "🙄🙄", Time: "2:04 pm"},
		{ID: "5", Side: Me, Text: "Ya adonde van?", Time: "2:04 pm", Status: Read},
	}
}
