package widget

// DefaultID names the widget profile used when a session does not pick one.
const DefaultID = "default"

// Widget describes one embedded chat widget and where its messages go.
type Widget struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Greeting   string `json:"greeting,omitempty"`
	Language   string `json:"language"`
	Voice      string `json:"voice,omitempty"`
	WebhookURL string `json:"-"`
}

// Seed builds the default widget profile from the supplied settings.
func Seed(title, greeting, language, voice, webhookURL string) []Widget {
	if title == "" {
		title = "Chat Assistant"
	}
	if language == "" {
		language = "en-US"
	}
	return []Widget{
		{
			ID:         DefaultID,
			Title:      title,
			Greeting:   greeting,
			Language:   language,
			Voice:      voice,
			WebhookURL: webhookURL,
		},
	}
}
