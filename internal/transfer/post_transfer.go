package transfer

type PostSubmission struct {
	AccountID   int64  `json:"account_id"`
	Content     string `json:"content"`
	MediaURL    string `json:"media_url"`
	ScheduledAt string `json:"scheduled_at"`
}

type TextGeneration struct {
	Prompt string `json:"prompt"`
}

type ImageGeneration struct {
	Prompt string `json:"prompt"`
	Store  bool   `json:"store"`
}

type GeneratedImage struct {
	URL       string `json:"url"`
	StoredURL string `json:"stored_url,omitempty"`
}
