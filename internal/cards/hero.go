package cards

import (
	"encoding/json"
	"fmt"

	"github.com/wolfman30/flymebot/internal/dialog"
)

// ContentTypeHero is the attachment type of hero cards.
const ContentTypeHero = "application/vnd.microsoft.card.hero"

// CardImage is an image shown on a hero card.
type CardImage struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// HeroCard is a title, optional text and images.
type HeroCard struct {
	Title    string      `json:"title,omitempty"`
	Subtitle string      `json:"subtitle,omitempty"`
	Text     string      `json:"text,omitempty"`
	Images   []CardImage `json:"images,omitempty"`
}

// Attachment encodes the card.
func (h HeroCard) Attachment() (dialog.Attachment, error) {
	content, err := json.Marshal(h)
	if err != nil {
		return dialog.Attachment{}, fmt.Errorf("cards: encode hero card: %w", err)
	}
	return dialog.Attachment{ContentType: ContentTypeHero, Content: content}, nil
}
