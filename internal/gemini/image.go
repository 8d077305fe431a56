package gemini

import (
	"context"
	"fmt"

	"github.com/spelldeck/spelldeck/internal/storage"
)

const imagePromptSuffix = ". Please generate an image with high quality, suitable for educational materials."

// Image is a generated illustration.
type Image struct {
	Base64   string `json:"imageBase64"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// DataURI returns the image as a data URI.
func (i Image) DataURI() string {
	return "data:" + i.MimeType + ";base64," + i.Base64
}

// FlashcardPrompt is the illustration prompt for a flashcard word.
func FlashcardPrompt(word, sentence string) string {
	return fmt.Sprintf(`Create a clean, minimalist illustration of "%[1]s" for educational flashcards.

STRICT STYLE GUIDELINES (MUST FOLLOW):
- Background: Pure white (#FFFFFF) only, no gradients, no shadows, no vignettes
- Style: Flat 2D vector illustration, no 3D effects, no photorealism
- Colors: Limited pastel palette - soft blue (#B8D4E3), soft pink (#F4C2C2), soft yellow (#F9E4B7), soft green (#C1E1C1), soft purple (#D4C4E0)
- Composition: Single centered subject, taking up exactly 65-75%% of the image area
- Subject: Simple, iconic representation of "%[1]s", immediately recognizable
- Borders: Absolutely NO borders, frames, or decorative edges
- Text: Absolutely NO text, letters, numbers, or watermarks
- Shadows: NO drop shadows, no depth effects, no gradients
- Complexity: Minimal details, clean lines, geometric shapes preferred
- Mood: Friendly, educational, suitable for children aged 6-12
- Consistency: Match the style of children's educational book illustrations

TECHNICAL SPECIFICATIONS:
- Aspect ratio: Perfect square (1:1)
- Resolution: 1024x1024 pixels
- Format: PNG with transparent or pure white background
- Centering: Subject perfectly centered both horizontally and vertically

CONTEXT: "%[2]s"

Generate a consistent, professional educational illustration.`, word, sentence)
}

// GenerateImage renders prompt with the image model. Requests are paced by
// the client's rate limit. Width and height are advisory; the model picks
// the final size.
func (c *Client) GenerateImage(ctx context.Context, prompt string, width, height int) (Image, error) {
	if !c.Configured() {
		return Image{}, ErrNotConfigured
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Image{}, fmt.Errorf("rate limit wait cancelled: %w", err)
		}
	}

	c.logger.Debug("generating image", "prompt", preview(prompt, 50), "width", width, "height", height)
	req := generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt + imagePromptSuffix}}}},
		GenerationConfig: &generationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	}

	resp, err := c.generate(ctx, ImageModel, req, c.config.ImageTimeout)
	if err != nil {
		return Image{}, err
	}
	parts, err := resp.parts()
	if err != nil {
		return Image{}, err
	}

	img := Image{MimeType: "image/png", Text: "Image generated successfully"}
	found, textSet := false, false
	for _, p := range parts {
		if p.InlineData != nil && !found {
			img.Base64 = storage.StripDataURIPrefix(p.InlineData.Data)
			if p.InlineData.MimeType != "" {
				img.MimeType = p.InlineData.MimeType
			}
			found = true
		}
		if p.Text != "" && !textSet {
			img.Text = p.Text
			textSet = true
		}
	}
	if !found {
		return Image{}, ErrNoImage
	}
	return img, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
