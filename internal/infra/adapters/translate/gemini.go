package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"audio-translation-service/internal/domain/ports/adapter"
	"audio-translation-service/internal/infra/metrics"
)

var _ adapter.Translator = (*GeminiTranslator)(nil)

// GeminiTranslator implements adapter.Translator with the official Gemini SDK.
// Each chunk is one single-turn chat; the prompt pins down the speaker label
// contract the pipeline depends on.
type GeminiTranslator struct {
	client *genai.Client
	model  string
	maxOut int
}

func NewGeminiTranslator(ctx context.Context, apiKey, baseURL, model string) (*GeminiTranslator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiTranslator{client: c, model: model, maxOut: 8192}, nil
}

func (g *GeminiTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string, speakers []string) (string, error) {
	start := time.Now()
	out, err := g.translate(ctx, text, sourceLang, targetLang, speakers)
	metrics.ObserveProviderCall("gemini", "translate", int(time.Since(start).Milliseconds()), err == nil)
	return out, err
}

func (g *GeminiTranslator) translate(ctx context.Context, text, sourceLang, targetLang string, speakers []string) (string, error) {
	chat, err := g.client.Chats.Create(
		ctx,
		g.model,
		&genai.GenerateContentConfig{
			MaxOutputTokens: int32(g.maxOut),
		},
		nil,
	)
	if err != nil {
		return "", err
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: buildPrompt(text, sourceLang, targetLang, speakers)})
	if err != nil {
		return "", err
	}

	reply := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		reply = resp.Candidates[0].Content.Parts[0].Text
	}
	if strings.TrimSpace(reply) == "" {
		return "", errors.New("gemini: empty translation response")
	}
	return reply, nil
}

func buildPrompt(text, sourceLang, targetLang string, speakers []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate the following dialogue from %s to %s.\n", sourceLang, targetLang)
	b.WriteString("Rules:\n")
	b.WriteString("- Keep every speaker label exactly as written")
	if len(speakers) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(speakers, ", "))
	}
	b.WriteString(", followed by a half-width colon.\n")
	b.WriteString("- Translate only the spoken text. Do not add notes, commentary or markup.\n")
	b.WriteString("- Preserve the line and blank-line structure of the input.\n\n")
	b.WriteString(text)
	return b.String()
}
