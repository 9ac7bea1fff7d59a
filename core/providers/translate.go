package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// GoogleTranslate uses the public translate_a/single endpoint with auto-detected source.
type GoogleTranslate struct {
	client  *http.Client
	baseURL string
}

// NewGoogleTranslate builds a translator. An empty baseURL selects translate.googleapis.com.
func NewGoogleTranslate(client *http.Client, baseURL string) *GoogleTranslate {
	if baseURL == "" {
		baseURL = "https://translate.googleapis.com"
	}
	return &GoogleTranslate{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Translate renders text in the target language.
func (g *GoogleTranslate) Translate(ctx context.Context, text, target string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "auto")
	q.Set("tl", target)
	q.Set("dt", "t")
	q.Set("q", text)

	// Response shape: [[["<translated>","<source>",...],...],null,"<detected lang>",...]
	var raw []any
	if _, err := getJSON(ctx, g.client, "translate", g.baseURL+"/translate_a/single?"+q.Encode(), &raw); err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("providers: translate: empty response: %w", ErrUnavailable)
	}
	segments, ok := raw[0].([]any)
	if !ok {
		return "", fmt.Errorf("providers: translate: unexpected payload: %w", ErrUnavailable)
	}
	var b strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			b.WriteString(s)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("providers: translate: no segments: %w", ErrUnavailable)
	}
	return b.String(), nil
}
