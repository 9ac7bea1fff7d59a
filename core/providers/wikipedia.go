package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Wikipedia fetches article summaries from the Wikipedia REST API.
type Wikipedia struct {
	client  *http.Client
	baseURL string
}

// NewWikipedia builds a client for baseURL, or https://<lang>.wikipedia.org when baseURL is empty.
func NewWikipedia(client *http.Client, lang, baseURL string) *Wikipedia {
	if lang == "" {
		lang = "ru"
	}
	if baseURL == "" {
		baseURL = "https://" + lang + ".wikipedia.org"
	}
	return &Wikipedia{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

type wikiSummary struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

// Lookup returns the summary of the page titled query. A missing page is not an error.
func (w *Wikipedia) Lookup(ctx context.Context, query string) (string, bool, error) {
	title := strings.ReplaceAll(strings.TrimSpace(query), " ", "_")
	if title == "" {
		return "", false, nil
	}
	endpoint := w.baseURL + "/api/rest_v1/page/summary/" + url.PathEscape(title)

	var out wikiSummary
	status, err := getJSON(ctx, w.client, "wikipedia", endpoint, &out)
	if status == http.StatusNotFound && errors.Is(err, ErrUnavailable) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if strings.HasSuffix(out.Type, "not_found") {
		return "", false, nil
	}
	if out.Extract == "" {
		return "", false, fmt.Errorf("providers: wikipedia: empty extract for %q: %w", title, ErrUnavailable)
	}
	return out.Extract, true, nil
}
