package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
)

const (
	defaultGoogleBaseURL = "https://translate.googleapis.com/translate_a/single"
	// GoogleMaxChars is the longest input the public endpoint accepts.
	GoogleMaxChars = 5000
)

var ErrTextTooLong = errors.New("text exceeds translation length limit")

type GoogleOption func(*GoogleTranslator)

func WithBaseURL(baseURL string) GoogleOption {
	return func(g *GoogleTranslator) {
		if baseURL != "" {
			g.baseURL = baseURL
		}
	}
}

func WithHTTPClient(client *http.Client) GoogleOption {
	return func(g *GoogleTranslator) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// GoogleTranslator calls the keyless Google Translate web endpoint (client=gtx).
type GoogleTranslator struct {
	source     language.Tag
	target     language.Tag
	baseURL    string
	httpClient *http.Client
}

func NewGoogleTranslator(source, target language.Tag, opts ...GoogleOption) *GoogleTranslator {
	g := &GoogleTranslator{
		source:     source,
		target:     target,
		baseURL:    defaultGoogleBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GoogleTranslator) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if n := utf8.RuneCountInString(text); n > GoogleMaxChars {
		return "", fmt.Errorf("%w: %d > %d characters", ErrTextTooLong, n, GoogleMaxChars)
	}

	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", g.source.String())
	query.Set("tl", g.target.String())
	query.Set("dt", "t")
	query.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("google translate request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google translate returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return parseGoogleResponse(body)
}

// parseGoogleResponse joins the translated sentence pieces of a gtx reply:
// [[["번역","原文",null,null,10],...],null,"ja",...]
func parseGoogleResponse(body []byte) (string, error) {
	var top []json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return "", fmt.Errorf("failed to parse google response: %w", err)
	}
	if len(top) == 0 {
		return "", fmt.Errorf("empty google response")
	}

	var sentences []json.RawMessage
	if err := json.Unmarshal(top[0], &sentences); err != nil {
		return "", fmt.Errorf("unexpected google response shape: %w", err)
	}

	var sb strings.Builder
	for _, raw := range sentences {
		var parts []any
		if err := json.Unmarshal(raw, &parts); err != nil || len(parts) == 0 {
			continue
		}
		if piece, ok := parts[0].(string); ok {
			sb.WriteString(piece)
		}
	}
	return sb.String(), nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
