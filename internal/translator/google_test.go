package translator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestGoogleTranslator_Translate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "gtx", q.Get("client"))
		assert.Equal(t, "ja", q.Get("sl"))
		assert.Equal(t, "ko", q.Get("tl"))
		assert.Equal(t, "t", q.Get("dt"))
		assert.Equal(t, "こんにちは\nありがとう", q.Get("q"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[[["안녕하세요\n","こんにちは\n",null,null,10],["감사합니다","ありがとう",null,null,10]],null,"ja",null,null,null,1,[],[["ja"],null,[1],["ja"]]]`))
	}))
	defer server.Close()

	g := NewGoogleTranslator(language.Japanese, language.Korean, WithBaseURL(server.URL))
	got, err := g.Translate(context.Background(), "こんにちは\nありがとう")
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요\n감사합니다", got)
}

func TestGoogleTranslator_EmptyInputSkipsRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	g := NewGoogleTranslator(language.Japanese, language.Korean, WithBaseURL(server.URL))
	got, err := g.Translate(context.Background(), "  \n ")
	require.NoError(t, err)
	assert.Equal(t, "", got)
	assert.False(t, called)
}

func TestGoogleTranslator_RejectsLongInput(t *testing.T) {
	g := NewGoogleTranslator(language.Japanese, language.Korean, WithBaseURL("http://127.0.0.1:0"))

	_, err := g.Translate(context.Background(), strings.Repeat("あ", GoogleMaxChars+1))
	assert.ErrorIs(t, err, ErrTextTooLong)
}

func TestGoogleTranslator_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer server.Close()

	g := NewGoogleTranslator(language.Japanese, language.Korean, WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	_, err := g.Translate(context.Background(), "テスト")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestParseGoogleResponse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"single sentence", `[[["테스트","テスト",null,null,1]],null,"ja"]`, "테스트", false},
		{"skips non-string pieces", `[[["가",null],[null,"x"],["나"]]]`, "가나", false},
		{"not json", `<html>`, "", true},
		{"empty array", `[]`, "", true},
		{"wrong shape", `["oops"]`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseGoogleResponse([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "안녕...", truncate("안녕하세요", 2))
	assert.Equal(t, "こんにちは", truncate("こんにちは", 5))
	assert.True(t, utf8.ValidString(truncate(strings.Repeat("語", 300), 200)))
}
