package linkedin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"NewsCurator/internal/config"
	"NewsCurator/internal/ports"
)

func TestShareSendsUGCPayload(t *testing.T) {
	t.Parallel()

	var (
		got     map[string]any
		headers http.Header
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"urn:li:share:1"}`))
	}))
	defer server.Close()

	client := NewClient(config.LinkedInConfig{Endpoint: server.URL, AccessToken: "tok", MemberID: "abc"})
	resp, err := client.Share(context.Background(), ports.ShareRequest{
		Text:         "Hallo LinkedIn",
		ArticleURL:   "https://heise.de/a",
		ArticleTitle: "Titel",
		ThumbnailURL: "https://cdn.heise.de/a.jpg",
	})
	if err != nil {
		t.Fatalf("Share error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated || resp.Body != `{"id":"urn:li:share:1"}` {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if headers.Get("Authorization") != "Bearer tok" || headers.Get("X-Restli-Protocol-Version") != "2.0.0" {
		t.Fatalf("unexpected headers: %v", headers)
	}
	if got["author"] != "urn:li:person:abc" || got["lifecycleState"] != "PUBLISHED" {
		t.Fatalf("unexpected author/state: %v", got)
	}

	content := got["specificContent"].(map[string]any)["com.linkedin.ugc.ShareContent"].(map[string]any)
	if content["shareMediaCategory"] != "ARTICLE" {
		t.Fatalf("unexpected category: %v", content["shareMediaCategory"])
	}
	if content["shareCommentary"].(map[string]any)["text"] != "Hallo LinkedIn" {
		t.Fatalf("unexpected commentary: %v", content["shareCommentary"])
	}
	m := content["media"].([]any)[0].(map[string]any)
	if m["originalUrl"] != "https://heise.de/a" || m["status"] != "READY" {
		t.Fatalf("unexpected media: %v", m)
	}
	if m["description"].(map[string]any)["text"] != "AI News Update" {
		t.Fatalf("unexpected media description: %v", m["description"])
	}
	thumbs := m["thumbnails"].([]any)
	if thumbs[0].(map[string]any)["url"] != "https://cdn.heise.de/a.jpg" {
		t.Fatalf("unexpected thumbnails: %v", thumbs)
	}
	vis := got["visibility"].(map[string]any)
	if vis["com.linkedin.ugc.MemberNetworkVisibility"] != "PUBLIC" {
		t.Fatalf("unexpected visibility: %v", vis)
	}
}

func TestShareReturnsErrorResponsesWithoutError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"serviceErrorCode":65601,"message":"The token used in the request has expired"}`))
	}))
	defer server.Close()

	client := NewClient(config.LinkedInConfig{Endpoint: server.URL, AccessToken: "tok", MemberID: "abc"})
	resp, err := client.Share(context.Background(), ports.ShareRequest{Text: "x"})
	if err != nil {
		t.Fatalf("Share error: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestBuildPostWithoutArticle(t *testing.T) {
	t.Parallel()

	post := buildPost("abc", ports.ShareRequest{Text: "nur Text"})
	content := post.SpecificContent["com.linkedin.ugc.ShareContent"]
	if content.ShareMediaCategory != "NONE" || len(content.Media) != 0 {
		t.Fatalf("unexpected content: %+v", content)
	}
}
