package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendMessagePostsForm(t *testing.T) {
	t.Parallel()

	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotPath = r.URL.Path
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	n := NewNotifier(Config{APIURL: srv.URL + "/", BotToken: "123:abc", ChatID: "@news"})
	if err := n.SendMessage(context.Background(), "hello\nworld"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if gotPath != "/bot123:abc/sendMessage" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotChat != "@news" || gotText != "hello\nworld" {
		t.Fatalf("unexpected form chat=%q text=%q", gotChat, gotText)
	}
}

func TestSendMessageReportsAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	n := NewNotifier(Config{APIURL: srv.URL, BotToken: "t", ChatID: "1"})
	err := n.SendMessage(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestSendMessageRejectsNotOK(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false}`))
	}))
	defer srv.Close()

	n := NewNotifier(Config{APIURL: srv.URL, BotToken: "t", ChatID: "1"})
	if err := n.SendMessage(context.Background(), "x"); err == nil {
		t.Fatal("expected error for ok=false")
	}
}

func TestSendMessageMisconfigured(t *testing.T) {
	t.Parallel()

	n := NewNotifier(Config{})
	if err := n.SendMessage(context.Background(), "x"); err == nil {
		t.Fatal("expected misconfiguration error")
	}
}

func TestSendMessageRedactsToken(t *testing.T) {
	t.Parallel()

	n := NewNotifier(Config{APIURL: "http://127.0.0.1:1", BotToken: "secret-token", ChatID: "1"})
	err := n.SendMessage(context.Background(), "x")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Fatalf("token leaked into error: %v", err)
	}
}
