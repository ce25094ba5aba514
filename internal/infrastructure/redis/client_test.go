package redis

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewClientConnects(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	ctx := context.Background()
	client, err := NewClient(ctx, fmt.Sprintf("redis://%s", s.Addr()))
	if err != nil {
		t.Fatalf("expected client, got error: %v", err)
	}
	defer client.Close()

	// Prove the client is usable, not just constructed.
	if err := client.Set(ctx, "account:1", "ok", 0).Err(); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := s.Get("account:1")
	if err != nil || got != "ok" {
		t.Fatalf("expected mirrored value, got %q (err %v)", got, err)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, url := range []string{"://bad-url", "http://localhost:6379", ""} {
		if _, err := NewClient(context.Background(), url); err == nil {
			t.Errorf("expected error for URL %q", url)
		}
	}
}

func TestNewClientServerDown(t *testing.T) {
	s := miniredis.RunT(t)
	url := fmt.Sprintf("redis://%s", s.Addr())
	s.Close() // free the port before dialing

	if _, err := NewClient(context.Background(), url); err == nil {
		t.Fatalf("expected ping error when server is down")
	}
}
