package session

import (
	"errors"
	"sync"
	"testing"
)

func TestNewRejectsEmptyToken(t *testing.T) {
	if _, err := New("   "); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestHolderEmpty(t *testing.T) {
	h := NewHolder(nil)

	if _, err := h.Token(); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestHolderReplace(t *testing.T) {
	first, err := New("token-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h := NewHolder(first)

	if tok, err := h.Token(); err != nil || tok != "token-1" {
		t.Fatalf("Token() = %q, %v; want token-1", tok, err)
	}

	held, err := h.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}

	second, err := New(" token-2 ")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.Replace(second)

	if tok, err := h.Token(); err != nil || tok != "token-2" {
		t.Errorf("Token() = %q, %v; want token-2", tok, err)
	}

	// A session obtained before Replace is unaffected.
	if got := held.Token(); got != "token-1" {
		t.Errorf("held session token = %q, want token-1", got)
	}
}

func TestHolderConcurrentReplace(t *testing.T) {
	s, err := New("a")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h := NewHolder(s)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			next, _ := New("b")
			h.Replace(next)
		}()
		go func() {
			defer wg.Done()
			tok, err := h.Token()
			if err != nil {
				t.Errorf("Token: %v", err)
				return
			}
			if tok != "a" && tok != "b" {
				t.Errorf("unexpected token %q", tok)
			}
		}()
	}
	wg.Wait()
}
