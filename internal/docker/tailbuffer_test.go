package docker

import (
	"strings"
	"testing"
)

func TestTailBuffer_UnderCapacity(t *testing.T) {
	b := newTailBuffer(16)
	b.Write([]byte("hello "))
	b.Write([]byte("world"))
	if got := b.String(); got != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestTailBuffer_Empty(t *testing.T) {
	b := newTailBuffer(16)
	if got := b.String(); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestTailBuffer_WrapKeepsTail(t *testing.T) {
	b := newTailBuffer(8)
	b.Write([]byte("abcdef"))
	b.Write([]byte("ghijk"))
	if got := b.String(); got != "defghijk" {
		t.Fatalf("got %q", got)
	}
}

func TestTailBuffer_SingleOversizedWrite(t *testing.T) {
	b := newTailBuffer(4)
	b.Write([]byte("abcdefgh"))
	if got := b.String(); got != "efgh" {
		t.Fatalf("got %q", got)
	}
}

func TestTailBuffer_ResultLineSurvivesFlood(t *testing.T) {
	b := newTailBuffer(64)
	b.Write([]byte(strings.Repeat("x", 1000)))
	b.Write([]byte("\n{\"ok\":true}"))
	if got := b.String(); !strings.HasSuffix(got, "{\"ok\":true}") {
		t.Fatalf("result line lost: %q", got)
	}
	if len(b.String()) != 64 {
		t.Fatalf("retained %d bytes, want 64", len(b.String()))
	}
}
