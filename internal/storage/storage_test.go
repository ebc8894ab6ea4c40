package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		dest string
		want Destination
	}{
		{"/tmp/videos/movie.mkv", Destination{Dir: "/tmp/videos/", Key: "movie.mkv"}},
		{"movie.mkv", Destination{Dir: ".", Key: "movie.mkv"}},
		{"mem://#movie.mkv", Destination{BucketURL: "mem://", Key: "movie.mkv"}},
		{"s3://b?region=eu-west-1#videos/a.mp4", Destination{BucketURL: "s3://b?region=eu-west-1", Key: "videos/a.mp4"}},
	}

	for _, tt := range tests {
		got, err := Parse(tt.dest)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.dest, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.dest, got, tt.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	for _, dest := range []string{"", "mem://", "mem://#", "s3://b#videos/"} {
		if _, err := Parse(dest); !errors.Is(err, ErrInvalidDestination) {
			t.Errorf("Parse(%q): expected ErrInvalidDestination, got %v", dest, err)
		}
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		dir, name, want string
	}{
		{"dl", "a.mkv", filepath.Join("dl", "a.mkv")},
		{"mem://", "a.mkv", "mem://#a.mkv"},
		{"s3://b#shows", "a.mkv", "s3://b#shows/a.mkv"},
	}
	for _, tt := range tests {
		if got := Join(tt.dir, tt.name); got != tt.want {
			t.Errorf("Join(%q, %q) = %q, want %q", tt.dir, tt.name, got, tt.want)
		}
	}
}

func TestWriteLocalFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dest := filepath.Join(dir, "sub", "movie.mkv")

	s := NewStore()
	defer s.Close()

	for _, data := range []string{"first", "second"} {
		if err := s.Write(ctx, dest, []byte(data)); err != nil {
			t.Fatalf("Write %s: %v", data, err)
		}
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("file holds %q, want second", got)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "sub"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "movie.mkv" {
		t.Errorf("expected only movie.mkv, no sidecar or temp files; got %d entries", len(entries))
	}
}

func TestWriteMemBucket(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	defer s.Close()

	ok, err := s.Exists(ctx, "mem://#a/b.bin")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("object exists before write")
	}

	if err := s.Write(ctx, "mem://#a/b.bin", []byte{1, 2, 3}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := s.Read(ctx, "mem://#a/b.bin")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("Read = %v, want [1 2 3]", got)
	}
}

func TestWriteInvalidDestination(t *testing.T) {
	s := NewStore()
	defer s.Close()

	err := s.Write(context.Background(), "mem://", []byte("x"))
	if !errors.Is(err, ErrInvalidDestination) {
		t.Errorf("expected ErrInvalidDestination, got %v", err)
	}
}

func TestWriteErrorNamesDestination(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("not a dir"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore()
	defer s.Close()

	dest := filepath.Join(blocker, "x.bin")
	err := s.Write(context.Background(), dest, []byte("x"))

	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("expected *WriteError, got %v", err)
	}
	if we.Dest != dest {
		t.Errorf("Dest = %q, want %q", we.Dest, dest)
	}
	if !strings.Contains(err.Error(), "write "+dest) {
		t.Errorf("error %q does not name the destination", err)
	}
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"movie.mkv":        "movie.mkv",
		"AC/DC - Live.mp3": "AC_DC - Live.mp3",
		`a\b.txt`:          "a_b.txt",
		"../../etc/passwd": ".._.._etc_passwd",
		"bell\a.txt":       "bell.txt",
		"  ":               "unnamed",
		"..":               "unnamed",
		"Ep 1: Pilot.mkv":  "Ep 1: Pilot.mkv",
	}
	for in, want := range tests {
		if got := SafeName(in); got != want {
			t.Errorf("SafeName(%q) = %q, want %q", in, got, want)
		}
	}
}
