package drive

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ligustah/drivefetch/internal/downloader"
	dfhttp "github.com/ligustah/drivefetch/internal/http"
	"github.com/ligustah/drivefetch/internal/session"
	"github.com/ligustah/drivefetch/internal/testutils"
)

const testToken = "drive-token"

func newTestClient(t *testing.T, server *testutils.RangeServer, pageSize int) *Client {
	t.Helper()
	sess, err := session.New(testToken)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	return NewClient(dfhttp.NewClient(dfhttp.DefaultOptions()), session.NewHolder(sess), Options{
		BaseURL:  server.URL,
		PageSize: pageSize,
	})
}

func TestContentURL(t *testing.T) {
	tests := []struct {
		base, id, want string
	}{
		{DefaultBaseURL, "abc123", "https://www.googleapis.com/drive/v3/files/abc123?alt=media&supportsAllDrives=true"},
		{"http://localhost/", "abc", "http://localhost/files/abc?alt=media&supportsAllDrives=true"},
	}
	for _, tt := range tests {
		if got := ContentURL(tt.base, tt.id); got != tt.want {
			t.Errorf("ContentURL(%q, %q) = %q, want %q", tt.base, tt.id, got, tt.want)
		}
	}
}

func TestFolderIDFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://drive.google.com/drive/folders/1AbC_d-E?usp=share_link", "1AbC_d-E"},
		{"https://drive.google.com/drive/u/0/folders/1AbC/", "1AbC"},
		{"https://drive.google.com/open?id=XYZ", "XYZ"},
		{"  1AbC  ", "1AbC"},
	}
	for _, tt := range tests {
		got, err := FolderIDFromURL(tt.in)
		if err != nil {
			t.Errorf("FolderIDFromURL(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FolderIDFromURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "https://drive.google.com/drive/folders/", "https://drive.google.com/open"} {
		if _, err := FolderIDFromURL(bad); !errors.Is(err, ErrInvalidFolder) {
			t.Errorf("FolderIDFromURL(%q): expected ErrInvalidFolder, got %v", bad, err)
		}
	}
}

func TestListFolderPaginates(t *testing.T) {
	files := map[string][]byte{
		"c.bin": make([]byte, 30),
		"a.bin": make([]byte, 10),
		"b.bin": make([]byte, 20),
		"d.bin": make([]byte, 0),
	}
	server := testutils.StartRangeServer(t, files, testutils.ServerOptions{
		Token:   testToken,
		Folders: map[string][]string{"folder1": {"c.bin", "subdir", "a.bin", "d.bin", "b.bin"}},
	})

	c := newTestClient(t, server, 2)
	got, err := c.ListFolder(context.Background(), "folder1")
	if err != nil {
		t.Fatalf("ListFolder: %v", err)
	}

	want := []downloader.RemoteFile{
		{ID: "a.bin", Name: "a.bin", Size: 10},
		{ID: "b.bin", Name: "b.bin", Size: 20},
		{ID: "c.bin", Name: "c.bin", Size: 30},
		{ID: "d.bin", Name: "d.bin", Size: 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListFolder = %+v, want %+v", got, want)
	}
	// Five entries at two per page.
	if got := server.Requests(); got != 3 {
		t.Errorf("expected 3 listing requests, got %d", got)
	}
}

func TestListFolderErrors(t *testing.T) {
	server := testutils.StartRangeServer(t, nil, testutils.ServerOptions{Token: testToken})

	c := newTestClient(t, server, 0)
	_, err := c.ListFolder(context.Background(), "missing")
	if !errors.Is(err, dfhttp.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	var se *dfhttp.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Code != 404 {
		t.Errorf("Code = %d, want 404", se.Code)
	}
}

func TestListFolderUnauthorized(t *testing.T) {
	server := testutils.StartRangeServer(t, nil, testutils.ServerOptions{Token: "other"})

	c := newTestClient(t, server, 0)
	if _, err := c.ListFolder(context.Background(), "f"); !errors.Is(err, dfhttp.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestMetadata(t *testing.T) {
	server := testutils.StartRangeServer(t, map[string][]byte{"movie.mkv": make([]byte, 4096)}, testutils.ServerOptions{Token: testToken})

	c := newTestClient(t, server, 0)
	f, err := c.Metadata(context.Background(), "movie.mkv")
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if want := (downloader.RemoteFile{ID: "movie.mkv", Name: "movie.mkv", Size: 4096}); f != want {
		t.Errorf("Metadata = %+v, want %+v", f, want)
	}

	if _, err := c.Metadata(context.Background(), "nope"); !errors.Is(err, dfhttp.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClientContentURLServesContent(t *testing.T) {
	data := testutils.GenerateTestData(t, 1000)
	server := testutils.StartRangeServer(t, map[string][]byte{"x": data}, testutils.ServerOptions{Token: testToken})

	c := newTestClient(t, server, 0)
	got, err := dfhttp.NewClient(dfhttp.DefaultOptions()).Fetch(context.Background(), c.ContentURL("x"), testToken, nil, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("content differs from source")
	}
}
