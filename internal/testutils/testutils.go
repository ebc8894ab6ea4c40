// Package testutils provides shared test infrastructure: deterministic test
// data and an httptest server that serves byte ranges the way the Drive content
// endpoint does.
package testutils

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// GenerateTestData generates test data of the given size.
// For files <= 10MB, uses deterministic pattern. For larger files, uses random data.
func GenerateTestData(t testing.TB, size int64) []byte {
	t.Helper()
	data := make([]byte, size)
	if size <= 10*1024*1024 {
		for i := range data {
			data[i] = byte(i % 251)
		}
	} else {
		if _, err := rand.Read(data); err != nil {
			t.Fatalf("generate random data: %v", err)
		}
	}
	return data
}

// ServerOptions configures a RangeServer.
type ServerOptions struct {
	// Token, when set, is the bearer token every request must carry.
	Token string

	// Trailing is the number of junk bytes appended after every ranged
	// response body.
	Trailing int

	// IgnoreRange answers ranged requests with 200 and the whole file.
	IgnoreRange bool

	// Fail returns a non-zero status to reject a request with.
	Fail func(r *http.Request) int

	// Folders maps a folder ID to the IDs of the files it contains, served
	// by the listing endpoint at /files. A file's name is its ID.
	Folders map[string][]string
}

// RangeServer serves files at /files/{id} with Range support.
type RangeServer struct {
	*httptest.Server

	opts     ServerOptions
	mu       sync.Mutex
	files    map[string][]byte
	ranges   []string
	requests atomic.Int64
}

// StartRangeServer starts a RangeServer serving files keyed by id. The server
// is closed when the test ends.
func StartRangeServer(t testing.TB, files map[string][]byte, opts ServerOptions) *RangeServer {
	t.Helper()

	s := &RangeServer{opts: opts, files: files}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// FileURL returns the content URL for id.
func (s *RangeServer) FileURL(id string) string {
	return s.Server.URL + "/files/" + id
}

// Requests returns the number of requests served.
func (s *RangeServer) Requests() int64 {
	return s.requests.Load()
}

// Ranges returns the Range headers received, in arrival order.
func (s *RangeServer) Ranges() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ranges...)
}

func (s *RangeServer) handle(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)

	if s.opts.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.opts.Token {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	rangeHeader := r.Header.Get("Range")
	s.mu.Lock()
	s.ranges = append(s.ranges, rangeHeader)
	s.mu.Unlock()

	if s.opts.Fail != nil {
		if code := s.opts.Fail(r); code != 0 {
			http.Error(w, http.StatusText(code), code)
			return
		}
	}

	if r.URL.Path == "/files" {
		s.list(w, r)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/files/")
	data, ok := s.files[id]
	if !ok {
		http.NotFound(w, r)
		return
	}
	size := int64(len(data))

	if r.URL.Query().Has("fields") {
		writeJSON(w, fileJSON(id, size))
		return
	}

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("ETag", fmt.Sprintf(`"%s"`, r.URL.Path))
		return
	}

	if rangeHeader == "" || s.opts.IgnoreRange {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.Write(data)
		return
	}

	// Parse range header: bytes=start-end
	byteRange := strings.TrimPrefix(rangeHeader, "bytes=")
	parts := strings.Split(byteRange, "-")
	start, _ := strconv.ParseInt(parts[0], 10, 64)
	end, _ := strconv.ParseInt(parts[1], 10, 64)
	if end >= size {
		end = size - 1
	}
	if start > end {
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	body := append([]byte(nil), data[start:end+1]...)
	for i := 0; i < s.opts.Trailing; i++ {
		body = append(body, 0xEE)
	}

	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusPartialContent)
	w.Write(body)
}

func fileJSON(id string, size int64) map[string]string {
	return map[string]string{"id": id, "name": id, "size": strconv.FormatInt(size, 10)}
}

// list serves a page of a folder listing. The page token is the index of the
// first entry.
func (s *RangeServer) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	_, rest, _ := strings.Cut(q.Get("q"), "'")
	folder, _, _ := strings.Cut(rest, "'")

	ids, ok := s.opts.Folders[folder]
	if !ok {
		http.NotFound(w, r)
		return
	}

	offset, _ := strconv.Atoi(q.Get("pageToken"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if pageSize <= 0 {
		pageSize = 100
	}
	end := min(offset+pageSize, len(ids))

	files := []map[string]string{}
	for _, id := range ids[offset:end] {
		data, ok := s.files[id]
		if !ok {
			// Unknown IDs are listed as sub-folders.
			files = append(files, map[string]string{"id": id, "name": id, "mimeType": "application/vnd.google-apps.folder"})
			continue
		}
		files = append(files, fileJSON(id, int64(len(data))))
	}

	resp := map[string]any{"files": files}
	if end < len(ids) {
		resp["nextPageToken"] = strconv.Itoa(end)
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
