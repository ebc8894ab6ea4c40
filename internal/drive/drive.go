package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ligustah/drivefetch/internal/downloader"
	dfhttp "github.com/ligustah/drivefetch/internal/http"
)

// DefaultBaseURL is the Drive v3 API root.
const DefaultBaseURL = "https://www.googleapis.com/drive/v3"

const folderMimeType = "application/vnd.google-apps.folder"

// ErrInvalidFolder is returned when a folder reference cannot be parsed.
var ErrInvalidFolder = errors.New("drive: invalid folder reference")

// ContentURL returns the media download URL for a file.
func ContentURL(baseURL, id string) string {
	return strings.TrimSuffix(baseURL, "/") + "/files/" + url.PathEscape(id) + "?alt=media&supportsAllDrives=true"
}

// FolderIDFromURL extracts a folder ID from a Drive share link. Anything that
// is not a URL is returned as-is, trimmed.
//
//	https://drive.google.com/drive/folders/1AbC?usp=share_link -> 1AbC
//	https://drive.google.com/open?id=1AbC                      -> 1AbC
func FolderIDFromURL(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "://") {
		if s == "" {
			return "", fmt.Errorf("%w: empty", ErrInvalidFolder)
		}
		return s, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFolder, err)
	}
	if id := u.Query().Get("id"); id != "" {
		return id, nil
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	id := segments[len(segments)-1]
	if id == "" || id == "folders" || id == "open" {
		return "", fmt.Errorf("%w: no folder ID in %q", ErrInvalidFolder, s)
	}
	return id, nil
}

// TokenSource supplies the bearer token for API calls.
type TokenSource interface {
	Token() (string, error)
}

// Options configures the Drive client.
type Options struct {
	// BaseURL is the API root. Default: DefaultBaseURL
	BaseURL string

	// PageSize is the number of files requested per listing page.
	// Default: 1000
	PageSize int

	// Logger is an optional logger.
	Logger *zerolog.Logger
}

// Client is a minimal Drive v3 client.
type Client struct {
	http   *dfhttp.Client
	tokens TokenSource
	opts   Options
	log    zerolog.Logger
}

// NewClient creates a Drive client using c for transport.
func NewClient(c *dfhttp.Client, tokens TokenSource, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	if opts.PageSize <= 0 {
		opts.PageSize = 1000
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	return &Client{http: c, tokens: tokens, opts: opts, log: log}
}

// ContentURL returns the media download URL for id on this client's API root.
func (c *Client) ContentURL(id string) string {
	return ContentURL(c.opts.BaseURL, id)
}

type fileResource struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     string `json:"size"`
	MimeType string `json:"mimeType"`
}

func (r fileResource) remoteFile() (downloader.RemoteFile, error) {
	size, err := strconv.ParseInt(r.Size, 10, 64)
	if err != nil {
		return downloader.RemoteFile{}, fmt.Errorf("drive: file %s has invalid size %q", r.ID, r.Size)
	}
	return downloader.NewRemoteFile(r.ID, r.Name, size)
}

type fileList struct {
	NextPageToken string         `json:"nextPageToken"`
	Files         []fileResource `json:"files"`
}

// ListFolder returns the files directly inside folderID that are not trashed,
// sorted by name. Sub-folders and other entries without a size are skipped.
func (c *Client) ListFolder(ctx context.Context, folderID string) ([]downloader.RemoteFile, error) {
	var (
		files     []downloader.RemoteFile
		pageToken string
	)

	for {
		q := url.Values{}
		q.Set("q", fmt.Sprintf("'%s' in parents and trashed=false", strings.ReplaceAll(folderID, "'", `\'`)))
		q.Set("fields", "nextPageToken,files(id,name,size,mimeType)")
		q.Set("pageSize", strconv.Itoa(c.opts.PageSize))
		q.Set("supportsAllDrives", "true")
		q.Set("includeItemsFromAllDrives", "true")
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var page fileList
		if err := c.getJSON(ctx, c.opts.BaseURL+"/files?"+q.Encode(), &page); err != nil {
			return nil, fmt.Errorf("list folder %s: %w", folderID, err)
		}

		for _, r := range page.Files {
			if r.MimeType == folderMimeType || r.Size == "" {
				c.log.Debug().Str("name", r.Name).Str("mime_type", r.MimeType).Msg("skipping entry without content")
				continue
			}
			f, err := r.remoteFile()
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Metadata returns the name and size of a file.
func (c *Client) Metadata(ctx context.Context, id string) (downloader.RemoteFile, error) {
	q := url.Values{}
	q.Set("fields", "id,name,size,mimeType")
	q.Set("supportsAllDrives", "true")

	var r fileResource
	if err := c.getJSON(ctx, c.opts.BaseURL+"/files/"+url.PathEscape(id)+"?"+q.Encode(), &r); err != nil {
		return downloader.RemoteFile{}, fmt.Errorf("file metadata %s: %w", id, err)
	}
	if r.MimeType == folderMimeType {
		return downloader.RemoteFile{}, fmt.Errorf("drive: %s is a folder", id)
	}
	return r.remoteFile()
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req, token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Error().Int("status", resp.StatusCode).Str("url", u).Msg("drive request failed")
		return dfhttp.NewStatusError(resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
