package telegraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

// UploadedFile is a file stored by Telegraph
type UploadedFile struct {
	// Src is the server-assigned path, e.g. /file/123abc.png
	Src string `json:"src"`
}

// UploadResult is the decoded upload response. Telegraph answers either with a
// list of stored files or with an error object; exactly one of Files or Error
// is populated.
type UploadResult struct {
	Files []UploadedFile
	Error string
}

// Failed reports whether Telegraph answered with an error object.
func (r *UploadResult) Failed() bool {
	return r.Files == nil
}

// Err returns the error object as an error, or nil for a successful upload.
func (r *UploadResult) Err() error {
	if !r.Failed() {
		return nil
	}
	return fmt.Errorf("telegraph rejected upload: %s", r.Error)
}

func (r UploadResult) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Error})
	}
	files := r.Files
	if files == nil {
		files = []UploadedFile{}
	}
	return json.Marshal(files)
}

func (r *UploadResult) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty upload response")
	}

	switch data[0] {
	case '[':
		var files []UploadedFile
		if err := json.Unmarshal(data, &files); err != nil {
			return err
		}
		if files == nil {
			files = []UploadedFile{}
		}
		r.Files, r.Error = files, ""
		return nil
	case '{':
		var obj struct {
			Error *string `json:"error"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.Error == nil {
			return fmt.Errorf("upload response object has no error field: %s", data)
		}
		r.Files, r.Error = nil, *obj.Error
		return nil
	default:
		return fmt.Errorf("unexpected upload response: %s", data)
	}
}

// FilenameFunc names the multipart part of the local target at index i.
type FilenameFunc func(i int, path string, data []byte) string

// PNGFilenames names every local part fileN.png whatever its content.
func PNGFilenames(i int, _ string, _ []byte) string {
	return fmt.Sprintf("file%d.png", i)
}

// DetectedFilenames names local parts fileN with an extension sniffed from the
// content, falling back to the extension of path.
func DetectedFilenames(i int, path string, data []byte) string {
	ext := mimetype.Detect(data).Extension()
	if ext == "" {
		ext = filepath.Ext(path)
	}
	return fmt.Sprintf("file%d%s", i, ext)
}

// IsRemote reports whether target is fetched over HTTP rather than read from disk.
func IsRemote(target string) bool {
	return strings.HasPrefix(target, "http")
}

type uploadPart struct {
	filename    string
	contentType string
	data        []byte
}

// Upload stores files on Telegraph. Targets are either all local paths or all
// remote URLs (anything starting with "http"); mixing them is rejected before
// any I/O. Local files are read from disk, remote ones are fetched
// concurrently, then everything is submitted as one multipart form with parts
// file0, file1, ... in target order.
//
// An error object returned by Telegraph is not an error here: it comes back
// in UploadResult.Error.
func (c *Client) Upload(ctx context.Context, targets ...string) (*UploadResult, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	remote := IsRemote(targets[0])
	for i, t := range targets {
		if IsRemote(t) != remote {
			return nil, &MixedTargetsError{Index: i, Target: t}
		}
	}

	log := c.logger.WithField("targets", len(targets))

	var (
		parts []uploadPart
		err   error
	)
	if remote {
		log.Debug("Fetching remote upload targets")
		parts, err = c.fetchRemote(ctx, targets)
	} else {
		log.Debug("Reading local upload targets")
		parts, err = c.readLocal(targets)
	}
	if err != nil {
		return nil, err
	}

	return c.submit(ctx, parts)
}

func (c *Client) readLocal(paths []string) ([]uploadPart, error) {
	parts := make([]uploadPart, len(paths))
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &IOError{Path: path, Err: err}
		}

		filename := c.localFilename(i, path, data)
		contentType := mime.TypeByExtension(filepath.Ext(filename))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		parts[i] = uploadPart{filename: filename, contentType: contentType, data: data}
	}
	return parts, nil
}

func (c *Client) fetchRemote(ctx context.Context, urls []string) ([]uploadPart, error) {
	parts := make([]uploadPart, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			part, err := c.fetch(ctx, u)
			if err != nil {
				return err
			}
			parts[i] = part
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

func (c *Client) fetch(ctx context.Context, u string) (uploadPart, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return uploadPart{}, &FetchError{URL: u, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return uploadPart{}, &FetchError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return uploadPart{}, &FetchError{URL: u, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return uploadPart{}, &FetchError{URL: u, StatusCode: resp.StatusCode, Err: err}
	}

	return uploadPart{contentType: resp.Header.Get("Content-Type"), data: data}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (c *Client) submit(ctx context.Context, parts []uploadPart) (*UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for i, p := range parts {
		disposition := fmt.Sprintf(`form-data; name="file%d"`, i)
		if p.filename != "" {
			disposition += fmt.Sprintf(`; filename="%s"`, quoteEscaper.Replace(p.filename))
		}

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", disposition)
		if p.contentType != "" {
			header.Set("Content-Type", p.contentType)
		}

		w, err := writer.CreatePart(header)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.logger.WithField("status", resp.StatusCode).Debug("Upload submitted")

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading upload response: %w", err)
	}

	var result UploadResult
	if err := json.Unmarshal(raw, &result); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &TransportError{Method: "upload", StatusCode: resp.StatusCode, Status: resp.Status}
		}
		return nil, fmt.Errorf("error decoding upload response: %w", err)
	}

	return &result, nil
}
