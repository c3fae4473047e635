package upstream

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// UploadField is the multipart field name the service reads files from.
const UploadField = "files"

// Relay is an upstream response passed back to the client unchanged.
type Relay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Upload streams files to POST /upload as multipart form data. The request
// body is produced through a pipe, so files are never held in memory twice.
func (c *Client) Upload(ctx context.Context, files []*multipart.FileHeader) (*Relay, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeParts(mw, files)
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("upload"), pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.stream.Do(req)
	if err != nil {
		_ = pr.CloseWithError(err)
		return nil, unavailable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayBody))
	if err != nil {
		return nil, unavailable(err)
	}
	return &Relay{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func writeParts(mw *multipart.Writer, files []*multipart.FileHeader) error {
	for _, fh := range files {
		if err := writePart(mw, fh); err != nil {
			return err
		}
	}
	return nil
}

func writePart(mw *multipart.Writer, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	contentType, err := partContentType(fh, f)
	if err != nil {
		return err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		UploadField, quoteEscaper.Replace(fh.Filename)))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copy %s: %w", fh.Filename, err)
	}
	return nil
}

// partContentType trusts the client's type unless it is missing or generic,
// in which case the content is sniffed and the file rewound.
func partContentType(fh *multipart.FileHeader, f multipart.File) (string, error) {
	declared := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("detect %s: %w", fh.Filename, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind %s: %w", fh.Filename, err)
	}
	return mt.String(), nil
}
