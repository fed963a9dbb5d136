package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/nhle/teamhub/internal/model"
)

// ProgressFunc receives upload progress as a percentage in [0, 100].
type ProgressFunc func(percent int)

// Upload submits a file as a multipart form to path and returns the
// stored file's metadata. onProgress, if non-nil, is called as the
// request body is consumed by the transport.
func (c *Client) Upload(
	ctx context.Context,
	path string,
	fileName string,
	file io.Reader,
	onProgress ProgressFunc,
) (*model.FileMetadata, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("buffering file %s: %w", fileName, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart body: %w", err)
	}

	total := int64(buf.Len())
	var bodyReader io.Reader = &buf
	if onProgress != nil {
		bodyReader = &progressReader{r: &buf, total: total, onProgress: onProgress}
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.ContentLength = total
	c.attachToken(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w: %v", path, ErrNetwork, err)
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("reading upload response: %w: %v", ErrNetwork, readErr)
	}

	if err := c.checkStatus(http.MethodPost, path, resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	var meta model.FileMetadata
	if err := json.Unmarshal(respBody, &meta); err != nil {
		return nil, fmt.Errorf("unmarshaling upload response: %w", err)
	}

	if onProgress != nil {
		onProgress(100)
	}
	return &meta, nil
}

// progressReader reports consumption of the request body as a percentage.
// The transport reads the body as it sends, so read progress approximates
// bytes on the wire.
type progressReader struct {
	r          io.Reader
	total      int64
	sent       int64
	lastPct    int
	onProgress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 {
		p.sent += int64(n)
		pct := int(p.sent * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		if pct != p.lastPct {
			p.lastPct = pct
			p.onProgress(pct)
		}
	}
	return n, err
}
