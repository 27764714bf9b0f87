// Package fetch implements C1: stream HTTP downloads with progress
// reporting, SHA-1 verification, and atomic placement of the result.
package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/quay/zlog"
	"golang.org/x/time/rate"

	"github.com/mcsrc/pipeline/mcerr"
)

// Progress is called periodically during Download with the number of bytes
// written so far and the total size if known (-1 if the server didn't send
// Content-Length, or if the body is gzip-encoded).
type Progress func(written, total int64)

// Client wraps an *http.Client; the zero value uses http.DefaultClient and
// issues requests unthrottled.
//
// Limiter, when set, is waited on before every outbound request. Mojang,
// Fabric, and GitHub all apply rate limits of their own to anonymous
// clients; a *rate.Limiter here lets a caller pace a batch of downloads
// instead of tripping those limits and retrying, the same token-bucket
// pattern the teacher's name2repos mapper uses to throttle polling
// (rhel/rhcc/mapper.go), adapted from Allow's skip-if-busy check to Wait's
// blocking form since fetch callers need every request to eventually go out.
type Client struct {
	HTTP    *http.Client
	Limiter *rate.Limiter
}

func (c *Client) client() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) wait(ctx context.Context) error {
	if c.Limiter == nil {
		return nil
	}
	return c.Limiter.Wait(ctx)
}

// Download streams url to destPath, verifying wantSHA1 if non-zero. The
// file is written to a temporary sibling and atomically renamed into place
// on success; on any failure the partial file is removed and destPath is
// left untouched (or absent, if this is the first write).
func (c *Client) Download(ctx context.Context, url, destPath string, wantSHA1 Digest, progress Progress) error {
	ctx = zlog.ContextWithValues(ctx, "component", "internal/fetch.Download")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return mcerr.Wrap(mcerr.Network, err, "building request")
	}
	req.Header.Set("Accept-Encoding", "gzip")
	if err := c.wait(ctx); err != nil {
		return mcerr.Wrap(mcerr.Network, err, "waiting for rate limiter")
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return mcerr.Wrap(mcerr.Network, err, "performing request").With("url", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return mcerr.Newf(mcerr.Network, "unexpected status %s for %q", resp.Status, url)
	}
	body, bodyLen, err := decodeBody(resp)
	if err != nil {
		return mcerr.Wrap(mcerr.Network, err, "opening gzip response body").With("url", url)
	}
	if gr, ok := body.(*gzip.Reader); ok {
		defer gr.Close()
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "creating destination directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".tmp-*")
	if err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "creating temp file")
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		tmp.Close()
		if cleanup {
			os.Remove(tmpName)
		}
	}()

	h := wantSHA1.Hash()
	w := io.Writer(tmp)
	if !wantSHA1.IsZero() {
		w = io.MultiWriter(tmp, h)
	}

	written, err := copyWithProgress(ctx, w, body, bodyLen, progress)
	if err != nil {
		return mcerr.Wrap(mcerr.Network, err, "streaming response body").With("url", url)
	}
	if written == 0 {
		return mcerr.Newf(mcerr.Integrity, "empty download from %q", url)
	}
	if !wantSHA1.IsZero() && !wantSHA1.Equal(h.Sum(nil)) {
		return mcerr.Newf(mcerr.Integrity, "sha1 mismatch for %q", url).With("expected", wantSHA1.String())
	}
	if err := tmp.Close(); err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "closing temp file")
	}
	if err := os.Rename(tmpName, destPath); err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "renaming into place")
	}
	cleanup = false
	zlog.Debug(ctx).Str("dest", destPath).Int64("bytes", written).Msg("download complete")
	return nil
}

// decodeBody transparently unwraps a gzip-encoded response body. Go's
// http.Transport only auto-decompresses gzip when the caller never sets
// Accept-Encoding itself; since Download/FetchBytes need an accurate size
// for progress reporting and verification, they negotiate gzip explicitly
// and decode it here instead, the way the teacher's layer fetcher sniffs
// and unwraps compressed bodies before reading them.
func decodeBody(resp *http.Response) (io.Reader, int64, error) {
	if resp.Header.Get("Content-Encoding") != "gzip" {
		return resp.Body, resp.ContentLength, nil
	}
	gr, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return gr, -1, nil
}

func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, progress Progress) (int64, error) {
	var written int64
	buf := make([]byte, 64*1024)
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			nw, werr := dst.Write(buf[:n])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if progress != nil {
				progress(written, total)
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return written, nil
			}
			return written, rerr
		}
	}
}

// FetchBytes downloads url fully into memory; used for small payloads such
// as JSON manifests and Maven XML metadata.
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, mcerr.Wrap(mcerr.Network, err, "building request")
	}
	req.Header.Set("Accept-Encoding", "gzip")
	if err := c.wait(ctx); err != nil {
		return nil, mcerr.Wrap(mcerr.Network, err, "waiting for rate limiter")
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return nil, mcerr.Wrap(mcerr.Network, err, "performing request").With("url", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, mcerr.Newf(mcerr.Network, "unexpected status %s for %q", resp.Status, url)
	}
	body, _, err := decodeBody(resp)
	if err != nil {
		return nil, mcerr.Wrap(mcerr.Network, err, "opening gzip response body").With("url", url)
	}
	if gr, ok := body.(*gzip.Reader); ok {
		defer gr.Close()
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, mcerr.Wrap(mcerr.Network, err, "reading response body")
	}
	return b, nil
}

// FetchText is a convenience wrapper over FetchBytes for text payloads.
func (c *Client) FetchText(ctx context.Context, url string) (string, error) {
	b, err := c.FetchBytes(ctx, url)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
