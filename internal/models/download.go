// Package models provisions the whisper.cpp model files used for transcription.
package models

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DefaultBaseURL hosts the ggml whisper models.
const DefaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// Downloader fetches model files over HTTP.
type Downloader struct {
	BaseURL string
	Client  *http.Client
	// Out receives progress output.
	Out    io.Writer
	Logger *slog.Logger
}

// NewDownloader returns a Downloader for the default model host.
func NewDownloader(out io.Writer, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{
		BaseURL: DefaultBaseURL,
		Client:  http.DefaultClient,
		Out:     out,
		Logger:  logger,
	}
}

// URL returns the download URL for the named model.
func (d *Downloader) URL(name string) string {
	return strings.TrimSuffix(d.BaseURL, "/") + "/" + name
}

// Download fetches the named model to destPath unless a non-empty file is
// already there. The file is written to a temporary path and renamed into
// place when complete. It reports whether a download happened.
func (d *Downloader) Download(ctx context.Context, name, destPath string) (bool, error) {
	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		fmt.Fprintf(d.Out, "  Model already exists: %s (%.0f MB)\n", destPath, float64(info.Size())/(1024*1024))
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return false, fmt.Errorf("creating models dir: %w", err)
	}

	url := d.URL(name)
	d.Logger.Info("downloading model", "url", url, "dest", destPath)
	fmt.Fprintf(d.Out, "  Downloading %s\n", name)
	fmt.Fprintf(d.Out, "  URL: %s\n", url)
	fmt.Fprintf(d.Out, "  Destination: %s\n", destPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("building request: %w", err)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("downloading model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return false, fmt.Errorf("creating temp file: %w", err)
	}

	pw := &progressWriter{
		writer: f,
		out:    d.Out,
		total:  resp.ContentLength,
		label:  name,
	}

	written, err := io.Copy(pw, resp.Body)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("writing model file: %w", err)
	}

	fmt.Fprintf(d.Out, "\n  Downloaded %.1f MB\n", float64(written)/(1024*1024))

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("moving model file: %w", err)
	}
	return true, nil
}

// progressWriter wraps an io.Writer and prints download progress.
type progressWriter struct {
	writer  io.Writer
	out     io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}
