// Package volume fetches the XML volumes of a dataset from a bulk data
// source such as the govinfo CFR repository.
package volume

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/coolbeans/shamroq/pkg/config"
)

// ErrNoSource is returned when a dataset has no SOURCE_URL.
var ErrNoSource = errors.New("dataset has no SOURCE_URL")

// ProgressCallback is called during a download with bytes transferred so
// far. totalBytes is negative when the server does not report a length.
type ProgressCallback func(volume string, bytesDownloaded int64, totalBytes int64)

// Config holds configuration for the downloader.
type Config struct {
	// RateLimit is the minimum interval between requests to one host.
	RateLimit time.Duration

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// MaxRetries is the number of attempts made for transient failures.
	MaxRetries int

	// RetryBaseDelay is the delay before the first retry; it doubles on
	// every further attempt.
	RetryBaseDelay time.Duration

	UserAgent  string
	HTTPClient *http.Client
	Progress   ProgressCallback
}

// ConfigFromSettings builds a downloader config from application settings.
func ConfigFromSettings(settings config.Settings) Config {
	return Config{
		RateLimit:      settings.DownloadRateLimit,
		Timeout:        settings.DownloadTimeout,
		MaxRetries:     settings.DownloadRetries,
		RetryBaseDelay: 5 * time.Second,
		UserAgent:      "shamroq/1.0 (+https://github.com/coolbeans/shamroq)",
	}
}

// Result is the outcome for one volume.
type Result struct {
	Volume    string
	URL       string
	LocalPath string
	Bytes     int64
	Skipped   bool
	Err       error
}

// Downloader fetches volumes with per-host rate limiting, retries with
// exponential backoff and a manifest for resumability.
type Downloader struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
}

// NewDownloader creates a Downloader with the given config.
func NewDownloader(downloadConfig Config, logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := downloadConfig.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: downloadConfig.Timeout,
			CheckRedirect: func(request *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}

	return &Downloader{
		config:     downloadConfig,
		httpClient: httpClient,
		logger:     logger,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// VolumeURL joins a dataset's SOURCE_URL with a relative volume path.
func VolumeURL(sourceURL, volume string) (string, error) {
	joined, err := url.JoinPath(sourceURL, filepath.ToSlash(volume))
	if err != nil {
		return "", fmt.Errorf("invalid source URL %s: %w", sourceURL, err)
	}
	return joined, nil
}

// FetchDataset downloads every volume of dataset into its HOME_BASE.
// Volumes already on disk are skipped. A failed volume is logged and
// reported in its Result; the remaining volumes are still attempted. The
// manifest is saved after every successful download.
func (downloader *Downloader) FetchDataset(ctx context.Context, dataset config.Dataset) ([]Result, error) {
	if dataset.SourceURL == "" {
		return nil, ErrNoSource
	}

	manifestPath := filepath.Join(dataset.HomeBase, ManifestFile)
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	localPaths := dataset.VolumePaths()
	results := make([]Result, 0, len(dataset.Volumes))

	for index, volume := range dataset.Volumes {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := Result{Volume: volume, LocalPath: localPaths[index]}
		result.URL, result.Err = VolumeURL(dataset.SourceURL, volume)
		if result.Err == nil {
			result.Bytes, result.Skipped, result.Err = downloader.DownloadFile(ctx, result.URL, result.LocalPath, volume)
		}

		switch {
		case result.Err != nil:
			downloader.logger.Error("Error downloading volume",
				zap.String("volume", volume),
				zap.String("url", result.URL),
				zap.Error(result.Err))
		case result.Skipped:
			downloader.logger.Info("Volume already present", zap.String("volume", volume))
		default:
			checksum, err := fileChecksum(result.LocalPath)
			if err != nil {
				downloader.logger.Warn("Could not checksum volume", zap.String("volume", volume), zap.Error(err))
			}
			manifest.Record(&Record{
				Volume:       volume,
				URL:          result.URL,
				LocalPath:    result.LocalPath,
				SizeBytes:    result.Bytes,
				SHA256:       checksum,
				DownloadedAt: time.Now(),
			})
			if err := manifest.Save(manifestPath); err != nil {
				downloader.logger.Warn("Could not save manifest", zap.Error(err))
			}
			downloader.logger.Info("Downloaded volume",
				zap.String("volume", volume),
				zap.Int64("bytes", result.Bytes))
		}

		results = append(results, result)
	}

	return results, nil
}

// DownloadFile fetches downloadURL to localPath. It skips the download when
// the file already exists with non-zero size and retries transient errors
// (5xx, timeouts, dropped connections) with exponential backoff. The body
// is streamed to a temporary file that is renamed into place on success.
func (downloader *Downloader) DownloadFile(ctx context.Context, downloadURL, localPath, volume string) (int64, bool, error) {
	existingInfo, err := os.Stat(localPath)
	if err == nil && existingInfo.Size() > 0 {
		return existingInfo.Size(), true, nil
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return 0, false, fmt.Errorf("failed to create directory for %s: %w", localPath, err)
	}

	maxRetries := downloader.config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	retryDelay := downloader.config.RetryBaseDelay
	if retryDelay <= 0 {
		retryDelay = 5 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			currentDelay := retryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return 0, false, ctx.Err()
			case <-time.After(currentDelay):
			}
		}

		bytesWritten, err := downloader.downloadAttempt(ctx, downloadURL, localPath, volume)
		if err == nil {
			return bytesWritten, false, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return 0, false, err
		}
		downloader.logger.Warn("Retrying download",
			zap.String("url", downloadURL),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return 0, false, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

func (downloader *Downloader) downloadAttempt(ctx context.Context, downloadURL, localPath, volume string) (int64, error) {
	parsedURL, err := url.Parse(downloadURL)
	if err != nil {
		return 0, fmt.Errorf("invalid URL %s: %w", downloadURL, err)
	}
	if err := downloader.limiter(parsedURL.Host).Wait(ctx); err != nil {
		return 0, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if downloader.config.UserAgent != "" {
		request.Header.Set("User-Agent", downloader.config.UserAgent)
	}

	response, err := downloader.httpClient.Do(request)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s: %w", downloadURL, err)
	}
	defer response.Body.Close()

	if response.StatusCode >= 500 {
		return 0, &retryableHTTPError{StatusCode: response.StatusCode, URL: downloadURL}
	}
	if response.StatusCode >= 400 {
		return 0, fmt.Errorf("HTTP %d for %s", response.StatusCode, downloadURL)
	}

	partialPath := localPath + ".part"
	outputFile, err := os.Create(partialPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %s: %w", partialPath, err)
	}

	counter := &progressWriter{
		volume:   volume,
		total:    response.ContentLength,
		callback: downloader.config.Progress,
	}
	bytesWritten, copyErr := io.Copy(io.MultiWriter(outputFile, counter), response.Body)
	closeErr := outputFile.Close()

	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		os.Remove(partialPath)
		return bytesWritten, fmt.Errorf("read error: %w", copyErr)
	}

	if err := os.Rename(partialPath, localPath); err != nil {
		os.Remove(partialPath)
		return bytesWritten, fmt.Errorf("failed to move %s into place: %w", localPath, err)
	}
	return bytesWritten, nil
}

func (downloader *Downloader) limiter(host string) *rate.Limiter {
	downloader.limitersMu.Lock()
	defer downloader.limitersMu.Unlock()

	limiter, ok := downloader.limiters[host]
	if !ok {
		limit := rate.Inf
		if downloader.config.RateLimit > 0 {
			limit = rate.Every(downloader.config.RateLimit)
		}
		limiter = rate.NewLimiter(limit, 1)
		downloader.limiters[host] = limiter
	}
	return limiter
}

type progressWriter struct {
	volume   string
	total    int64
	written  int64
	callback ProgressCallback
}

func (writer *progressWriter) Write(data []byte) (int, error) {
	writer.written += int64(len(data))
	if writer.callback != nil {
		writer.callback(writer.volume, writer.written, writer.total)
	}
	return len(data), nil
}

// retryableHTTPError represents an HTTP error that should trigger a retry.
type retryableHTTPError struct {
	StatusCode int
	URL        string
}

func (e *retryableHTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// isRetryableError returns true if the error warrants a retry attempt.
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var httpErr *retryableHTTPError
	if errors.As(err, &httpErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errMsg := err.Error()
	for _, pattern := range []string{
		"connection reset",
		"connection refused",
		"EOF",
		"broken pipe",
		"temporary failure",
	} {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
