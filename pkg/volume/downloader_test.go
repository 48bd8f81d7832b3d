package volume

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coolbeans/shamroq/pkg/config"
)

func setupTestDownloader(t *testing.T) *Downloader {
	t.Helper()
	return NewDownloader(Config{
		RateLimit:      1 * time.Millisecond,
		Timeout:        10 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 1 * time.Millisecond,
		UserAgent:      "shamroq-test/1.0",
	}, nil)
}

func TestDownloadFile(t *testing.T) {
	testContent := "<CFRDOC><SECTION/></CFRDOC>"
	var userAgent atomic.Value

	testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		userAgent.Store(request.Header.Get("User-Agent"))
		responseWriter.Write([]byte(testContent))
	}))
	defer testServer.Close()

	downloader := setupTestDownloader(t)
	localPath := filepath.Join(t.TempDir(), "nested", "vol1.xml")

	bytesWritten, skipped, err := downloader.DownloadFile(context.Background(), testServer.URL+"/vol1.xml", localPath, "vol1.xml")
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if skipped {
		t.Error("expected download to not be skipped")
	}
	if bytesWritten != int64(len(testContent)) {
		t.Errorf("expected %d bytes, got %d", len(testContent), bytesWritten)
	}
	if got, _ := userAgent.Load().(string); got != "shamroq-test/1.0" {
		t.Errorf("User-Agent = %q", got)
	}

	savedContent, err := os.ReadFile(localPath)
	if err != nil {
		t.Fatalf("failed to read downloaded file: %v", err)
	}
	if string(savedContent) != testContent {
		t.Errorf("content mismatch: %q", savedContent)
	}
	if _, err := os.Stat(localPath + ".part"); !os.IsNotExist(err) {
		t.Error("partial file should be renamed away")
	}
}

func TestDownloadFileSkipsExisting(t *testing.T) {
	var requests int32
	testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		atomic.AddInt32(&requests, 1)
		responseWriter.Write([]byte("new"))
	}))
	defer testServer.Close()

	localPath := filepath.Join(t.TempDir(), "vol1.xml")
	if err := os.WriteFile(localPath, []byte("existing content"), 0644); err != nil {
		t.Fatal(err)
	}

	size, skipped, err := setupTestDownloader(t).DownloadFile(context.Background(), testServer.URL+"/vol1.xml", localPath, "vol1.xml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !skipped {
		t.Error("expected existing file to be skipped")
	}
	if size != int64(len("existing content")) {
		t.Errorf("size = %d", size)
	}
	if atomic.LoadInt32(&requests) != 0 {
		t.Error("no request should be made for an existing file")
	}
}

func TestDownloadFileRetriesServerErrors(t *testing.T) {
	var attempts int32
	testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			responseWriter.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		responseWriter.Write([]byte("finally"))
	}))
	defer testServer.Close()

	localPath := filepath.Join(t.TempDir(), "vol1.xml")
	_, _, err := setupTestDownloader(t).DownloadFile(context.Background(), testServer.URL+"/vol1.xml", localPath, "vol1.xml")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestDownloadFileGivesUp(t *testing.T) {
	var attempts int32
	testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		atomic.AddInt32(&attempts, 1)
		responseWriter.WriteHeader(http.StatusBadGateway)
	}))
	defer testServer.Close()

	localPath := filepath.Join(t.TempDir(), "vol1.xml")
	_, _, err := setupTestDownloader(t).DownloadFile(context.Background(), testServer.URL+"/vol1.xml", localPath, "vol1.xml")
	if err == nil || !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Fatalf("expected retry exhaustion, got %v", err)
	}
	if _, statErr := os.Stat(localPath); !os.IsNotExist(statErr) {
		t.Error("no file should be left behind")
	}
}

func TestDownloadFileDoesNotRetryClientErrors(t *testing.T) {
	var attempts int32
	testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.NotFound(responseWriter, request)
	}))
	defer testServer.Close()

	_, _, err := setupTestDownloader(t).DownloadFile(context.Background(), testServer.URL+"/missing.xml", filepath.Join(t.TempDir(), "missing.xml"), "missing.xml")
	if err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Fatalf("expected HTTP 404 error, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("expected a single attempt, got %d", got)
	}
}

func TestFetchDataset(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/bulkdata/CFR/2023/title-48/CFR-2023-title48-vol1.xml":
			responseWriter.Write([]byte("<CFRDOC>one</CFRDOC>"))
		default:
			http.NotFound(responseWriter, request)
		}
	}))
	defer testServer.Close()

	homeBase := t.TempDir()
	dataset := config.Dataset{
		HomeBase:  homeBase,
		RegName:   "FAR",
		SourceURL: testServer.URL + "/bulkdata/CFR/2023/title-48",
		Volumes:   []string{"CFR-2023-title48-vol1.xml", "CFR-2023-title48-vol9.xml"},
	}

	var progressCalls int32
	downloader := NewDownloader(Config{
		RateLimit:  time.Millisecond,
		MaxRetries: 1,
		Progress: func(volume string, bytesDownloaded int64, totalBytes int64) {
			atomic.AddInt32(&progressCalls, 1)
		},
	}, nil)

	results, err := downloader.FetchDataset(context.Background(), dataset)
	if err != nil {
		t.Fatalf("FetchDataset() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Err != nil || results[0].Skipped {
		t.Errorf("first volume should download: %+v", results[0])
	}
	if results[1].Err == nil {
		t.Error("second volume should fail with 404")
	}
	if atomic.LoadInt32(&progressCalls) == 0 {
		t.Error("expected progress callbacks")
	}

	manifest, err := LoadManifest(filepath.Join(homeBase, ManifestFile))
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	record := manifest.Get("CFR-2023-title48-vol1.xml")
	if record == nil {
		t.Fatal("expected manifest record for the downloaded volume")
	}
	if record.SizeBytes != int64(len("<CFRDOC>one</CFRDOC>")) || len(record.SHA256) != 64 {
		t.Errorf("unexpected record: %+v", record)
	}
	if manifest.Get("CFR-2023-title48-vol9.xml") != nil {
		t.Error("failed volume must not be recorded")
	}

	// A second run finds the first volume on disk.
	results, err = downloader.FetchDataset(context.Background(), dataset)
	if err != nil {
		t.Fatalf("FetchDataset() error = %v", err)
	}
	if !results[0].Skipped {
		t.Error("expected first volume to be skipped on the second run")
	}

	report := FormatResults(results)
	if !strings.Contains(report, "[SKIP]") || !strings.Contains(report, "[FAIL]") {
		t.Errorf("report missing statuses:\n%s", report)
	}
}

func TestFetchDatasetRequiresSource(t *testing.T) {
	_, err := setupTestDownloader(t).FetchDataset(context.Background(), config.Dataset{HomeBase: t.TempDir(), RegName: "FAR"})
	if !errors.Is(err, ErrNoSource) {
		t.Errorf("expected ErrNoSource, got %v", err)
	}
}

func TestFetchDatasetCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dataset := config.Dataset{HomeBase: t.TempDir(), RegName: "FAR", SourceURL: "http://127.0.0.1:1", Volumes: []string{"a.xml"}}
	_, err := setupTestDownloader(t).FetchDataset(ctx, dataset)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestVolumeURL(t *testing.T) {
	got, err := VolumeURL("https://www.govinfo.gov/bulkdata/CFR/2023/title-48/", "CFR-2023-title48-vol1.xml")
	if err != nil {
		t.Fatal(err)
	}
	want := "https://www.govinfo.gov/bulkdata/CFR/2023/title-48/CFR-2023-title48-vol1.xml"
	if got != want {
		t.Errorf("VolumeURL() = %q, want %q", got, want)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.input); got != tt.expected {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
