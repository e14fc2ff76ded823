package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/binyominzeev/vidfaq/internal/config"
	"github.com/binyominzeev/vidfaq/internal/metrics"
	"github.com/binyominzeev/vidfaq/pkg/models"
)

var (
	// ErrNoCaptions is returned when a video has no uploaded caption track
	ErrNoCaptions = errors.New("no captions available")
	// ErrNoThumbnail is returned when yt-dlp finished without writing an image
	ErrNoThumbnail = errors.New("thumbnail not found")
)

const (
	defaultBinary           = "yt-dlp"
	defaultThumbnailTimeout = 30 * time.Second
	defaultCaptionTimeout   = 2 * time.Minute
)

// Runner executes an external command and returns its standard output
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithRunner replaces the command runner
func WithRunner(r Runner) Option {
	return func(f *Fetcher) {
		if r != nil {
			f.runner = r
		}
	}
}

// Fetcher downloads thumbnails and captions with yt-dlp
type Fetcher struct {
	runner           Runner
	binary           string
	workDir          string
	thumbnailTimeout time.Duration
	captionTimeout   time.Duration
}

// New creates a fetcher from configuration
func New(cfg config.FetcherConfig, opts ...Option) *Fetcher {
	f := &Fetcher{
		runner:           execRunner{},
		binary:           cfg.YtDlpPath,
		workDir:          cfg.WorkDir,
		thumbnailTimeout: cfg.ThumbnailTimeout,
		captionTimeout:   cfg.CaptionTimeout,
	}
	if f.binary == "" {
		f.binary = defaultBinary
	}
	if f.workDir == "" {
		f.workDir = os.TempDir()
	}
	if f.thumbnailTimeout <= 0 {
		f.thumbnailTimeout = defaultThumbnailTimeout
	}
	if f.captionTimeout <= 0 {
		f.captionTimeout = defaultCaptionTimeout
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchThumbnail downloads the thumbnail of sourceURL into a fresh temporary
// directory and returns the image path. Callers release it with Cleanup.
func (f *Fetcher) FetchThumbnail(ctx context.Context, sourceURL string) (path string, err error) {
	start := time.Now()
	defer func() { metrics.RecordFetch("thumbnail", time.Since(start).Seconds(), err) }()

	ctx, cancel := context.WithTimeout(ctx, f.thumbnailTimeout)
	defer cancel()

	dir, err := os.MkdirTemp(f.workDir, "thumb-")
	if err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}

	_, err = f.runner.Run(ctx, f.binary,
		"--skip-download",
		"--write-thumbnail",
		"--no-playlist",
		"--output", filepath.Join(dir, "%(id)s.%(ext)s"),
		sourceURL,
	)
	if err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("failed to fetch thumbnail: %w", err)
	}

	path, err = findFile(dir, isImage)
	if err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return path, nil
}

// ListCaptions returns the uploaded caption languages of sourceURL in listed order
func (f *Fetcher) ListCaptions(ctx context.Context, sourceURL string) ([]string, error) {
	out, err := f.runner.Run(ctx, f.binary, "--skip-download", "--no-playlist", "--list-subs", sourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list captions: %w", err)
	}
	return parseSubtitleList(string(out)), nil
}

// FetchCaption downloads one caption track of sourceURL and flattens it to plain text.
// The first non-English track wins, falling back to the first listed one.
func (f *Fetcher) FetchCaption(ctx context.Context, sourceURL string) (caption *models.Caption, err error) {
	start := time.Now()
	defer func() { metrics.RecordFetch("caption", time.Since(start).Seconds(), err) }()

	ctx, cancel := context.WithTimeout(ctx, f.captionTimeout)
	defer cancel()

	languages, err := f.ListCaptions(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	lang := chooseLanguage(languages)
	if lang == "" {
		return nil, ErrNoCaptions
	}

	dir, err := os.MkdirTemp(f.workDir, "caption-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	_, err = f.runner.Run(ctx, f.binary,
		"--skip-download",
		"--no-playlist",
		"--write-subs",
		"--sub-langs", lang,
		"--sub-format", "vtt",
		"--output", filepath.Join(dir, "%(id)s.%(ext)s"),
		sourceURL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch caption: %w", err)
	}

	path, err := findFile(dir, func(name string) bool { return strings.HasSuffix(name, ".vtt") })
	if err != nil {
		return nil, ErrNoCaptions
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read caption: %w", err)
	}

	text := StripVTT(string(data))
	if text == "" {
		return nil, ErrNoCaptions
	}
	return &models.Caption{Language: lang, Text: text}, nil
}

// Cleanup removes a file returned by FetchThumbnail together with its directory
func Cleanup(path string) error {
	if path == "" {
		return nil
	}
	return os.RemoveAll(filepath.Dir(path))
}

func findFile(dir string, match func(string) bool) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read work dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && match(e.Name()) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", ErrNoThumbnail
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif", ".image":
		return true
	}
	return false
}
