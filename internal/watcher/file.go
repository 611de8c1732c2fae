package watcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultDebounce is how long FileSource waits for writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// ErrWatch is returned when the file cannot be watched.
var ErrWatch = errors.New("failed to watch file")

// FileSource emits a Mutation each time an HTML file is written. The file
// is re-parsed and the children of its body are reported as added nodes.
type FileSource struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// FileSourceOption configures a FileSource.
type FileSourceOption func(*FileSource)

// WithDebounce sets the settle delay before a change is emitted.
func WithDebounce(d time.Duration) FileSourceOption {
	return func(s *FileSource) {
		s.debounce = d
	}
}

// WithFileLogger sets the FileSource logger.
func WithFileLogger(logger *slog.Logger) FileSourceOption {
	return func(s *FileSource) {
		s.logger = logger
	}
}

// NewFileSource creates a source for the HTML file at path.
func NewFileSource(path string, opts ...FileSourceOption) *FileSource {
	s := &FileSource{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Run watches the file until ctx is done, sending one Mutation per settled
// change to out. The directory is watched rather than the file so editors
// that replace the file by rename are followed. out is not closed.
func (s *FileSource) Run(ctx context.Context, out chan<- Mutation) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWatch, err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWatch, s.path, err)
	}
	s.logger.Debug("watching file", "path", s.path)

	changed := make(chan struct{}, 1)
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(s.debounce, func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})
			mu.Unlock()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "path", s.path, "error", err)

		case <-changed:
			m, err := s.load()
			if err != nil {
				s.logger.Warn("failed to reload file", "path", s.path, "error", err)
				continue
			}
			select {
			case out <- m:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// load parses the file and reports the element children of its body.
func (s *FileSource) load() (Mutation, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Mutation{}, err
	}
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return Mutation{}, err
	}

	m := Mutation{Root: root}
	if body := findBody(root); body != nil {
		for c := body.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				m.Added = append(m.Added, c)
			}
		}
	}
	return m, nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
