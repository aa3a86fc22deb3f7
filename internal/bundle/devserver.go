package bundle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/frame/internal/notifier"
	"golang.org/x/sync/errgroup"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 100 * time.Millisecond

// ServerOptions configures NewServer.
type ServerOptions struct {
	WatchDirs []string
	Debounce  time.Duration
	Logger    *slog.Logger
}

// Server serves the latest in-memory build and rebuilds on file changes.
type Server struct {
	builder   *Builder
	cfg       *Config
	logger    *slog.Logger
	notifier  *notifier.Notifier
	metrics   *Metrics
	watchDirs []string
	debounce  time.Duration

	mu      sync.RWMutex
	assets  Assets
	lastErr error
}

// NewServer wraps b. Builds it runs are marked as watched.
func NewServer(b *Builder, opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	b.SetWatching(true)

	return &Server{
		builder:   b,
		cfg:       b.Config(),
		logger:    logger,
		notifier:  notifier.New(),
		metrics:   NewMetrics(),
		watchDirs: opts.WatchDirs,
		debounce:  debounce,
		assets:    Assets{},
	}
}

// Notifier returns the notifier reload events go through.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Handler returns the dev-server routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer, middleware.NoCache)

	r.Get(ReloadEndpoint, s.handleSSE)
	r.Method(http.MethodGet, MetricsEndpoint, s.metrics.Handler())
	r.Get("/*", s.handleAsset)
	r.Head("/*", s.handleAsset)
	return r
}

// Rebuild runs one build, swaps in its assets and notifies clients.
// A failed build keeps the previous assets.
func (s *Server) Rebuild(ctx context.Context) error {
	res, err := s.builder.Build(ctx)
	s.metrics.Observe(res, err)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.notifier.Broadcast(notifier.Event{Kind: notifier.BuildError, Message: err.Error()})
		return err
	}

	s.mu.Lock()
	s.assets = res.Assets
	s.lastErr = nil
	s.mu.Unlock()

	for _, w := range res.Warnings {
		s.logger.Warn("build warning", "message", w)
	}
	if s.cfg.DevServer.Progress {
		s.logger.Info("build complete",
			slog.Int("assets", len(res.Assets)),
			slog.Int("pages", len(res.Pages)),
			slog.Duration("duration", res.Duration.Round(time.Millisecond)))
	}
	s.notifier.Broadcast(notifier.Event{Kind: notifier.Reload})
	return nil
}

// Serve listens on the configured port, builds, and rebuilds on changes until
// ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.DevServer.Host, strconv.Itoa(s.cfg.DevServer.Port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	// A broken first build still leaves the server up so a fix triggers a rebuild.
	if err := s.Rebuild(ctx); err != nil {
		s.logger.Error("initial build failed", "error", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range s.watchDirs {
		if err := watchDirRecursive(watcher, dir); err != nil {
			s.logger.Warn("not watching directory", "dir", dir, "error", err)
		}
	}

	eg, egctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
	}

	eg.Go(func() error {
		return s.watchLoop(egctx, watcher)
	})

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down dev server")
		return srv.Shutdown(shutdownCtx)
	})

	s.logger.Info("dev server running", "url", s.cfg.DevServer.URL())
	return eg.Wait()
}

// watchLoop debounces watcher events into rebuilds. Adding or removing an
// entry file also rediscovers entries.
func (s *Server) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) error {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		reset   bool
		trigger string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !s.relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if err := watchDirRecursive(watcher, event.Name); err != nil && !errors.Is(err, errNotDir) {
					s.logger.Warn("not watching new directory", "dir", event.Name, "error", err)
				}
			}
			if entryName(s.cfg.PagesDir, event.Name) != "" && (event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
				reset = true
			}
			trigger = event.Name

			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			s.logger.Info("change detected", "file", filepath.Base(trigger))
			if reset {
				if err := s.builder.Reset(); err != nil {
					s.logger.Error("failed to rediscover entries", "error", err)
				}
				reset = false
			}
			if err := s.Rebuild(ctx); err != nil {
				s.logger.Error("rebuild failed", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}

// relevant filters out permission-only changes and anything in the output directory.
func (s *Server) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if rel, err := filepath.Rel(s.cfg.Output.Path, event.Name); err == nil && filepath.IsLocal(rel) {
		return false
	}
	return true
}

var errNotDir = errors.New("not a directory")

// watchDirRecursive adds root and its subdirectories to the watcher, skipping
// node_modules and hidden directories below root.
func watchDirRecursive(watcher *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errNotDir
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && (d.Name() == "node_modules" || strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
}

// handleAsset serves the current in-memory build.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = "index.html"
	}

	s.mu.RLock()
	data, ok := s.assets[name]
	if !ok && s.cfg.DevServer.HistoryAPIFallback && acceptsHTML(r) && !strings.Contains(path.Base(name), ".") {
		data, ok = s.assets["index.html"]
		name = "index.html"
	}
	lastErr := s.lastErr
	s.mu.RUnlock()

	if !ok {
		if lastErr != nil && acceptsHTML(r) {
			http.Error(w, "build failed:\n"+lastErr.Error(), http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
		return
	}

	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(data)
}

func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// handleSSE streams reload and build-error events.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(ch)

	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			_, _ = fmt.Fprintf(w, "event: %s\n", ev.Kind)
			for _, line := range strings.Split(ev.Message, "\n") {
				_, _ = fmt.Fprintf(w, "data: %s\n", line)
			}
			_, _ = fmt.Fprint(w, "\n")
			flusher.Flush()
		}
	}
}
