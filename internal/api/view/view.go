// Package view renders the HTML pages. Templates are embedded in the binary;
// when a directory is configured they are read from disk instead and
// reloaded on change.
package view

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

//go:embed static
var embeddedStatic embed.FS

const reloadDelay = 500 * time.Millisecond

// Static returns the embedded static assets rooted at css/, js/ and images/.
func Static() fs.FS {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Renderer implements echo.Renderer over a reloadable template set.
type Renderer struct {
	dir  string
	fsys fs.FS
	log  zerolog.Logger

	mu   sync.RWMutex
	tmpl *template.Template
}

// New parses the templates. An empty dir selects the embedded set.
func New(dir string, log zerolog.Logger) (*Renderer, error) {
	r := &Renderer{dir: dir, log: log.With().Str("component", "view").Logger()}
	if dir == "" {
		sub, err := fs.Sub(embeddedTemplates, "templates")
		if err != nil {
			return nil, err
		}
		r.fsys = sub
	} else {
		r.fsys = os.DirFS(dir)
	}

	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) load() error {
	tmpl, err := template.ParseFS(r.fsys, "*.html")
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	r.mu.Lock()
	r.tmpl = tmpl
	r.mu.Unlock()
	return nil
}

// Render satisfies echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	r.mu.RLock()
	tmpl := r.tmpl
	r.mu.RUnlock()
	return tmpl.ExecuteTemplate(w, name, data)
}

// Watch reloads templates from disk until ctx is done. It is a no-op for the
// embedded set. A reload that fails to parse keeps the previous templates.
func (r *Renderer) Watch(ctx context.Context) error {
	if r.dir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("template watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("template watcher: %w", err)
	}

	go r.watchLoop(ctx, watcher)
	r.log.Info().Str("dir", r.dir).Msg("watching templates")
	return nil
}

func (r *Renderer) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce bursts of editor writes.
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn().Err(err).Msg("template watcher error")
		case <-fire:
			fire = nil
			timer = nil
			if err := r.load(); err != nil {
				r.log.Error().Err(err).Msg("template reload failed")
				continue
			}
			r.log.Info().Str("dir", r.dir).Msg("templates reloaded")
		}
	}
}
