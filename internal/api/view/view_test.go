package view

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type flash struct {
	Kind    string
	Message string
}

func TestRenderer_Embedded(t *testing.T) {
	r, err := New("", zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var buf bytes.Buffer
	data := struct {
		Error   string
		Message string
		Flash   *flash
	}{Error: "invalid username or password", Flash: &flash{Kind: "success", Message: "<b>done</b>"}}

	if err := r.Render(&buf, "login.html", data, nil); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "invalid username or password") {
		t.Fatalf("missing error message: %s", out)
	}
	if !strings.Contains(out, "alert-success") || strings.Contains(out, "<b>done</b>") {
		t.Fatalf("flash must render escaped: %s", out)
	}
}

func TestRenderer_SignupWithoutErrors(t *testing.T) {
	r, err := New("", zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	type form struct{ Username, Email, Name string }
	data := struct {
		Form   form
		Errors map[string]string
		Flash  *flash
	}{Form: form{Username: "ban"}}

	var buf bytes.Buffer
	if err := r.Render(&buf, "signup.html", data, nil); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), `value="ban"`) {
		t.Fatalf("expected username to be kept")
	}
}

func TestStatic(t *testing.T) {
	for _, name := range []string{"css/site.css", "js/app.js", "images/logo.svg"} {
		if _, err := fs.Stat(Static(), name); err != nil {
			t.Fatalf("missing static asset %s: %v", name, err)
		}
	}
}

func TestRenderer_WatchReloads(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	if err := os.WriteFile(page, []byte("v1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, err := New(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Watch(ctx); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(page, []byte("v2"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		var buf bytes.Buffer
		if err := r.Render(&buf, "page.html", nil, nil); err != nil {
			t.Fatalf("Render: %v", err)
		}
		if buf.String() == "v2" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("templates were not reloaded, still %q", buf.String())
		}
		time.Sleep(50 * time.Millisecond)
	}
}
