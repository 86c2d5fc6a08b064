package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveContainerPath(t *testing.T) {
	t.Run("explicit path wins", func(t *testing.T) {
		dir := t.TempDir()
		p := filepath.Join(dir, "a.lif")
		touch(t, p)
		got, err := resolveContainerPath(p, t.TempDir())
		if err != nil || got != p {
			t.Fatalf("got %q, %v", got, err)
		}
	})

	t.Run("bare name resolves under data dir", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, filepath.Join(dir, "b.lof"))
		got, err := resolveContainerPath("b.lof", dir)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if got != filepath.Join(dir, "b.lof") {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("single container is picked", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, filepath.Join(dir, "only.xlif"))
		touch(t, filepath.Join(dir, "readme.md"))
		got, err := resolveContainerPath("", dir)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if filepath.Base(got) != "only.xlif" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("several containers need a flag", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, filepath.Join(dir, "b.lif"))
		touch(t, filepath.Join(dir, "a.lif"))
		_, err := resolveContainerPath("", dir)
		if err == nil || !strings.Contains(err.Error(), "a.lif, b.lif") {
			t.Fatalf("expected sorted listing in error, got %v", err)
		}
	})

	t.Run("empty dir", func(t *testing.T) {
		if _, err := resolveContainerPath("", t.TempDir()); err == nil {
			t.Fatalf("expected error")
		}
		if _, err := resolveContainerPath("", ""); err == nil {
			t.Fatalf("expected error without a data dir")
		}
	})
}
