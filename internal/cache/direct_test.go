package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func directKey(tag string) Key {
	k := sampleKey(tag)
	return k
}

func TestTryDirectModeHitMissOnColdCache(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, ok, err := c.TryDirectModeHit(directKey("a"), nil, nil)
	if err != nil {
		t.Fatalf("TryDirectModeHit: %v", err)
	}
	if ok {
		t.Fatalf("expected miss on cold cache")
	}
}

func TestTryDirectModeHitAfterInsertDirect(t *testing.T) {
	dir := t.TempDir()
	srcDir := t.TempDir()
	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	key := directKey("b")
	hdr := writeTempFile(t, srcDir, "foo.h", "#define X 1\n")
	objPath := writeTempFile(t, srcDir, "out.obj", "object bytes")
	artifacts := []Artifact{{Name: "obj", Path: objPath, Mode: 0o644}}

	if err := c.InsertDirect(key, []string{hdr}, artifacts, OutputInfo{Exit: 0}); err != nil {
		t.Fatalf("InsertDirect: %v", err)
	}

	restorePath := filepath.Join(t.TempDir(), "restored.obj")
	info, ok, err := c.TryDirectModeHit(key, []string{hdr}, []Artifact{{Name: "obj", Path: restorePath, Mode: 0o644}})
	if err != nil {
		t.Fatalf("TryDirectModeHit: %v", err)
	}
	if !ok {
		t.Fatalf("expected hit after InsertDirect")
	}
	if info.Exit != 0 {
		t.Errorf("Exit = %d, want 0", info.Exit)
	}
	got, err := os.ReadFile(restorePath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "object bytes" {
		t.Errorf("restored content = %q", got)
	}
}

func TestTryDirectModeHitMissesWhenIncludeChanges(t *testing.T) {
	dir := t.TempDir()
	srcDir := t.TempDir()
	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	key := directKey("c")
	hdr := writeTempFile(t, srcDir, "foo.h", "#define X 1\n")
	objPath := writeTempFile(t, srcDir, "out.obj", "object bytes")
	artifacts := []Artifact{{Name: "obj", Path: objPath, Mode: 0o644}}

	if err := c.InsertDirect(key, []string{hdr}, artifacts, OutputInfo{Exit: 0}); err != nil {
		t.Fatalf("InsertDirect: %v", err)
	}

	if err := os.WriteFile(hdr, []byte("#define X 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, ok, err := c.TryDirectModeHit(key, []string{hdr}, artifacts)
	if err != nil {
		t.Fatalf("TryDirectModeHit: %v", err)
	}
	if ok {
		t.Fatalf("expected miss after an included header changed")
	}
}

func TestTryDirectModeHitMissesOnPlainInsertEntry(t *testing.T) {
	dir := t.TempDir()
	srcDir := t.TempDir()
	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	key := directKey("d")
	objPath := writeTempFile(t, srcDir, "out.obj", "object bytes")
	artifacts := []Artifact{{Name: "obj", Path: objPath, Mode: 0o644}}

	if err := c.Insert(key, artifacts, OutputInfo{Exit: 0}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	_, ok, err := c.TryDirectModeHit(key, nil, artifacts)
	if err != nil {
		t.Fatalf("TryDirectModeHit: %v", err)
	}
	if ok {
		t.Fatalf("a plain Insert entry (no include graph) must never read back as a direct-mode hit")
	}
}
