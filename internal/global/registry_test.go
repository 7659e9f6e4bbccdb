package global

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/loykin/stoker/internal/fsys"
)

func hexDigest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func TestRegistryGetBeforeSet(t *testing.T) {
	var r Registry
	if _, err := r.Digest(); !errors.Is(err, ErrNotSet) {
		t.Fatalf("Digest before set: %v", err)
	}
	if _, err := r.Filesystem(); !errors.Is(err, ErrNotSet) {
		t.Fatalf("Filesystem before set: %v", err)
	}
}

func TestRegistrySetOnce(t *testing.T) {
	var r Registry
	if err := r.SetDigest(hexDigest); err != nil {
		t.Fatalf("first SetDigest: %v", err)
	}
	if err := r.SetDigest(hexDigest); !errors.Is(err, ErrAlreadySet) {
		t.Fatalf("second SetDigest: %v", err)
	}
	fn, err := r.Digest()
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if got := fn([]byte("workspace")); got != hexDigest([]byte("workspace")) {
		t.Fatalf("digest mismatch: %s", got)
	}
}

func TestRegistryFilesystemSetOnce(t *testing.T) {
	var r Registry
	if err := r.SetFilesystem(fsys.NewMem()); err != nil {
		t.Fatalf("first SetFilesystem: %v", err)
	}
	if err := r.SetFilesystem(fsys.OSFS{}); !errors.Is(err, ErrAlreadySet) {
		t.Fatalf("second SetFilesystem: %v", err)
	}
	if _, err := r.Filesystem(); err != nil {
		t.Fatalf("Filesystem: %v", err)
	}
}

func TestRegistryNilArguments(t *testing.T) {
	var r Registry
	if err := r.SetDigest(nil); err == nil {
		t.Fatal("expected error for nil digest")
	}
	if err := r.SetFilesystem(nil); err == nil {
		t.Fatal("expected error for nil filesystem")
	}
}
