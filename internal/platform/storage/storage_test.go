package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDiskStore_SaveAndOpen(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	path, err := store.Save(ctx, KindScan, "scan-1.png", strings.NewReader("image-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "scans/scan-1.png" {
		t.Errorf("unexpected path %s", path)
	}

	rc, err := store.Open(ctx, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "image-bytes" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestDiskStore_OpenMissing(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = store.Open(context.Background(), "scans/nope.png")
	if !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("expected ErrArtifactNotFound, got %v", err)
	}
}

func TestDiskStore_DeleteMissingIsNotAnError(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Delete(context.Background(), "heatmaps/gone.png"); err != nil {
		t.Errorf("expected missing artifact delete to succeed, got %v", err)
	}
}

func TestDiskStore_DeleteRemoves(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	path, err := store.Save(ctx, KindMask, "mask_abc.png", strings.NewReader("mask"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Delete(ctx, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exists, err := store.Exists(ctx, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected artifact to be gone after delete")
	}
}

func TestValidateName_RejectsTraversal(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	cases := []struct {
		kind string
		name string
		want error
	}{
		{KindScan, "", ErrMissingName},
		{KindScan, "../escape.png", ErrInvalidName},
		{KindScan, "a/b.png", ErrInvalidName},
		{"documents", "a.png", ErrInvalidKind},
	}
	for _, tc := range cases {
		_, err := store.Save(ctx, tc.kind, tc.name, strings.NewReader("x"))
		if !errors.Is(err, tc.want) {
			t.Errorf("Save(%q, %q): expected %v, got %v", tc.kind, tc.name, tc.want, err)
		}
	}
}

func TestMemStore_RoundTrip(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	path, err := store.Save(ctx, KindHeatmap, "hm.png", strings.NewReader("heat"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rc, err := store.Open(ctx, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "heat" {
		t.Errorf("unexpected content %q", data)
	}

	if err := store.Delete(ctx, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d artifacts", store.Len())
	}
	if err := store.Delete(ctx, path); err != nil {
		t.Errorf("expected second delete to succeed, got %v", err)
	}
}
