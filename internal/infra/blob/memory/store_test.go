package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"expansioncore/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.SetNowFunc(func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) })

	info, err := s.Put(ctx, "store-files/f1/a-lease.pdf", strings.NewReader("lease"), core.PutOptions{ContentType: "application/pdf", Metadata: map[string]string{"uploaded_by": "op-1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 5 || info.ETag == "" || info.ContentType != "application/pdf" {
		t.Fatalf("unexpected info %#v", info)
	}
	if _, err := s.Put(ctx, "store-files/f1/a-lease.pdf", strings.NewReader("again"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := s.Get(ctx, "store-files/f1/a-lease.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "lease" || got.Metadata["uploaded_by"] != "op-1" {
		t.Fatalf("unexpected blob %q %#v", body, got)
	}
	got.Metadata["uploaded_by"] = "mutated"
	if head, _ := s.Head(ctx, "store-files/f1/a-lease.pdf"); head.Metadata["uploaded_by"] != "op-1" {
		t.Fatalf("metadata must not alias stored state")
	}

	url, err := s.PresignURL(ctx, "store-files/f1/a-lease.pdf", core.SignedURLOptions{Expiry: time.Minute})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(url, "memory://blob/store-files/f1/a-lease.pdf") || !strings.Contains(url, "expires=") {
		t.Fatalf("unexpected url %s", url)
	}
	if _, err := s.PresignURL(ctx, "store-files/f1/a-lease.pdf", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported for PUT, got %v", err)
	}

	if _, err := s.Put(ctx, "store-files/f2/b.txt", strings.NewReader("b"), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	list, err := s.List(ctx, "store-files/f1/")
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 blob under f1, got %d %v", len(list), err)
	}

	if ok, err := s.Delete(ctx, "store-files/f1/a-lease.pdf"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, _ := s.Delete(ctx, "store-files/f1/a-lease.pdf"); ok {
		t.Fatalf("second delete should report missing")
	}
	if _, _, err := s.Get(ctx, "store-files/f1/a-lease.pdf"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.PresignURL(ctx, "missing", core.SignedURLOptions{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for presign of missing key, got %v", err)
	}
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
}

func TestPutRejectsEmptyKey(t *testing.T) {
	if _, err := New().Put(context.Background(), " ", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
}
