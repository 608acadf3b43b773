package blob

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	fsStore, err := Open(ctx, Config{FSRoot: filepath.Join(t.TempDir(), "blobs")})
	if err != nil || fsStore.Driver() != DriverFilesystem {
		t.Fatalf("default driver: %v %v", fsStore, err)
	}
	mem, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil || mem.Driver() != DriverMemory {
		t.Fatalf("memory driver: %v", err)
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Fatalf("s3 without bucket should fail")
	}
	if _, err := Open(ctx, Config{Driver: "ftp"}); err == nil || !strings.Contains(err.Error(), "unknown blob driver") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
	if NewMemory().Driver() != DriverMemory {
		t.Fatalf("NewMemory should use the memory driver")
	}
}
