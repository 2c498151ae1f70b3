package medium

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cases := []struct {
		cfg  Config
		want Driver
	}{
		{Config{FSRoot: filepath.Join(dir, "fs")}, DriverFilesystem},
		{Config{Driver: DriverMemory}, DriverMemory},
		{Config{Driver: DriverSQLite, SQLitePath: filepath.Join(dir, "aera.db")}, DriverSQLite},
		{Config{Driver: DriverS3, S3: S3Config{Bucket: "bkt", Endpoint: "https://mock.s3.local", AccessKeyID: "AKIA", SecretAccessKey: "SECRET"}}, DriverS3},
	}
	for _, tc := range cases {
		m, err := Open(ctx, tc.cfg)
		if err != nil {
			t.Fatalf("Open(%s): %v", tc.want, err)
		}
		if m.Driver() != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, m.Driver())
		}
		_ = m.Close()
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "tape"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestMediaShareNotExistContract(t *testing.T) {
	ctx := context.Background()
	for _, m := range []Medium{NewMemory(), NewS3MockForTests()} {
		if _, err := m.Read(ctx, "missing"); !errors.Is(err, ErrNotExist) {
			t.Fatalf("%s: expected ErrNotExist, got %v", m.Driver(), err)
		}
		if err := m.Write(ctx, "k", []byte(`{"a":1}`)); err != nil {
			t.Fatalf("%s: write: %v", m.Driver(), err)
		}
		got, err := m.Read(ctx, "k")
		if err != nil || string(got) != `{"a":1}` {
			t.Fatalf("%s: read = %q, %v", m.Driver(), got, err)
		}
	}
}

func TestLocalPath(t *testing.T) {
	root := t.TempDir()
	m, err := Open(context.Background(), Config{FSRoot: root})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	path, ok := LocalPath(m, "aera_backend_db_v1")
	if !ok || path != filepath.Join(root, "aera_backend_db_v1") {
		t.Fatalf("unexpected local path %q (%v)", path, ok)
	}
	if _, ok := LocalPath(m, "../escape"); ok {
		t.Fatalf("expected unsafe key to have no local path")
	}
	if _, ok := LocalPath(NewMemory(), "doc"); ok {
		t.Fatalf("memory medium has no local files")
	}
}
