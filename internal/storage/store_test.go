package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/minio/minio-go/v7"
)

// fakeDB mimics the kv_store table for PostgresStore.
type fakeDB struct {
	rows  map[string][]byte
	execs []string
}

type fakeRow struct {
	value []byte
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.value
	return nil
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execs = append(db.execs, sql)
	switch {
	case strings.HasPrefix(sql, "INSERT"):
		db.rows[args[0].(string)] = args[1].([]byte)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.HasPrefix(sql, "DELETE"):
		delete(db.rows, args[0].(string))
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (db *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	v, ok := db.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{value: v}
}

func TestStores(t *testing.T) {
	ctx := context.Background()

	fileStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	db := &fakeDB{rows: map[string][]byte{}}
	pgStore, err := NewPostgresStore(ctx, db)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	if len(db.execs) != 1 || !strings.Contains(db.execs[0], "CREATE TABLE IF NOT EXISTS kv_store") {
		t.Fatalf("expected schema creation, got %v", db.execs)
	}

	stores := []struct {
		name  string
		store Store
	}{
		{"memory", NewMemoryStore()},
		{"file", fileStore},
		{"postgres", pgStore},
	}

	for _, tt := range stores {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.store
			if _, err := s.Get(ctx, "blocosrj.location"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on empty store, got %v", err)
			}
			if err := s.Set(ctx, "blocosrj.location", []byte(`{"a":1}`)); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Set(ctx, "blocosrj.location", []byte(`{"a":2}`)); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			got, err := s.Get(ctx, "blocosrj.location")
			if err != nil || string(got) != `{"a":2}` {
				t.Fatalf("Get = %q, %v", got, err)
			}
			if err := s.Remove(ctx, "blocosrj.location"); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			if err := s.Remove(ctx, "blocosrj.location"); err != nil {
				t.Fatalf("Remove missing key should not fail: %v", err)
			}
			if _, err := s.Get(ctx, "blocosrj.location"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after Remove, got %v", err)
			}
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	type payload struct {
		Mode string `json:"mode"`
	}
	if err := SetJSON(ctx, s, "k", payload{Mode: "nearby"}); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	var got payload
	if err := GetJSON(ctx, s, "k", &got); err != nil || got.Mode != "nearby" {
		t.Fatalf("GetJSON = %+v, %v", got, err)
	}

	_ = s.Set(ctx, "broken", []byte("{"))
	if err := GetJSON(ctx, s, "broken", &got); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestFileStore_KeysAreSanitized(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if p := fs.path("query:a/b c"); !strings.HasPrefix(p, dir) || strings.Contains(p[len(dir)+1:], "/") {
		t.Fatalf("unsafe path %q", p)
	}
}

func TestS3Store_ObjectKeyAndErrors(t *testing.T) {
	s := &S3Store{prefix: "state/"}
	if got := s.ObjectKey("blocosrj.results"); got != "state/blocosrj.results.json" {
		t.Errorf("ObjectKey = %q", got)
	}
	if !isNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}) {
		t.Error("NoSuchKey not recognized")
	}
	if isNoSuchKey(minio.ErrorResponse{Code: "AccessDenied"}) {
		t.Error("AccessDenied treated as missing key")
	}
	if _, err := NewS3Client(S3Config{Endpoint: "localhost:9000"}); err == nil {
		t.Error("NewS3Client accepted missing credentials")
	}
}
