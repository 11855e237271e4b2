package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/datachat/datachat/internal/storage"
)

type fakeClient struct {
	puts         []string
	deletes      []string
	putErr       error
	deleteErr    error
	bucketExists bool
	created      []string
}

func (f *fakeClient) Put(_ context.Context, _, key string, _ io.Reader, size int64, _ string) (storage.ObjectInfo, error) {
	f.puts = append(f.puts, key)
	if f.putErr != nil {
		return storage.ObjectInfo{}, f.putErr
	}
	return storage.ObjectInfo{Key: key, Size: size}, nil
}

func (f *fakeClient) Delete(_ context.Context, _, key string) error {
	f.deletes = append(f.deletes, key)
	return f.deleteErr
}

func (f *fakeClient) BucketExists(context.Context, string) (bool, error) {
	return f.bucketExists, nil
}

func (f *fakeClient) CreateBucket(_ context.Context, bucket, _ string) error {
	f.created = append(f.created, bucket)
	return nil
}

func TestPutAppliesPrefix(t *testing.T) {
	fake := &fakeClient{}
	store, err := NewWithClient("datachat", "uploads", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	info, err := store.Put(context.Background(), "orders.csv", strings.NewReader("id\n1\n"), 5, storage.PutOptions{ContentType: "text/csv"})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if info.Key != "uploads/orders.csv" {
		t.Fatalf("key = %q", info.Key)
	}
	if len(fake.puts) != 1 || fake.puts[0] != "uploads/orders.csv" {
		t.Fatalf("puts = %v", fake.puts)
	}
}

func TestPutRejectsTraversalKeys(t *testing.T) {
	store, err := NewWithClient("datachat", "", &fakeClient{})
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	for _, key := range []string{"", "  ", "../secrets", "a/../../b"} {
		if _, err := store.Put(context.Background(), key, strings.NewReader(""), 0, storage.PutOptions{}); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestDeleteTreatsMissingObjectAsSuccess(t *testing.T) {
	fake := &fakeClient{deleteErr: storage.ErrObjectNotFound}
	store, err := NewWithClient("datachat", "uploads", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if err := store.Delete(context.Background(), "orders.csv"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(fake.deletes) != 1 || fake.deletes[0] != "uploads/orders.csv" {
		t.Fatalf("deletes = %v", fake.deletes)
	}
}

func TestDeleteSurfacesOtherErrors(t *testing.T) {
	fake := &fakeClient{deleteErr: errors.New("access denied")}
	store, err := NewWithClient("datachat", "", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if err := store.Delete(context.Background(), "orders.csv"); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseEndpoint(t *testing.T) {
	cases := []struct {
		raw        string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{"localhost:9000", false, "localhost:9000", false},
		{"localhost:9000", true, "localhost:9000", true},
		{"http://localhost:9000", true, "localhost:9000", true},
		{"https://s3.example.com", false, "s3.example.com", true},
	}
	for _, tc := range cases {
		host, secure, err := parseEndpoint(tc.raw, tc.useSSL)
		if err != nil {
			t.Fatalf("parseEndpoint(%q) error = %v", tc.raw, err)
		}
		if host != tc.wantHost || secure != tc.wantSecure {
			t.Fatalf("parseEndpoint(%q, %v) = (%q, %v)", tc.raw, tc.useSSL, host, secure)
		}
	}
	if _, _, err := parseEndpoint("", false); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}

func TestCleanPrefix(t *testing.T) {
	cases := map[string]string{
		"":          "",
		"/":         "",
		"uploads":   "uploads",
		"/uploads/": "uploads",
		"a//b":      "a/b",
	}
	for in, want := range cases {
		if got := cleanPrefix(in); got != want {
			t.Fatalf("cleanPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}
