// Package storage abstracts the object store used to archive raw uploaded
// CSV files. Archival is optional and decoupled from the relational store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key  string
	Size int64
	ETag string
}

type PutOptions struct {
	ContentType string
}

type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildUploadKey returns the archive key for a table's raw CSV.
func BuildUploadKey(tableName string) (string, error) {
	if !tableNamePattern.MatchString(tableName) {
		return "", fmt.Errorf("invalid table name: %q", tableName)
	}
	return tableName + ".csv", nil
}
