package api

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/datachat/datachat/internal/observability"
	"github.com/datachat/datachat/internal/storage"
)

const maxUploadBytes = 64 << 20 // 64 MiB

var tableNameCleaner = regexp.MustCompile(`[^A-Za-z0-9_]`)

// tableNameFromFilename derives the table name from an uploaded filename:
// base name without extension, anything outside [A-Za-z0-9_] replaced.
func tableNameFromFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, `/`))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := tableNameCleaner.ReplaceAllString(stem, "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		return ""
	}
	if cleaned[0] >= '0' && cleaned[0] <= '9' {
		cleaned = "t_" + cleaned
	}
	return cleaned
}

func handleUploadCSV(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Tables == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "upload is not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No file part"})
		return
	}
	defer func() { _ = file.Close() }()

	if strings.TrimSpace(header.Filename) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No selected file"})
		return
	}
	tableName := tableNameFromFilename(header.Filename)
	if tableName == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid file name"})
		return
	}

	// The engine ingests from a file path, so the upload is spooled to a
	// temp file first.
	tmp, err := os.CreateTemp("", "datachat-upload-*.csv")
	if err != nil {
		logUploadError(deps.Logger, r, "create temp file", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Error processing file"})
		return
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	written, err := io.Copy(tmp, file)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		logUploadError(deps.Logger, r, "spool upload", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Error processing file"})
		return
	}

	rows, err := deps.Tables.CreateTableFromCSV(r.Context(), tableName, tmpPath)
	if err != nil {
		logUploadError(deps.Logger, r, "create table", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Error processing file"})
		return
	}
	observability.ObserveUpload()
	if deps.Logger != nil {
		deps.Logger.InfoContext(r.Context(), "table created from upload",
			slog.String("table", tableName),
			slog.Int64("rows", rows),
		)
	}

	archiveUpload(deps, r, tableName, tmpPath, written)

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "File uploaded successfully",
		"table":   tableName,
	})
}

// archiveUpload copies the raw CSV to the object store when one is
// configured. Best-effort; archive failures never fail the upload.
func archiveUpload(deps Dependencies, r *http.Request, tableName, tmpPath string, size int64) {
	if deps.Archive == nil {
		return
	}
	key, err := storage.BuildUploadKey(tableName)
	if err != nil {
		logUploadError(deps.Logger, r, "build archive key", err)
		return
	}
	raw, err := os.Open(tmpPath)
	if err != nil {
		logUploadError(deps.Logger, r, "reopen upload for archive", err)
		return
	}
	defer func() { _ = raw.Close() }()
	if _, err := deps.Archive.Put(r.Context(), key, raw, size, storage.PutOptions{ContentType: "text/csv"}); err != nil {
		logUploadError(deps.Logger, r, "archive upload", err)
	}
}

func handleRemove(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Tables == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "remove is not configured"})
		return
	}

	name := strings.TrimSpace(r.PathValue("name"))
	tableName := tableNameFromFilename(name)
	if tableName == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid file name"})
		return
	}

	if err := deps.Tables.DropTable(r.Context(), tableName); err != nil {
		logUploadError(deps.Logger, r, "drop table", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Error removing file"})
		return
	}

	if deps.Archive != nil {
		if key, err := storage.BuildUploadKey(tableName); err == nil {
			if err := deps.Archive.Delete(r.Context(), key); err != nil {
				logUploadError(deps.Logger, r, "delete archived upload", err)
			}
		}
	}

	schema := map[string]map[string]string{}
	tables, err := deps.Tables.Snapshot(r.Context())
	if err != nil {
		logUploadError(deps.Logger, r, "snapshot after remove", err)
	} else {
		for _, table := range tables {
			columns := make(map[string]string, len(table.Columns))
			for _, column := range table.Columns {
				columns[column.Name] = column.Type
			}
			schema[table.Name] = columns
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "File removed successfully",
		"schema":  schema,
	})
}

func logUploadError(logger *slog.Logger, r *http.Request, action string, err error) {
	if logger == nil {
		return
	}
	logger.ErrorContext(r.Context(), "upload handling failed",
		slog.String("action", action),
		slog.Any("error", err),
	)
}
