package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
)

// Snapshot encodings recorded in backups.encoding.
const (
	EncodingJSON   = "json"
	EncodingBrotli = "br"
)

// Timestamps are stored as unix milliseconds.

// ToMillis converts t for storage.
func ToMillis(t time.Time) int64 { return t.UnixMilli() }

// FromMillis converts a stored timestamp back to UTC time.
func FromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// EncodeSnapshot serializes a snapshot for the backups table.
func EncodeSnapshot(snap models.Snapshot) (string, error) {
	b, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(b), nil
}

// DecodeSnapshot parses a stored snapshot.
func DecodeSnapshot(raw []byte) (models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// CompressSnapshot encodes snap as brotli-compressed JSON.
func CompressSnapshot(snap models.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeStoredSnapshot reads a snapshot in the given column encoding.
func DecodeStoredSnapshot(encoding string, raw []byte) (models.Snapshot, error) {
	switch encoding {
	case EncodingJSON, "":
		return DecodeSnapshot(raw)
	case EncodingBrotli:
		plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(raw)))
		if err != nil {
			return models.Snapshot{}, fmt.Errorf("decompress snapshot: %w", err)
		}
		return DecodeSnapshot(plain)
	}
	return models.Snapshot{}, fmt.Errorf("unknown snapshot encoding %q", encoding)
}

// ClampLimit maps a non-positive limit to def.
func ClampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}
