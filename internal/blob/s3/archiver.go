package s3blob

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/StabilityNexus/Fate/internal/domain"
)

const (
	archivePrefix      = "snapshots/"
	archiveContentType = "application/x-ndjson"
	// Batches larger than this go through the multipart uploader.
	multipartThreshold = 8 * 1024 * 1024
)

// Archiver writes pool snapshot batches as gzipped JSONL objects keyed
// snapshots/YYYY/MM/DD/HHMMSS.jsonl.gz and reads them back.
type Archiver struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	audit  domain.AuditStore
}

var _ domain.SnapshotArchiver = (*Archiver)(nil)

// NewArchiver creates an Archiver. reader and audit may be nil.
func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader, audit domain.AuditStore) *Archiver {
	return &Archiver{writer: writer, reader: reader, audit: audit}
}

// Archive uploads snaps under the key derived from at and returns that key.
// An empty batch is not written and returns an empty key.
func (a *Archiver) Archive(ctx context.Context, snaps []domain.PoolSnapshot, at time.Time) (string, error) {
	if len(snaps) == 0 {
		return "", nil
	}

	body, err := encodeSnapshots(snaps)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive encode: %w", err)
	}

	key := ArchiveKey(at)
	if len(body) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, key, bytes.NewReader(body), minPartSize)
	} else {
		err = a.writer.Put(ctx, key, bytes.NewReader(body), archiveContentType)
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive upload: %w", err)
	}

	if a.audit != nil {
		if err := a.audit.Log(ctx, "archive.snapshots", map[string]any{
			"path":  key,
			"count": len(snaps),
			"bytes": len(body),
		}); err != nil {
			return key, fmt.Errorf("s3blob: archive audit log: %w", err)
		}
	}
	return key, nil
}

// List returns the archive keys written on day, oldest first.
func (a *Archiver) List(ctx context.Context, day time.Time) ([]string, error) {
	if a.reader == nil {
		return nil, fmt.Errorf("s3blob: archive list: no reader configured")
	}
	infos, err := a.reader.List(ctx, archivePrefix+day.UTC().Format("2006/01/02/"))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		if strings.HasSuffix(info.Path, ".jsonl.gz") {
			keys = append(keys, info.Path)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Load downloads and decodes one archive object.
func (a *Archiver) Load(ctx context.Context, key string) ([]domain.PoolSnapshot, error) {
	if a.reader == nil {
		return nil, fmt.Errorf("s3blob: archive load: no reader configured")
	}
	rc, err := a.reader.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	snaps, err := decodeSnapshots(rc)
	if err != nil {
		return nil, fmt.Errorf("s3blob: archive load %s: %w", key, err)
	}
	return snaps, nil
}

// ArchiveKey returns the object key for a batch taken at t (UTC).
//
//	snapshots/2025/01/31/142500.jsonl.gz
func ArchiveKey(t time.Time) string {
	return archivePrefix + t.UTC().Format("2006/01/02/150405") + ".jsonl.gz"
}

func encodeSnapshots(snaps []domain.PoolSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	enc := json.NewEncoder(zw)
	enc.SetEscapeHTML(false)

	for i, s := range snaps {
		if err := enc.Encode(s); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeSnapshots(r io.Reader) ([]domain.PoolSnapshot, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("gzip open: %w", err)
	}
	defer zr.Close()

	var out []domain.PoolSnapshot
	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for line := 1; sc.Scan(); line++ {
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var s domain.PoolSnapshot
		if err := json.Unmarshal(sc.Bytes(), &s); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return out, nil
}
