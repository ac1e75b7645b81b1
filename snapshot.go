package entropygo

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"time"

	"github.com/klauspost/compress/zstd"
)

var snapshotMagic = [4]byte{'E', 'G', 'S', '1'}

const snapshotFormatVersion = uint16(1)

// maxSnapshotPayload caps the decompressed payload to guard against
// corrupted or hostile headers.
const maxSnapshotPayload = 1 << 30

// SaveSnapshot writes the estimator state to w as a versioned, checksummed,
// zstd-compressed snapshot. Centroids and visit counts are the complete
// state needed to resume; distance and density configuration is supplied by
// the caller at load time.
//
// Layout:
//  1. magic, format version
//  2. CRC32 checksum of the uncompressed payload
//  3. zstd-compressed payload: id, dim, k, counts, centroid data
func (e *Estimator) SaveSnapshot(ctx context.Context, w io.Writer) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	start := time.Now()
	err := e.saveSnapshotLocked(w)
	e.metrics.RecordSnapshot(time.Since(start), err)
	e.logger.LogSnapshot(ctx, "save", err)
	return err
}

func (e *Estimator) saveSnapshotLocked(w io.Writer) error {
	if w == nil {
		return fmt.Errorf("snapshot: writer is nil")
	}
	if !e.enc.Ready() {
		return ErrUninitialized
	}

	var payload bytes.Buffer

	idBytes := []byte(e.id)
	if err := binary.Write(&payload, binary.LittleEndian, uint16(len(idBytes))); err != nil {
		return fmt.Errorf("snapshot: write id length: %w", err)
	}
	payload.Write(idBytes)

	if err := binary.Write(&payload, binary.LittleEndian, uint32(e.dim)); err != nil {
		return fmt.Errorf("snapshot: write dimension: %w", err)
	}
	if err := binary.Write(&payload, binary.LittleEndian, uint32(e.k)); err != nil {
		return fmt.Errorf("snapshot: write cluster count: %w", err)
	}

	for _, c := range e.enc.CountsView() {
		if err := binary.Write(&payload, binary.LittleEndian, c); err != nil {
			return fmt.Errorf("snapshot: write counts: %w", err)
		}
	}

	centroids := e.enc.CentroidsView()
	for j := 0; j < e.k; j++ {
		for _, v := range centroids.RawRowView(j) {
			if err := binary.Write(&payload, binary.LittleEndian, math.Float64bits(v)); err != nil {
				return fmt.Errorf("snapshot: write centroids: %w", err)
			}
		}
	}

	if _, err := w.Write(snapshotMagic[:]); err != nil {
		return fmt.Errorf("snapshot: write magic: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, snapshotFormatVersion); err != nil {
		return fmt.Errorf("snapshot: write version: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, crc32.ChecksumIEEE(payload.Bytes())); err != nil {
		return fmt.Errorf("snapshot: write checksum: %w", err)
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("snapshot: create compressor: %w", err)
	}
	if _, err := zw.Write(payload.Bytes()); err != nil {
		zw.Close()
		return fmt.Errorf("snapshot: write payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("snapshot: flush payload: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot written by SaveSnapshot and returns a ready
// estimator. Options configure everything the snapshot does not carry
// (distance computer, density mode, epsilon, logging); dimension and cluster
// count come from the snapshot itself.
func LoadSnapshot(r io.Reader, optFns ...Option) (*Estimator, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("snapshot: read magic: %w", err)
	}
	if magic != snapshotMagic {
		return nil, fmt.Errorf("snapshot: bad magic %q", magic[:])
	}

	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("snapshot: read version: %w", err)
	}
	if version != snapshotFormatVersion {
		return nil, fmt.Errorf("snapshot: unsupported format version %d", version)
	}

	var checksum uint32
	if err := binary.Read(r, binary.LittleEndian, &checksum); err != nil {
		return nil, fmt.Errorf("snapshot: read checksum: %w", err)
	}

	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("snapshot: create decompressor: %w", err)
	}
	defer zr.Close()

	payload, err := io.ReadAll(io.LimitReader(zr, maxSnapshotPayload))
	if err != nil {
		return nil, fmt.Errorf("snapshot: read payload: %w", err)
	}
	if crc32.ChecksumIEEE(payload) != checksum {
		return nil, fmt.Errorf("snapshot: checksum mismatch")
	}

	buf := bytes.NewReader(payload)

	var idLen uint16
	if err := binary.Read(buf, binary.LittleEndian, &idLen); err != nil {
		return nil, fmt.Errorf("snapshot: read id length: %w", err)
	}
	idBytes := make([]byte, idLen)
	if _, err := io.ReadFull(buf, idBytes); err != nil {
		return nil, fmt.Errorf("snapshot: read id: %w", err)
	}

	var dim, k uint32
	if err := binary.Read(buf, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("snapshot: read dimension: %w", err)
	}
	if err := binary.Read(buf, binary.LittleEndian, &k); err != nil {
		return nil, fmt.Errorf("snapshot: read cluster count: %w", err)
	}

	if uint64(dim)*uint64(k) > maxSnapshotPayload/8 {
		return nil, fmt.Errorf("snapshot: implausible shape %dx%d", k, dim)
	}

	counts := make([]uint64, k)
	if err := binary.Read(buf, binary.LittleEndian, counts); err != nil {
		return nil, fmt.Errorf("snapshot: read counts: %w", err)
	}

	bits := make([]uint64, int(dim)*int(k))
	if err := binary.Read(buf, binary.LittleEndian, bits); err != nil {
		return nil, fmt.Errorf("snapshot: read centroids: %w", err)
	}
	centroids := make([]float64, len(bits))
	for i, b := range bits {
		centroids[i] = math.Float64frombits(b)
	}

	est, err := New(int(dim), int(k), optFns...)
	if err != nil {
		return nil, err
	}
	if err := est.enc.Restore(centroids, counts); err != nil {
		return nil, fmt.Errorf("snapshot: restore state: %w", err)
	}

	est.id = string(idBytes)
	est.logger = est.opts.logger.WithEstimator(est.id, est.dim, est.k)
	return est, nil
}
