package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"maps"
	"slices"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/roach88/resplan/internal/schema"
)

// ExportVersion is the statistics file format written by Export.
const ExportVersion = 1

// statsMagic marks a msgpack statistics file with a CRC32 trailer.
const statsMagic byte = 0x52

// crc32Table is the precomputed Castagnoli CRC32 table.
var crc32Table = crc32.MakeTable(crc32.Castagnoli)

// ErrCorruptExport indicates a statistics file that fails its checksum or
// cannot be decoded.
var ErrCorruptExport = errors.New("corrupt statistics file")

// exportFile is the msgpack payload of a statistics file.
type exportFile struct {
	Version int           `msgpack:"version"`
	Counts  []exportCount `msgpack:"counts"` // sorted by label
}

// exportCount is one label's count. Counts are written as a sorted list,
// not a map, so that the same counts always encode to the same bytes.
type exportCount struct {
	Label string `msgpack:"label"`
	Count int64  `msgpack:"count"`
}

// Export writes the committed counts to w.
// Format: magic(1) + msgpack_data + crc32(4)
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	stats, err := s.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	data, err := encodeStatistics(stats)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// Import replaces the committed counts with those read from r, in one
// transaction. Labels absent from the file drop to zero. The replacement is
// recorded as a single commit whose id is returned; an import that changes
// nothing returns an empty id.
func (s *Store) Import(ctx context.Context, r io.Reader) (string, error) {
	stats, err := ReadStatistics(r)
	if err != nil {
		return "", fmt.Errorf("import: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("import: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	current, err := countsTx(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("import: %w", err)
	}

	changes := make(map[string]int64)
	for label, n := range current {
		if d := stats[label] - n; d != 0 {
			changes[label] = d
		}
	}
	for label, n := range stats {
		if _, ok := current[label]; !ok && n != 0 {
			changes[label] = n
		}
	}
	if len(changes) == 0 {
		return "", nil
	}

	id, err := s.applyChanges(ctx, tx, changes)
	if err != nil {
		return "", fmt.Errorf("import: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("import: %w", err)
	}
	return id, nil
}

// ReadStatistics decodes a statistics file written by Export without
// opening a store.
func ReadStatistics(r io.Reader) (schema.Statistics, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decodeStatistics(data)
}

func encodeStatistics(stats schema.Statistics) ([]byte, error) {
	labels := slices.Sorted(maps.Keys(stats))
	counts := make([]exportCount, 0, len(labels))
	for _, label := range labels {
		counts = append(counts, exportCount{Label: label, Count: stats[label]})
	}
	return encodeFile(exportFile{Version: ExportVersion, Counts: counts})
}

func encodeFile(file exportFile) ([]byte, error) {
	var payload bytes.Buffer
	if err := msgpack.NewEncoder(&payload).Encode(&file); err != nil {
		return nil, err
	}

	raw := payload.Bytes()
	buf := make([]byte, 1+len(raw)+4)
	buf[0] = statsMagic
	copy(buf[1:], raw)
	checksum := crc32.Checksum(buf[:1+len(raw)], crc32Table)
	binary.BigEndian.PutUint32(buf[1+len(raw):], checksum)
	return buf, nil
}

func decodeStatistics(data []byte) (schema.Statistics, error) {
	if len(data) < 5 || data[0] != statsMagic {
		return nil, fmt.Errorf("%w: not a statistics file", ErrCorruptExport)
	}
	payload := data[:len(data)-4]
	stored := binary.BigEndian.Uint32(data[len(data)-4:])
	if actual := crc32.Checksum(payload, crc32Table); stored != actual {
		return nil, fmt.Errorf("%w: checksum mismatch (stored=%08x actual=%08x)", ErrCorruptExport, stored, actual)
	}

	var file exportFile
	if err := msgpack.Unmarshal(payload[1:], &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptExport, err)
	}
	if file.Version != ExportVersion {
		return nil, fmt.Errorf("unsupported statistics file version %d (want %d)", file.Version, ExportVersion)
	}

	stats := schema.Statistics{}
	for _, c := range file.Counts {
		if c.Count < 0 {
			return nil, fmt.Errorf("%w: negative count %d for %q", ErrCorruptExport, c.Count, c.Label)
		}
		stats[schema.NormalizeLabel(c.Label)] += c.Count
	}
	return stats, nil
}
