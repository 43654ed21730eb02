// Package snapshot archives the state of a game after each tick as
// zstd-compressed JSON.
package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const formatVersion = 1

// Header is written as the first JSON line of every snapshot.
type Header struct {
	Version       int    `json:"version"`
	GameID        string `json:"game_id"`
	Period        int64  `json:"period"`
	CatalogDigest string `json:"catalog_digest"`
	CreatedAtUnix int64  `json:"created_at"`
	EmpireCount   int    `json:"empire_count"`
	SystemCount   int    `json:"system_count"`
	JobCount      int    `json:"job_count"`
}

// Snapshot is one archived period. State holds the game aggregates and is
// encoded as the second JSON line.
type Snapshot struct {
	Header Header
	State  any
}

type Archive struct {
	dir    string
	logger *slog.Logger
}

// NewArchive returns nil when dir is empty; a nil archive discards writes.
func NewArchive(dir string, logger *slog.Logger) *Archive {
	if dir == "" {
		return nil
	}
	logger.Debug("Initializing snapshot archive", "dir", dir)
	return &Archive{dir: dir, logger: logger}
}

// Path is where the snapshot of gameID at period is stored.
func (a *Archive) Path(gameID string, period int64) string {
	return filepath.Join(a.dir, gameID, fmt.Sprintf("%08d.json.zst", period))
}

func (a *Archive) Write(snap Snapshot) error {
	if a == nil {
		return nil
	}
	snap.Header.Version = formatVersion
	path := a.Path(snap.Header.GameID, snap.Header.Period)
	if err := Write(path, snap); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	a.logger.Debug("Snapshot written", "component", "snapshot_archive", "path", path)
	return nil
}

func Write(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 64*1024)
	je := json.NewEncoder(bw)
	if err := je.Encode(snap.Header); err != nil {
		enc.Close()
		return fmt.Errorf("encode header: %w", err)
	}
	if err := je.Encode(snap.State); err != nil {
		enc.Close()
		return fmt.Errorf("encode state: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}

// Read decodes the snapshot at path, unmarshalling its state into state.
func Read(path string, state any) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	jd := json.NewDecoder(bufio.NewReaderSize(dec, 64*1024))
	if err := jd.Decode(&h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != formatVersion {
		return h, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}
	if err := jd.Decode(state); err != nil {
		return h, fmt.Errorf("decode state: %w", err)
	}
	return h, nil
}
