package snapshot

import (
	"io"
	"log/slog"
	"os"
	"testing"
)

type state struct {
	Empires []string       `json:"empires"`
	Stock   map[string]int `json:"stock"`
}

func TestArchive_RoundTrip(t *testing.T) {
	a := NewArchive(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	in := state{Empires: []string{"e1", "e2"}, Stock: map[string]int{"minerals": 40}}

	if err := a.Write(Snapshot{Header: Header{GameID: "g1", Period: 12, EmpireCount: 2}, State: in}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var out state
	h, err := Read(a.Path("g1", 12), &out)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if h.GameID != "g1" || h.Period != 12 || h.Version != formatVersion {
		t.Fatalf("header = %+v", h)
	}
	if len(out.Empires) != 2 || out.Stock["minerals"] != 40 {
		t.Fatalf("state = %+v", out)
	}
}

func TestArchive_NilDiscards(t *testing.T) {
	a := NewArchive("", slog.Default())
	if a != nil {
		t.Fatalf("expected nil archive")
	}
	if err := a.Write(Snapshot{Header: Header{GameID: "g1"}}); err != nil {
		t.Fatalf("Write on nil archive: %v", err)
	}
}

func TestRead_RejectsPlainFile(t *testing.T) {
	path := t.TempDir() + "/plain.json"
	if err := os.WriteFile(path, []byte(`{"version":1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	var out state
	if _, err := Read(path, &out); err == nil {
		t.Fatalf("expected error for uncompressed file")
	}
}

func TestArchive_WriteReportsFailure(t *testing.T) {
	dir := t.TempDir() + "/archive"
	if err := os.WriteFile(dir, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	a := NewArchive(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := a.Write(Snapshot{Header: Header{GameID: "g1", Period: 1}, State: state{}}); err == nil {
		t.Fatalf("expected error when the archive dir is a file")
	}
}
