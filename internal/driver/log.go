package driver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"keel/internal/dictlayout"
)

// Current schema version - increment when the log format changes.
const logSchemaVersion uint16 = 1

// NeedSpec is one registered dictionary need: some call site in the method
// body requires Lookup from Owner's dictionary.
type NeedSpec struct {
	Owner  dictlayout.OwnerSpec
	Lookup dictlayout.LookupSpec
}

// LogRecord is the discovery record of one canonical method body: the needs
// its call sites registered, in source order, and the canonical methods it
// calls (the dependency edges the graph follows).
type LogRecord struct {
	Method dictlayout.MethodSpec
	Needs  []NeedSpec
	Calls  []dictlayout.MethodSpec
}

// Log is a recorded discovery session: what an external codegen observed
// while compiling shared bodies. Replaying a log rebuilds the exact same
// slot tables, which is how layout reproducibility is verified and how
// layouts are rebuilt offline.
type Log struct {
	Schema  uint16
	Unit    string
	Roots   []dictlayout.MethodSpec
	Records []LogRecord
}

// NewLog creates an empty discovery log for a compilation unit.
func NewLog(unit string) *Log {
	return &Log{Schema: logSchemaVersion, Unit: unit}
}

// EncodeLog writes the log in msgpack form.
func EncodeLog(w io.Writer, log *Log) error {
	return msgpack.NewEncoder(w).Encode(log)
}

// DecodeLog reads a msgpack discovery log.
func DecodeLog(r io.Reader) (*Log, error) {
	var log Log
	if err := msgpack.NewDecoder(r).Decode(&log); err != nil {
		return nil, err
	}
	if log.Schema != logSchemaVersion {
		return nil, fmt.Errorf("driver: discovery log schema %d, want %d", log.Schema, logSchemaVersion)
	}
	return &log, nil
}

// WriteLogFile writes the log atomically: temp file, then rename.
func WriteLogFile(path string, log *Log) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(f.Name())
	}()
	if err := EncodeLog(f, log); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// ReadLogFile reads a discovery log from disk.
func ReadLogFile(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return DecodeLog(f)
}
