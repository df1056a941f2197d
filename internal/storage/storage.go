package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/minerva-scrape/internal/event"
)

// HistoryFile is the name of the rotation history inside the data directory.
const HistoryFile = "history.jsonl"

// Storage handles persistence of records
type Storage struct {
	dataDir string
}

// New creates a new Storage instance
func New(dataDir string) (*Storage, error) {
	dataDir, err := ExpandHome(dataDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
	}, nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

// DataDir returns the expanded data directory.
func (s *Storage) DataDir() string {
	return s.dataDir
}

func (s *Storage) historyPath() string {
	return filepath.Join(s.dataDir, HistoryFile)
}

// Encode renders rec the way the record file stores it: two-space indent,
// no HTML escaping and no trailing newline.
func Encode(rec *event.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// SaveRecord replaces the record file at path.
func SaveRecord(path string, rec *event.Record) error {
	path, err := ExpandHome(path)
	if err != nil {
		return err
	}

	data, err := Encode(rec)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}

// LoadRecord reads the record file at path. A missing file yields nil, nil.
func LoadRecord(path string) (*event.Record, error) {
	path, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading record: %w", err)
	}

	var rec event.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing record: %w", err)
	}
	if rec.Items == nil {
		rec.Items = make([]string, 0)
	}
	return &rec, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0644); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

// AppendHistory adds rec to the history unless it describes the same
// rotation as the last entry. It reports whether a line was written.
func (s *Storage) AppendHistory(rec *event.Record) (bool, error) {
	last, err := s.LastRotation()
	if err != nil {
		return false, err
	}
	if last != nil && last.RotationKey() == rec.RotationKey() {
		return false, nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("encoding history entry: %w", err)
	}

	f, err := os.OpenFile(s.historyPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, fmt.Errorf("opening history: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return false, fmt.Errorf("writing history: %w", err)
	}
	return true, nil
}

// History returns every recorded rotation, oldest first. Lines that cannot be
// parsed are skipped.
func (s *Storage) History() ([]*event.Record, error) {
	f, err := os.Open(s.historyPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening history: %w", err)
	}
	defer f.Close()

	var records []*event.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec event.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return records, nil
}

// LastRotation returns the newest history entry, or nil when there is none.
func (s *Storage) LastRotation() (*event.Record, error) {
	records, err := s.History()
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[len(records)-1], nil
}
