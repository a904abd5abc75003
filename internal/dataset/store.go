package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/gesture_controller/internal/gesture"
	"github.com/relabs-tech/gesture_controller/internal/imu"
)

// FileTimeLayout names sample files after the time they were recorded.
const FileTimeLayout = "20060102_150405"

// Store persists labelled gesture samples: one CSV file per sample under
// DataDir, plus an index CSV mapping each file to its label.
type Store struct {
	Root      string // prefix for DataDir and IndexFile, e.g. "./"
	DataDir   string
	IndexFile string

	mu sync.Mutex
}

// IndexEntry is one row of the label index.
type IndexEntry struct {
	Path     string
	Label    int
	Duration float64 // seconds
}

// NewStore returns a Store rooted at root.
func NewStore(root, dataDir, indexFile string) *Store {
	return &Store{Root: root, DataDir: dataDir, IndexFile: indexFile}
}

// DataPath is the directory sample files are written to.
func (s *Store) DataPath() string { return s.Root + s.DataDir }

// IndexPath is the label index file.
func (s *Store) IndexPath() string { return s.Root + s.IndexFile }

// Record saves the sample under a timestamped name and appends it to the
// label index. It returns the path of the sample file. If the index
// cannot be written the sample file is removed again.
func (s *Store) Record(sample *gesture.Sample, label int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.DataPath()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	ended := sample.EndedAt
	if ended.IsZero() {
		ended = time.Now()
	}
	path, err := uniquePath(dir, ended.Format(FileTimeLayout))
	if err != nil {
		return "", err
	}

	if err := SaveSample(path, sample.Rows); err != nil {
		return "", err
	}

	entry := IndexEntry{Path: path, Label: label, Duration: sample.Duration.Seconds()}
	if err := appendIndex(s.IndexPath(), entry); err != nil {
		// an unindexed sample would never be trained on
		if rmErr := os.Remove(path); rmErr != nil {
			return "", fmt.Errorf("%w (and removing %s: %v)", err, path, rmErr)
		}
		return "", err
	}
	return path, nil
}

// uniquePath returns dir/base.csv, or dir/base_N.csv if that is taken.
func uniquePath(dir, base string) (string, error) {
	path := filepath.Join(dir, base+".csv")
	for n := 1; ; n++ {
		_, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.csv", base, n))
	}
}

// SaveSample writes one channel per line, each value followed by a comma.
func SaveSample(path string, rows [imu.NumChannels]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv create %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	for _, row := range rows {
		if _, err := w.WriteString(row + "\n"); err != nil {
			f.Close()
			return fmt.Errorf("csv write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("csv flush %s: %w", path, err)
	}
	return f.Close()
}

func appendIndex(path string, e IndexEntry) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open index %s: %w", path, err)
	}

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{
		e.Path,
		strconv.Itoa(e.Label),
		strconv.FormatFloat(e.Duration, 'f', 6, 64),
	}); err != nil {
		f.Close()
		return fmt.Errorf("write index %s: %w", path, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write index %s: %w", path, err)
	}
	return f.Close()
}

// LoadSample reads a sample file back into per-channel values.
func LoadSample(path string) ([imu.NumChannels][]float64, error) {
	var out [imu.NumChannels][]float64

	f, err := os.Open(path)
	if err != nil {
		return out, fmt.Errorf("open sample: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read sample %s: %w", path, err)
		}
		if row >= imu.NumChannels {
			return out, fmt.Errorf("sample %s: more than %d rows", path, imu.NumChannels)
		}
		for _, field := range rec {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return out, fmt.Errorf("sample %s row %d (%s): %w", path, row+1, imu.Channels[row], err)
			}
			out[row] = append(out[row], v)
		}
		row++
	}
	if row != imu.NumChannels {
		return out, fmt.Errorf("sample %s: got %d rows, want %d", path, row, imu.NumChannels)
	}
	return out, nil
}

// ReadIndex reads every entry of a label index file.
func ReadIndex(path string) ([]IndexEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	var entries []IndexEntry
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read index %s: %w", path, err)
		}
		label, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("index %s: bad label %q: %w", path, rec[1], err)
		}
		dur, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("index %s: bad duration %q: %w", path, rec[2], err)
		}
		entries = append(entries, IndexEntry{Path: rec[0], Label: label, Duration: dur})
	}
	return entries, nil
}
