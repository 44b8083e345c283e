// Package snapshotstore persists portfolio snapshot batches as CSV rows.
package snapshotstore

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/metrics"
)

var header = []string{"timestamp", "asset", "balance", "usd_value"}

// naive ISO-8601 timestamps (no offset) are read as UTC
const naiveLayout = "2006-01-02T15:04:05.999999999"

const maxLoggedLine = 256

// CSVStore is an append-only snapshot log backed by a CSV file with the
// columns timestamp,asset,balance,usd_value.
type CSVStore struct {
	path     string
	interval time.Duration
	logger   port.Logger

	// serialises appends and the check-then-append of AppendIfDue
	mu sync.Mutex
}

// NewCSVStore creates a store at path that accepts a new batch once interval
// has elapsed since the last one.
func NewCSVStore(path string, interval time.Duration, l port.Logger) *CSVStore {
	return &CSVStore{path: path, interval: interval, logger: l.With("store", path)}
}

// Path returns the backing file path.
func (s *CSVStore) Path() string { return s.path }

// scanResult is one pass over the file.
type scanResult struct {
	records     []entity.SnapshotRecord
	malformed   int
	tailCorrupt bool
	// endsInNewline is false when the final line was torn mid-write
	endsInNewline bool
}

func (s *CSVStore) scan() (scanResult, error) {
	res := scanResult{endsInNewline: true}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, nil
		}
		return res, entity.NewStoreReadFailure(s.path, err)
	}
	if len(data) > 0 {
		res.endsInNewline = data[len(data)-1] == '\n'
	}

	rd := bufio.NewReader(bytes.NewReader(data))
	lineNo := 0
	for {
		raw, rerr := rd.ReadBytes('\n')
		if len(raw) > 0 {
			lineNo++
			s.scanLine(&res, lineNo, string(raw))
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			return res, entity.NewStoreReadFailure(s.path, rerr)
		}
	}

	if res.malformed > 0 {
		metrics.MalformedSnapshotRows.Add(float64(res.malformed))
	}
	return res, nil
}

// scanLine parses one line of any length into res. A bad line only marks
// itself malformed.
func (s *CSVStore) scanLine(res *scanResult, lineNo int, raw string) {
	line := strings.TrimRight(raw, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	if lineNo == 1 && isHeader(line) {
		return
	}

	rec, err := parseLine(line)
	if err != nil {
		res.malformed++
		res.tailCorrupt = true
		if len(line) > maxLoggedLine {
			line = line[:maxLoggedLine] + "..."
		}
		s.logger.Warn("Skipping malformed snapshot row", "error", entity.NewMalformedRecord(lineNo, err.Error()), "row", line)
		return
	}
	res.tailCorrupt = false
	res.records = append(res.records, rec)
}

func isHeader(line string) bool {
	return strings.HasPrefix(strings.TrimPrefix(line, "\ufeff"), header[0]+",")
}

func parseLine(line string) (entity.SnapshotRecord, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = len(header)
	fields, err := r.Read()
	if err != nil {
		return entity.SnapshotRecord{}, err
	}

	ts, err := parseTimestamp(strings.TrimSpace(fields[0]))
	if err != nil {
		return entity.SnapshotRecord{}, err
	}
	asset := strings.TrimSpace(fields[1])
	if asset == "" {
		return entity.SnapshotRecord{}, errors.New("empty asset")
	}
	balance, err := decimal.NewFromString(strings.TrimSpace(fields[2]))
	if err != nil {
		return entity.SnapshotRecord{}, fmt.Errorf("balance: %w", err)
	}
	usd, err := decimal.NewFromString(strings.TrimSpace(fields[3]))
	if err != nil {
		return entity.SnapshotRecord{}, fmt.Errorf("usd_value: %w", err)
	}

	return entity.SnapshotRecord{Timestamp: ts, Asset: asset, Balance: balance, USDValue: usd}, nil
}

// parseTimestamp accepts RFC 3339 (including the +00:00 offset form of
// ISO-8601) and offset-less ISO-8601, which is taken as UTC.
func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse(naiveLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return ts.UTC(), nil
}

func lastTimestamp(records []entity.SnapshotRecord) (time.Time, bool) {
	var last time.Time
	for _, r := range records {
		if r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}
	return last, len(records) > 0
}

// ReadAll returns every well-formed record in append order. A missing file is
// an empty history; malformed rows are skipped.
func (s *CSVStore) ReadAll() ([]entity.SnapshotRecord, error) {
	res, err := s.scan()
	if err != nil {
		return nil, err
	}
	return res.records, nil
}

// History returns the records grouped into timestamp-ordered batches.
func (s *CSVStore) History() (entity.SnapshotHistory, error) {
	records, err := s.ReadAll()
	if err != nil {
		return entity.SnapshotHistory{}, err
	}
	return entity.NewSnapshotHistory(records), nil
}

// FirstBatch returns the earliest recorded batch.
func (s *CSVStore) FirstBatch() (entity.SnapshotBatch, bool, error) {
	h, err := s.History()
	if err != nil {
		return entity.SnapshotBatch{}, false, err
	}
	b, ok := h.First()
	return b, ok, nil
}

// LastBatch returns the most recent batch.
func (s *CSVStore) LastBatch() (entity.SnapshotBatch, bool, error) {
	h, err := s.History()
	if err != nil {
		return entity.SnapshotBatch{}, false, err
	}
	b, ok := h.Last()
	return b, ok, nil
}

// ShouldWrite reports whether a new batch is due at now: the store is empty,
// or at least the interval has elapsed since the last batch. Any read failure
// or a corrupt final line makes it return true.
func (s *CSVStore) ShouldWrite(now time.Time) bool {
	res, err := s.scan()
	return s.due(now, res, err)
}

func (s *CSVStore) due(now time.Time, res scanResult, err error) bool {
	if err != nil {
		s.logger.Warn("Snapshot store unreadable, allowing write", "error", err)
		return true
	}
	if res.tailCorrupt {
		s.logger.Warn("Last snapshot row is corrupt, allowing write")
		return true
	}
	last, ok := lastTimestamp(res.records)
	if !ok {
		return true
	}
	return now.Sub(last) >= s.interval
}

// Append writes one row per valued asset, all sharing ts. The batch is
// encoded in memory and written with a single append followed by fsync.
// A ts earlier than the last recorded batch is rejected.
func (s *CSVStore) Append(ts time.Time, valuation entity.Valuation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.scan()
	if err != nil {
		s.logger.Warn("Appending without ordering check, store unreadable", "error", err)
	}
	_, err = s.appendLocked(ts, valuation, res)
	return err
}

// AppendIfDue checks the write gate and appends under one lock, so two
// concurrent cycles cannot both append a batch for the same interval.
func (s *CSVStore) AppendIfDue(now time.Time, valuation entity.Valuation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.scan()
	if !s.due(now, res, err) {
		return false, nil
	}
	return s.appendLocked(now, valuation, res)
}

func (s *CSVStore) appendLocked(ts time.Time, valuation entity.Valuation, res scanResult) (bool, error) {
	ts = ts.UTC()
	if last, ok := lastTimestamp(res.records); ok && ts.Before(last) {
		return false, entity.NewInvariantViolation(fmt.Sprintf(
			"snapshot timestamp %s is earlier than last batch %s", ts.Format(time.RFC3339Nano), last.Format(time.RFC3339Nano)))
	}

	symbols := valuation.Symbols()
	if len(symbols) == 0 {
		s.logger.Debug("Nothing to snapshot, valuation is empty")
		return false, nil
	}

	var buf bytes.Buffer
	if !res.endsInNewline {
		// terminate a torn final line so it stays a single malformed row
		buf.WriteByte('\n')
	}
	w := csv.NewWriter(&buf)
	stamp := ts.Format(time.RFC3339Nano)
	for _, sym := range symbols {
		a := valuation.Assets[sym]
		if err := w.Write([]string{stamp, sym, a.Balance.String(), a.USDValue.String()}); err != nil {
			return false, fmt.Errorf("failed to encode snapshot row for %s: %w", sym, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return false, fmt.Errorf("failed to encode snapshot batch: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("failed to create snapshot directory %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("failed to open snapshot store %s: %w", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat snapshot store %s: %w", s.path, err)
	}
	out := buf.Bytes()
	if info.Size() == 0 {
		// a new or truncated file starts with the header and never a torn-line fix
		out = append([]byte(strings.Join(header, ",")+"\n"), bytes.TrimPrefix(out, []byte("\n"))...)
	}
	if _, err := f.Write(out); err != nil {
		return false, fmt.Errorf("failed to write snapshot batch: %w", err)
	}
	if err := f.Sync(); err != nil {
		return false, fmt.Errorf("failed to sync snapshot store: %w", err)
	}

	metrics.SnapshotBatchesWritten.Inc()
	s.logger.Info("Snapshot batch written", "timestamp", stamp, "assets", len(symbols))
	return true, nil
}
