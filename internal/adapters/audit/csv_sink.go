// Package audit persists completed assessments.
package audit

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/internal/domain/providers"
	"github.com/zatekoja/woundsense/backend/internal/domain/repositories"
	"github.com/zatekoja/woundsense/backend/pkg/imageref"
)

// Column names of the CSV audit log.
const (
	colID                 = "id"
	colTimestamp          = "timestamp"
	colPatientID          = "patient_id"
	colPatientName        = "patient_name"
	colDoctorID           = "doctor_id"
	colLength             = "length_cm"
	colWidth              = "width_cm"
	colDepth              = "depth_cm"
	colArea               = "area_cm2"
	colVolume             = "volume_cm3"
	colDiagnosis          = "diagnosis"
	colImageURL           = "image_url"
	colImageRef           = "image_ref"
	colDetectionSucceeded = "detection_succeeded"
)

var csvHeader = []string{
	colID, colTimestamp, colPatientID, colPatientName, colDoctorID,
	colLength, colWidth, colDepth, colArea, colVolume,
	colDiagnosis, colImageURL, colImageRef, colDetectionSucceeded,
}

// legacyTimestampLayout is accepted when reading logs written before
// timestamps carried a zone.
const legacyTimestampLayout = "2006-01-02 15:04:05"

// CSVSink appends one row per assessment to a CSV file and reads the file
// back as assessment history. Report newlines are preserved inside quoted
// fields. Rows are never rewritten.
type CSVSink struct {
	path string
	mu   sync.Mutex
}

var (
	_ providers.AuditSink               = (*CSVSink)(nil)
	_ repositories.AssessmentRepository = (*CSVSink)(nil)
)

// NewCSVSink creates a sink writing to path. Parent directories are created
// on first write.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// Path returns the file the sink writes to.
func (s *CSVSink) Path() string {
	return s.path
}

// Record appends entry to the log, writing the header first if the file is
// new or empty.
func (s *CSVSink) Record(_ context.Context, entry *entities.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create audit directory: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat audit log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write audit header: %w", err)
		}
	}
	if err := w.Write(encodeRow(entry)); err != nil {
		return fmt.Errorf("failed to write audit row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush audit log: %w", err)
	}
	return nil
}

// List reads the log and returns matching entries, newest first. A missing
// file is an empty history.
func (s *CSVSink) List(_ context.Context, filter repositories.AssessmentFilter) ([]*entities.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []*entities.AuditEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []*entities.AuditEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read audit header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	var entries []*entities.AuditEntry
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read audit row %d: %w", line, err)
		}
		entry, err := decodeRow(cols, row)
		if err != nil {
			return nil, fmt.Errorf("audit row %d: %w", line, err)
		}
		if filter.Matches(entry) {
			entries = append(entries, entry)
		}
	}

	slices.Reverse(entries)
	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	if entries == nil {
		entries = []*entities.AuditEntry{}
	}
	return entries, nil
}

func encodeRow(e *entities.AuditEntry) []string {
	return []string{
		e.ID,
		e.Timestamp.Format(time.RFC3339),
		e.PatientID,
		e.PatientName,
		e.DoctorID,
		formatFloat(e.Measurements.Length),
		formatFloat(e.Measurements.Width),
		formatFloat(e.Measurements.Depth),
		formatFloat(e.Measurements.Area),
		formatFloat(e.Measurements.Volume),
		strings.TrimSpace(e.Report),
		imageref.PublicURL(e.ImageRef),
		e.ImageRef,
		strconv.FormatBool(e.DetectionSucceeded),
	}
}

func decodeRow(cols map[string]int, row []string) (*entities.AuditEntry, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	ts, err := parseTimestamp(get(colTimestamp))
	if err != nil {
		return nil, err
	}

	var m entities.Measurements
	for _, f := range []struct {
		col string
		dst *float64
	}{
		{colLength, &m.Length},
		{colWidth, &m.Width},
		{colDepth, &m.Depth},
		{colArea, &m.Area},
		{colVolume, &m.Volume},
	} {
		if *f.dst, err = parseFloat(get(f.col)); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", f.col, err)
		}
	}

	detected := false
	if v := get(colDetectionSucceeded); v != "" {
		if detected, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", colDetectionSucceeded, err)
		}
	}

	ref := get(colImageRef)
	if ref == "" {
		ref = get(colImageURL)
	}

	return &entities.AuditEntry{
		ID:                 get(colID),
		Timestamp:          ts,
		PatientID:          get(colPatientID),
		PatientName:        get(colPatientName),
		DoctorID:           get(colDoctorID),
		Measurements:       m,
		Report:             get(colDiagnosis),
		ImageRef:           ref,
		DetectionSucceeded: detected,
	}, nil
}

func parseTimestamp(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(legacyTimestampLayout, v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", v)
	}
	return t, nil
}

func parseFloat(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseFloat(v, 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
