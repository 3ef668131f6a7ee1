package progress

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

func (s *implStore) Load(path string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[path]
	if !ok {
		return 0, nil
	}

	size, err := s.transcriptSize(rec.Transcript)
	if err != nil {
		return 0, err
	}

	switch {
	case size > rec.TranscriptBytes:
		s.logger.Warn(context.Background(), "Transcript %s has %d uncommitted bytes, truncating",
			rec.Transcript, size-rec.TranscriptBytes)
		if err := os.Truncate(s.transcriptPath(rec.Transcript), rec.TranscriptBytes); err != nil {
			return 0, fmt.Errorf("truncate transcript: %w", err)
		}
	case size < rec.TranscriptBytes:
		s.logger.Warn(context.Background(), "Transcript %s is shorter than committed (%d < %d), restarting %s",
			rec.Transcript, size, rec.TranscriptBytes, path)
		if err := s.resetLocked(path); err != nil {
			return 0, err
		}
		return 0, nil
	}

	return rec.Offset, nil
}

func (s *implStore) Save(path string, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(path, offset)
}

func (s *implStore) AppendTranscript(path, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(path, text)
}

func (s *implStore) Commit(path, text string, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.appendLocked(path, text); err != nil {
		return err
	}
	return s.saveLocked(path, offset)
}

func (s *implStore) ReadTranscript(path string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, limit := s.legacyName(path), int64(-1)
	if rec, ok := s.records[path]; ok {
		name, limit = rec.Transcript, rec.TranscriptBytes
	}
	if name == "" {
		return "", false, nil
	}

	f, err := os.Open(s.transcriptPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if limit >= 0 {
		r = io.LimitReader(f, limit)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", false, fmt.Errorf("read transcript: %w", err)
	}
	return string(data), true, nil
}

func (s *implStore) MarkComplete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.recordFor(path)
	if err != nil {
		return err
	}
	size, err := s.transcriptSize(rec.Transcript)
	if err != nil {
		return err
	}

	prev := *rec
	rec.Complete = true
	rec.TranscriptBytes = size
	if err := s.persistLocked(); err != nil {
		*rec = prev
		return err
	}
	return nil
}

func (s *implStore) Completed(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[path]; ok {
		if !rec.Complete {
			return false, nil
		}
		// A finished transcript that was cut short on disk no longer counts
		size, err := s.transcriptSize(rec.Transcript)
		if err != nil {
			return false, err
		}
		return size >= rec.TranscriptBytes, nil
	}

	// A transcript without any progress record was produced outside this
	// store's bookkeeping; treat it as finished.
	name := s.legacyName(path)
	if name == "" {
		return false, nil
	}
	size, err := s.transcriptSize(name)
	if err != nil {
		return false, err
	}
	return size > 0, nil
}

func (s *implStore) Reset(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked(path)
}

func (s *implStore) TranscriptName(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[path]; ok {
		return rec.Transcript
	}
	if name := s.legacyName(path); name != "" {
		return name
	}
	return hashedName(path)
}

func (s *implStore) saveLocked(path string, offset int64) error {
	if offset < 0 {
		return fmt.Errorf("save %s: negative offset %d", path, offset)
	}

	rec, err := s.recordFor(path)
	if err != nil {
		return err
	}
	if offset < rec.Offset {
		return fmt.Errorf("save %s: offset %d is behind committed offset %d", path, offset, rec.Offset)
	}

	size, err := s.transcriptSize(rec.Transcript)
	if err != nil {
		return err
	}

	prev := *rec
	rec.Offset = offset
	rec.TranscriptBytes = size
	if err := s.persistLocked(); err != nil {
		*rec = prev
		return err
	}
	return nil
}

func (s *implStore) appendLocked(path, text string) error {
	if text == "" {
		return nil
	}

	rec, err := s.recordFor(path)
	if err != nil {
		return err
	}

	name := s.transcriptPath(rec.Transcript)
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}

	_, werr := f.WriteString(text)
	if werr == nil {
		werr = f.Sync()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		// Drop whatever part of the chunk made it to disk
		if terr := os.Truncate(name, rec.TranscriptBytes); terr != nil {
			s.logger.Error(context.Background(), "Failed to roll back transcript %s: %v", name, terr)
		}
		return fmt.Errorf("append transcript: %w", werr)
	}
	return nil
}

func (s *implStore) resetLocked(path string) error {
	name := s.legacyName(path)
	rec, ok := s.records[path]
	if ok {
		name = rec.Transcript
	}

	if name != "" {
		if err := os.Remove(s.transcriptPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove transcript: %w", err)
		}
	}
	if !ok {
		return nil
	}

	delete(s.records, path)
	if err := s.persistLocked(); err != nil {
		s.records[path] = rec
		return err
	}
	return nil
}

// recordFor returns the record for path, creating and persisting it first so
// that a transcript file never exists without a record that bounds it.
func (s *implStore) recordFor(path string) (*record, error) {
	if rec, ok := s.records[path]; ok {
		return rec, nil
	}

	name := baseName(path)
	if s.nameTaken(name, path) {
		name = hashedName(path)
	}

	size, err := s.transcriptSize(name)
	if err != nil {
		return nil, err
	}
	if size > 0 {
		// Leftover from an earlier, unrecorded run. Start clean.
		if err := os.Remove(s.transcriptPath(name)); err != nil {
			return nil, fmt.Errorf("remove stale transcript: %w", err)
		}
	}

	rec := &record{Transcript: name}
	s.records[path] = rec
	if err := s.persistLocked(); err != nil {
		delete(s.records, path)
		return nil, err
	}
	return rec, nil
}

// legacyName is the transcript name path would get, or "" if that name
// already belongs to another file's record.
func (s *implStore) legacyName(path string) string {
	name := baseName(path)
	if s.nameTaken(name, path) {
		return ""
	}
	return name
}

func (s *implStore) nameTaken(name, path string) bool {
	for p, rec := range s.records {
		if p != path && rec.Transcript == name {
			return true
		}
	}
	return false
}

func (s *implStore) transcriptPath(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *implStore) transcriptSize(name string) (int64, error) {
	info, err := os.Stat(s.transcriptPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stat transcript: %w", err)
	}
	return info.Size(), nil
}

func (s *implStore) persistLocked() error {
	data, err := json.MarshalIndent(fileFormat{Version: formatVersion, Files: s.records}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, progressFile), data); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	return nil
}

// writeFileAtomic replaces name with data via a synced temp file and rename
func writeFileAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(name), filepath.Base(name)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, name); err != nil {
		os.Remove(tmpName)
		return err
	}

	// Best effort: make the rename itself durable
	if dir, err := os.Open(filepath.Dir(name)); err == nil {
		dir.Sync()
		dir.Close()
	}
	return nil
}

func baseName(path string) string {
	return filepath.Base(path) + TranscriptSuffix
}

func hashedName(path string) string {
	sum := sha1.Sum([]byte(path))
	return filepath.Base(path) + "-" + hex.EncodeToString(sum[:4]) + TranscriptSuffix
}
