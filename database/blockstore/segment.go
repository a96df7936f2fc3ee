// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockstore implements a segmented append-only file layout:
// fixed-size (up to 128 MiB) segments named by a monotonically increasing
// id, each record framed as [magic:u32][length:u32][payload]. This is the
// same "flat file + pointer" shape real database/ffldb-style drivers use
// for block storage, written fresh in that idiom.
package blockstore

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// MaxSegmentSize is the size threshold past which a write rolls over to a
// new segment file.
const MaxSegmentSize = 128 * 1024 * 1024

// recordHeaderSize is magic(4) + length(4).
const recordHeaderSize = 8

// Pointer locates a single record within a Store's segments.
type Pointer struct {
	Segment uint32
	Offset  uint64
}

// String renders p for logging.
func (p Pointer) String() string {
	return fmt.Sprintf("%d:%d", p.Segment, p.Offset)
}

// ErrCorruption is returned by Retrieve when a record's magic does not
// match, indicating on-disk damage or a pointer into the wrong arena.
type ErrCorruption struct {
	Pointer Pointer
}

func (e *ErrCorruption) Error() string {
	return fmt.Sprintf("blockstore: corrupt record at %s: magic mismatch", e.Pointer)
}

// Store is one arena of segmented storage. Two independent arenas exist in
// practice — block storage and revert storage — and callers construct one
// Store per arena, each with its own directory and magic.
type Store struct {
	dir   string
	magic uint32

	mu      sync.Mutex
	segment uint32
	file    *os.File
	size    uint64
}

// Open opens or creates a Store rooted at dir, starting from latestSegment
// (persisted by the caller in the metadata store under the well-known "l"
// key). magic distinguishes this arena's records from any other arena
// sharing the same physical disk, so a stray pointer can never be silently
// retrieved from the wrong one.
func Open(dir string, magic uint32, latestSegment uint32) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blockstore: mkdir %s: %w", dir, err)
	}
	s := &Store{dir: dir, magic: magic, segment: latestSegment}
	if err := s.openSegmentForAppend(latestSegment); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) segmentPath(id uint32) string {
	return filepath.Join(s.dir, fmt.Sprintf("block%05d.bin", id))
}

func (s *Store) openSegmentForAppend(id uint32) error {
	path := s.segmentPath(id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("blockstore: open segment %d: %w", id, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("blockstore: stat segment %d: %w", id, err)
	}
	s.file = f
	s.segment = id
	s.size = uint64(info.Size())
	return nil
}

// LatestSegment returns the id of the segment currently being appended to.
func (s *Store) LatestSegment() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.segment
}

// Store appends payload as a new record, returning a Pointer to it. Either
// the full framed record is durably visible after Store returns, or (on
// error) none of it is: a short write is truncated back out before Store
// reports failure.
func (s *Store) Store(payload []byte) (Pointer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.size+uint64(recordHeaderSize+len(payload)) > MaxSegmentSize {
		if err := s.rollover(); err != nil {
			return Pointer{}, err
		}
	}

	offset := s.size
	frame := make([]byte, recordHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(frame[0:4], s.magic)
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[recordHeaderSize:], payload)

	n, err := s.file.Write(frame)
	if err != nil {
		// Truncate back to the last known-good offset so a half-written
		// record never becomes visible.
		_ = s.file.Truncate(int64(offset))
		return Pointer{}, fmt.Errorf("blockstore: write: %w", err)
	}
	if n != len(frame) {
		_ = s.file.Truncate(int64(offset))
		return Pointer{}, fmt.Errorf("blockstore: short write (%d of %d bytes)", n, len(frame))
	}
	if err := s.file.Sync(); err != nil {
		_ = s.file.Truncate(int64(offset))
		return Pointer{}, fmt.Errorf("blockstore: fsync: %w", err)
	}
	s.size += uint64(n)
	return Pointer{Segment: s.segment, Offset: offset}, nil
}

// Sync fsyncs the current segment file. Store already fsyncs each record
// before returning its Pointer, and rollover fsyncs the sealed segment.
func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Sync()
}

func (s *Store) rollover() error {
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("blockstore: fsync before rollover: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("blockstore: close segment %d: %w", s.segment, err)
	}
	return s.openSegmentForAppend(s.segment + 1)
}

// Retrieve reads back the payload stored at p.
func (s *Store) Retrieve(p Pointer) ([]byte, error) {
	path := s.segmentPath(p.Segment)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("blockstore: open segment %d: %w", p.Segment, err)
	}
	defer f.Close()

	header := make([]byte, recordHeaderSize)
	if _, err := f.ReadAt(header, int64(p.Offset)); err != nil {
		return nil, fmt.Errorf("blockstore: read header at %s: %w", p, err)
	}
	magic := binary.LittleEndian.Uint32(header[0:4])
	if magic != s.magic {
		return nil, &ErrCorruption{Pointer: p}
	}
	length := binary.LittleEndian.Uint32(header[4:8])

	payload := make([]byte, length)
	if _, err := f.ReadAt(payload, int64(p.Offset)+recordHeaderSize); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("blockstore: truncated record at %s", p)
		}
		return nil, fmt.Errorf("blockstore: read payload at %s: %w", p, err)
	}
	return payload, nil
}

// Close closes the currently open segment file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
