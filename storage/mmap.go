// Package storage provides the flat, memory-mapped byte stores backing the
// automaton row and column. A store is a headerless file: byte offset k holds
// cell k. Stores grow by capacity doubling and provide no synchronization of
// their own; concurrent access is safe only across disjoint ranges.
package storage

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// initialSize is the smallest file a fresh store is truncated to. Growth
// doubles from here, so early rounds never remap.
const initialSize = 1 << 12

// MappedFile is a growable, file-backed, byte-addressable buffer.
type MappedFile struct {
	path string
	file *os.File
	data mmap.MMap
	size int64
}

// OpenMappedFile opens or creates the store at path and maps it read-write.
// A fresh or undersized file is extended to the initial size; its new bytes
// read as zero.
func OpenMappedFile(path string) (*MappedFile, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %q: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat store %q: %w", path, err)
	}

	size := info.Size()
	if size < initialSize {
		size = initialSize
		if err := file.Truncate(size); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to size store %q: %w", path, err)
		}
	}

	data, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to map store %q: %w", path, err)
	}

	return &MappedFile{
		path: path,
		file: file,
		data: data,
		size: size,
	}, nil
}

// Len returns the current logical length of the store.
func (m *MappedFile) Len() int64 { return m.size }

// At returns the byte at offset i. i must be below Len.
func (m *MappedFile) At(i int64) byte { return m.data[i] }

// SetAt stores b at offset i, growing the store if i is out of range.
func (m *MappedFile) SetAt(i int64, b byte) error {
	if i >= m.size {
		if err := m.Grow(i + 1); err != nil {
			return err
		}
	}
	m.data[i] = b
	return nil
}

// Range returns a direct view of [from, to). The slice aliases the mapping
// and is invalidated by the next Grow.
func (m *MappedFile) Range(from, to int64) []byte {
	return m.data[from:to]
}

// WriteAt copies p into the store at off, growing the store first if the
// write extends past the current length.
func (m *MappedFile) WriteAt(p []byte, off int64) error {
	if end := off + int64(len(p)); end > m.size {
		if err := m.Grow(end); err != nil {
			return err
		}
	}
	copy(m.data[off:], p)
	return nil
}

// Grow extends the store so that its length is at least n, doubling the
// capacity until it fits. All bytes below the previous length are preserved;
// new bytes read as zero. A no-op when the store is already large enough.
func (m *MappedFile) Grow(n int64) error {
	if n <= m.size {
		return nil
	}

	newSize := m.size
	for newSize < n {
		newSize *= 2
	}

	if err := m.data.Flush(); err != nil {
		return fmt.Errorf("failed to flush store %q before grow: %w", m.path, err)
	}
	if err := m.data.Unmap(); err != nil {
		return fmt.Errorf("failed to unmap store %q: %w", m.path, err)
	}
	if err := m.file.Truncate(newSize); err != nil {
		return fmt.Errorf("failed to grow store %q to %d: %w", m.path, newSize, err)
	}

	data, err := mmap.Map(m.file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to remap store %q: %w", m.path, err)
	}

	m.data = data
	m.size = newSize

	return nil
}

// Flush durably persists the mapped contents to the backing file.
func (m *MappedFile) Flush() error {
	if err := m.data.Flush(); err != nil {
		return fmt.Errorf("failed to flush store %q: %w", m.path, err)
	}
	return nil
}

// Close flushes, unmaps, and closes the backing file.
func (m *MappedFile) Close() error {
	if err := m.data.Flush(); err != nil {
		m.data.Unmap()
		m.file.Close()
		return err
	}
	if err := m.data.Unmap(); err != nil {
		m.file.Close()
		return err
	}
	return m.file.Close()
}
