package lira

import (
	"os"

	"golang.org/x/sys/unix"
)

// MappedFile is a file mapped into memory. Close must be called
// exactly once on every path; further calls are no-ops.
type MappedFile struct {
	file *os.File
	data []byte
}

// OpenMappedFile maps the whole file at path. A writable mapping is
// shared, so changes reach the file.
func OpenMappedFile(path string, writable bool) (*MappedFile, error) {
	flag, prot := os.O_RDONLY, unix.PROT_READ
	if writable {
		flag, prot = os.O_RDWR, unix.PROT_READ|unix.PROT_WRITE
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, ioError(err, "opening %q", path)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ioError(err, "stat %q", path)
	}
	m := &MappedFile{file: f}
	// mmap rejects zero-length mappings.
	if stat.Size() > 0 {
		m.data, err = unix.Mmap(int(f.Fd()), 0, int(stat.Size()), prot, unix.MAP_SHARED)
		if err != nil {
			f.Close()
			return nil, ioError(err, "mapping %q", path)
		}
	}
	return m, nil
}

// Bytes returns the mapped contents. They are invalid after Close.
func (m *MappedFile) Bytes() []byte { return m.data }

// Name returns the path the file was opened with.
func (m *MappedFile) Name() string { return m.file.Name() }

func (m *MappedFile) Close() error {
	if m.file == nil {
		return nil
	}
	var err1 error
	if m.data != nil {
		err1 = unix.Munmap(m.data)
	}
	err2 := m.file.Close()
	name := m.file.Name()
	m.file, m.data = nil, nil
	if err1 != nil {
		return ioError(err1, "unmapping %q", name)
	}
	if err2 != nil {
		return ioError(err2, "closing %q", name)
	}
	return nil
}
