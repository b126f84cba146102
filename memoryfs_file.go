package layerfs

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

// memFile is the File handle returned by MemoryFS.OpenBinary. It wraps
// the node's shared byte buffer and does not free it on Close: the
// buffer is owned by the node and outlives any single open.
type memFile struct {
	mu       sync.Mutex
	node     *memNode
	buf      *memBuffer
	off      int64
	readable bool
	writable bool
	closed   bool
	path     string
}

func (f *memFile) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, New("read", f.path, EINVAL)
	}
	if !f.readable {
		return 0, New("read", f.path, EACCES)
	}
	n, err := f.buf.readAt(p, f.off)
	f.off += int64(n)
	return n, err
}

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, New("read", f.path, EINVAL)
	}
	if !f.readable {
		return 0, New("read", f.path, EACCES)
	}
	return f.buf.readAt(p, off)
}

func (f *memFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, New("write", f.path, EINVAL)
	}
	if !f.writable {
		return 0, New("write", f.path, EACCES)
	}
	n, err := f.buf.writeAt(p, f.off)
	f.off += int64(n)
	f.node.mtime = nowFunc()
	return n, err
}

func (f *memFile) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, New("write", f.path, EINVAL)
	}
	if !f.writable {
		return 0, New("write", f.path, EACCES)
	}
	n, err := f.buf.writeAt(p, off)
	f.node.mtime = nowFunc()
	return n, err
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, New("seek", f.path, EINVAL)
	}
	switch whence {
	case io.SeekStart:
		f.off = offset
	case io.SeekCurrent:
		f.off += offset
	case io.SeekEnd:
		f.off = f.buf.len() + offset
	default:
		return 0, New("seek", f.path, EINVAL)
	}
	if f.off < 0 {
		f.off = 0
	}
	return f.off, nil
}

func (f *memFile) Truncate(size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return New("truncate", f.path, EINVAL)
	}
	if !f.writable {
		return New("truncate", f.path, EACCES)
	}
	f.buf.truncate(size)
	f.node.mtime = nowFunc()
	return nil
}

func (f *memFile) Stat() (Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return Stat{}, New("stat", f.path, EINVAL)
	}
	return f.node.stat(), nil
}

func (f *memFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// memTextFile decodes/encodes a memFile as UTF-8 text. Only "utf-8" (the
// default) is supported; see FileSystem.OpenText.
type memTextFile struct {
	bin *memFile
	r   *bufio.Reader
}

func newTextFile(bin *memFile) *memTextFile {
	return &memTextFile{bin: bin, r: bufio.NewReader(bin)}
}

func (t *memTextFile) Read(p []byte) (int, error) { return t.r.Read(p) }

func (t *memTextFile) Write(p []byte) (int, error) { return t.bin.Write(p) }

func (t *memTextFile) Close() error { return t.bin.Close() }

// ReadLine reads a single line, stripping its trailing newline, the way
// the original facade's read_one_line/readlines strip the terminating
// "\n".
func (t *memTextFile) ReadLine() (string, error) {
	line, err := t.r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

var _ io.ReadWriteCloser = (*memTextFile)(nil)
