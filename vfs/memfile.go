package vfs

import (
	"coreos/defs"
	"coreos/synch"
)

// MemFile is an in-memory regular file vnode, standing in for a real
// on-disk file (spec.md's VFS and on-disk filesystems are out of scope;
// this gives file-descriptor and dup2/read/write tests something to
// operate on besides the console).
type MemFile struct {
	lk   synch.SleepLock
	data []byte
}

// NewMemFile returns an empty in-memory file.
func NewMemFile() *MemFile { return &MemFile{} }

func (f *MemFile) ReadAt(t *synch.Thread, off int64, buf []byte) (int, defs.Err_t) {
	f.lk.Acquire(t)
	defer f.lk.Release(t)
	if off >= int64(len(f.data)) {
		return 0, 0
	}
	n := copy(buf, f.data[off:])
	return n, 0
}

func (f *MemFile) WriteAt(t *synch.Thread, off int64, buf []byte) (int, defs.Err_t) {
	f.lk.Acquire(t)
	defer f.lk.Release(t)
	end := off + int64(len(buf))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	n := copy(f.data[off:end], buf)
	return n, 0
}

func (f *MemFile) Size(t *synch.Thread) int64 {
	f.lk.Acquire(t)
	defer f.lk.Release(t)
	return int64(len(f.data))
}

func (f *MemFile) Seekable() bool { return true }

func (f *MemFile) Close(t *synch.Thread) defs.Err_t { return 0 }
