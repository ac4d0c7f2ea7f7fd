package store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// atomicWriteFile writes b to a unique temp file in dir and renames it over path, so
// concurrent readers never observe a partial file.
func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

// writeWithBackup keeps the previous file at path+".bak" while b is written, then
// removes the backup. The live file is replaced by a rename and never goes missing, so
// concurrent readers see either the old or the new document.
func writeWithBackup(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	bak := path + ".bak"
	hadPrev := false
	if _, err := os.Stat(path); err == nil {
		if err := backupFile(path, bak); err != nil {
			return err
		}
		hadPrev = true
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	err := atomicWriteFile(dir, filepath.Base(path)+".*.tmp", path, b, 0o644)
	if hadPrev {
		// On failure the rename never happened and path still holds the old bytes.
		_ = os.Remove(bak)
	}
	return err
}

// backupFile hard-links src to dst, copying when links are unsupported.
func backupFile(src, dst string) error {
	_ = os.Remove(dst)
	if err := os.Link(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// validName rejects names that would escape their parent directory, collide with the
// hidden state directory, or carry surrounding whitespace into a file name.
func validName(name string) bool {
	if name != strings.TrimSpace(name) {
		return false
	}
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
