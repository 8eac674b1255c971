// Package localfs retains conversion outputs in a directory tree.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"fileconv/internal/ports"
)

// LocalFS stores each object at <root>/<key>.
type LocalFS struct {
	root string
}

// New creates root if needed.
func New(root string) (*LocalFS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalFS{root: abs}, nil
}

func (l *LocalFS) Provider() string { return "localfs" }

// resolve maps key under root, rejecting keys that would leave it.
func (l *LocalFS) resolve(key string) (string, error) {
	if key == "" {
		return "", errors.New("localfs: object key is required")
	}
	p := filepath.Join(l.root, filepath.FromSlash(key))
	if !strings.HasPrefix(p, l.root+string(filepath.Separator)) {
		return "", fmt.Errorf("localfs: object key escapes storage root: %q", key)
	}
	return p, nil
}

// PutObject writes body next to its final name and renames it into place,
// so a concurrent GetObject never reads a partial file.
func (l *LocalFS) PutObject(ctx context.Context, info ports.ObjectInfo, body io.Reader) (ports.ObjectInfo, error) {
	dst, err := l.resolve(info.Key)
	if err != nil {
		return ports.ObjectInfo{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return ports.ObjectInfo{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.part")
	if err != nil {
		return ports.ObjectInfo{}, err
	}
	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), dst)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return ports.ObjectInfo{}, err
	}

	return ports.ObjectInfo{Key: info.Key, ContentType: info.ContentType, Size: n}, nil
}

func (l *LocalFS) GetObject(ctx context.Context, key string) (io.ReadCloser, ports.ObjectInfo, error) {
	p, err := l.resolve(key)
	if err != nil {
		return nil, ports.ObjectInfo{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, ports.ObjectInfo{}, err
	}

	info := ports.ObjectInfo{Key: key, ContentType: mime.TypeByExtension(filepath.Ext(p))}
	if st, err := f.Stat(); err == nil {
		info.Size = st.Size()
	}
	if info.ContentType == "" {
		head := make([]byte, 512)
		n, _ := io.ReadFull(f, head)
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return nil, ports.ObjectInfo{}, err
		}
		info.ContentType = http.DetectContentType(head[:n])
	}
	return f, info, nil
}

// DeleteObject removes the object and its per-job directory once empty.
func (l *LocalFS) DeleteObject(ctx context.Context, key string) error {
	p, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return err
	}
	if dir := filepath.Dir(p); dir != l.root {
		_ = os.Remove(dir)
	}
	return nil
}
