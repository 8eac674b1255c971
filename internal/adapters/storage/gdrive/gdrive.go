// Package gdrive retains conversion outputs in a Google Drive folder.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"fileconv/internal/ports"
)

// Client stores each output as a Drive file named after the last element of
// its object key. The returned key is the Drive file id.
type Client struct {
	srv      *drive.Service
	folderID string
}

func NewClient(srv *drive.Service, folderID string) *Client {
	return &Client{srv: srv, folderID: folderID}
}

func (c *Client) Provider() string { return "gdrive" }

func (c *Client) PutObject(ctx context.Context, info ports.ObjectInfo, body io.Reader) (ports.ObjectInfo, error) {
	if info.Key == "" {
		return ports.ObjectInfo{}, errors.New("gdrive: object key is required")
	}

	file := &drive.File{
		Name:        path.Base(info.Key),
		Description: info.Key,
		MimeType:    info.ContentType,
	}
	if c.folderID != "" {
		file.Parents = []string{c.folderID}
	}

	var opts []googleapi.MediaOption
	if info.ContentType != "" {
		opts = append(opts, googleapi.ContentType(info.ContentType))
	}

	created, err := c.srv.Files.Create(file).
		Media(body, opts...).
		Fields("id", "size", "mimeType").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return ports.ObjectInfo{}, fmt.Errorf("gdrive upload %s: %w", info.Key, err)
	}

	out := ports.ObjectInfo{Key: created.Id, ContentType: info.ContentType, Size: info.Size}
	if created.Size > 0 {
		out.Size = created.Size
	}
	if out.ContentType == "" {
		out.ContentType = created.MimeType
	}
	return out, nil
}

func (c *Client) GetObject(ctx context.Context, key string) (io.ReadCloser, ports.ObjectInfo, error) {
	resp, err := c.srv.Files.Get(key).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return nil, ports.ObjectInfo{}, notExist(err)
	}
	return resp.Body, ports.ObjectInfo{
		Key:         key,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}, nil
}

func (c *Client) DeleteObject(ctx context.Context, key string) error {
	err := c.srv.Files.Delete(key).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	return notExist(err)
}

// notExist maps Drive 404s onto os.ErrNotExist so callers treat both
// providers alike.
func notExist(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %s", os.ErrNotExist, gerr.Message)
	}
	return err
}
