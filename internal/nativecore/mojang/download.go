package mojang

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/coppebars/rslauncher/internal/httpclient"
	"github.com/coppebars/rslauncher/internal/nativecore"
	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var ErrIntegrity = errors.New("checksum mismatch")

// fileHasSHA1 reports whether the file at path exists with the given checksum.
func fileHasSHA1(path, sum string) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, err
	}
	return hex.EncodeToString(h.Sum(nil)) == sum, nil
}

type downloader struct {
	client  *resty.Client
	workers int
	emit    func(*nativecore.PrepareEvent)
	chunks  *rate.Sometimes
}

func newDownloader(client *resty.Client, workers int, chunkInterval time.Duration, emit func(*nativecore.PrepareEvent)) *downloader {
	if workers < 1 {
		workers = 1
	}
	return &downloader{
		client:  client,
		workers: workers,
		emit:    emit,
		chunks:  &rate.Sometimes{Interval: chunkInterval},
	}
}

// downloadAll places every item, at most workers at a time. The first failure cancels
// the remaining downloads.
func (d *downloader) downloadAll(ctx context.Context, items []*nativecore.Item) error {
	total := len(items)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			d.emit(&nativecore.PrepareEvent{Start: &nativecore.StartPayload{Item: item}})

			if err := d.download(gctx, item); err != nil {
				d.emit(&nativecore.PrepareEvent{Error: &nativecore.ErrorPayload{Item: item, Error: err.Error()}})
				return fmt.Errorf("error downloading %s: %w", item.URL, err)
			}

			progress := done.Add(1)
			d.emit(&nativecore.PrepareEvent{Finish: &nativecore.FinishPayload{
				Item:     item,
				Progress: int(progress),
				Total:    total,
			}})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (d *downloader) download(ctx context.Context, item *nativecore.Item) error {
	if item.SHA1 != "" {
		ok, err := fileHasSHA1(item.Path, item.SHA1)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(item.URL)
	if err != nil {
		return err
	}
	body := resp.RawBody()
	defer body.Close()
	if err := httpclient.CheckResponse(resp); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(item.Path), 0o755); err != nil {
		return err
	}
	partial := item.Path + ".part"
	f, err := os.Create(partial)
	if err != nil {
		return err
	}

	total := resp.RawResponse.ContentLength
	if total <= 0 {
		total = item.Size
	}
	h := sha1.New()
	w := &progressWriter{d: d, path: item.Path, total: total, hash: h}

	_, err = io.Copy(io.MultiWriter(f, w), body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(partial)
		return err
	}

	if item.SHA1 != "" {
		if sum := hex.EncodeToString(h.Sum(nil)); sum != item.SHA1 {
			os.Remove(partial)
			return fmt.Errorf("%w: %s has %s, want %s", ErrIntegrity, item.Path, sum, item.SHA1)
		}
	}
	return os.Rename(partial, item.Path)
}

// progressWriter hashes the body and emits throttled chunk events.
type progressWriter struct {
	d        *downloader
	path     string
	total    int64
	progress int64
	hash     hash.Hash
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.hash.Write(p)
	w.progress += int64(len(p))
	w.d.chunks.Do(func() {
		w.d.emit(&nativecore.PrepareEvent{Chunk: &nativecore.ChunkPayload{
			Path:     w.path,
			Size:     len(p),
			Total:    w.total,
			Progress: w.progress,
		}})
	})
	return len(p), nil
}
