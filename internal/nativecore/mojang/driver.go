package mojang

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/coppebars/rslauncher/core/state/launcher"
	"github.com/coppebars/rslauncher/internal/httpclient"
	"github.com/coppebars/rslauncher/internal/nativecore"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	DefaultManifestURL  = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"
	DefaultResourcesURL = "https://resources.download.minecraft.net/"
	DefaultWorkers      = 4
	DefaultChunkTick    = 50 * time.Millisecond
)

var (
	ErrVersionNotFound = errors.New("version not found")
	ErrNotPrepared     = errors.New("version is not prepared")
)

type Options struct {
	ManifestURL  string
	ResourcesURL string
	Workers      int
	ChunkTick    time.Duration
	// JavaPath is the java binary used to start the game.
	JavaPath string
	// Metadata fetches manifests and indexes; Downloads fetches files and should
	// not carry a request timeout.
	Metadata  *resty.Client
	Downloads *resty.Client
	Env       *Environment
}

type Driver struct {
	opts Options
	env  Environment
}

var _ nativecore.Driver = &Driver{}

func NewDriver(opts Options) *Driver {
	if opts.ManifestURL == "" {
		opts.ManifestURL = DefaultManifestURL
	}
	if opts.ResourcesURL == "" {
		opts.ResourcesURL = DefaultResourcesURL
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.ChunkTick <= 0 {
		opts.ChunkTick = DefaultChunkTick
	}
	if opts.JavaPath == "" {
		opts.JavaPath = DefaultJavaBinary
	}
	if opts.Metadata == nil {
		opts.Metadata = httpclient.New(httpclient.DefaultOptions())
	}
	if opts.Downloads == nil {
		dopts := httpclient.DefaultOptions()
		dopts.Timeout = 0
		opts.Downloads = httpclient.New(dopts)
	}

	env := CurrentEnvironment()
	if opts.Env != nil {
		env = *opts.Env
	}
	return &Driver{opts: opts, env: env}
}

func (d *Driver) Type() launcher.Provider {
	return launcher.ProviderMojang
}

func (d *Driver) getJSON(ctx context.Context, url string, dest interface{}) error {
	resp, err := d.opts.Metadata.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return err
	}
	if err := httpclient.CheckResponse(resp); err != nil {
		return err
	}
	// mirrors do not always send a json content type
	return json.Unmarshal(resp.Body(), dest)
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("malformed manifest %s: %w", path, err)
	}
	return &m, nil
}

// fetchManifest downloads the manifest of a published version and stores it in the tree.
func (d *Driver) fetchManifest(ctx context.Context, tree layout, id string) (*Manifest, error) {
	var index VersionManifest
	if err := d.getJSON(ctx, d.opts.ManifestURL, &index); err != nil {
		return nil, fmt.Errorf("error fetching version manifest: %w", err)
	}
	entry, ok := index.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, id)
	}

	resp, err := d.opts.Metadata.R().SetContext(ctx).Get(entry.URL)
	if err != nil {
		return nil, err
	}
	if err := httpclient.CheckResponse(resp); err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(resp.Body(), &m); err != nil {
		return nil, fmt.Errorf("malformed manifest for %s: %w", id, err)
	}

	path := tree.manifest(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, resp.Body(), 0o644); err != nil {
		return nil, err
	}
	return &m, nil
}

// resolve loads the manifest of id and its ancestors. Missing manifests are fetched
// when fetch is set.
func (d *Driver) resolve(ctx context.Context, tree layout, id string, fetch bool) (*Manifest, error) {
	seen := make(map[string]bool)
	var load func(id string) (*Manifest, error)
	load = func(id string) (*Manifest, error) {
		if seen[id] {
			return nil, fmt.Errorf("manifest %s inherits from itself", id)
		}
		seen[id] = true

		m, err := readManifest(tree.manifest(id))
		if errors.Is(err, fs.ErrNotExist) {
			if !fetch {
				return nil, fmt.Errorf("%w: %s", ErrNotPrepared, id)
			}
			m, err = d.fetchManifest(ctx, tree, id)
		}
		if err != nil {
			return nil, err
		}

		if m.InheritsFrom == "" {
			return m, nil
		}
		parent, err := load(m.InheritsFrom)
		if err != nil {
			return nil, err
		}
		return m.Merge(parent), nil
	}
	return load(id)
}

// Prepare places the client, libraries, natives and assets of a version into the tree.
func (d *Driver) Prepare(ctx context.Context, req *nativecore.PrepareRequest, events nativecore.Emitter) error {
	tree := layout{root: req.Root}
	started := time.Now()

	emit := func(e *nativecore.PrepareEvent) {
		e.UID = req.UID
		events.Emit(nativecore.ChannelPrepare, e)
	}

	m, err := d.resolve(ctx, tree, req.ID, true)
	if err != nil {
		return err
	}

	p, err := buildPlan(m, tree, d.env)
	if err != nil {
		return err
	}

	dl := newDownloader(d.opts.Downloads, d.opts.Workers, d.opts.ChunkTick, emit)
	items := p.items

	if m.AssetIndex != nil {
		// the index itself is needed to know the objects
		quiet := newDownloader(d.opts.Downloads, 1, d.opts.ChunkTick, func(*nativecore.PrepareEvent) {})
		indexItem := items[len(items)-1]
		if err := quiet.download(ctx, indexItem); err != nil {
			return fmt.Errorf("error fetching asset index: %w", err)
		}

		data, err := os.ReadFile(indexItem.Path)
		if err != nil {
			return err
		}
		var index AssetIndex
		if err := json.Unmarshal(data, &index); err != nil {
			return fmt.Errorf("malformed asset index %s: %w", m.AssetIndex.ID, err)
		}
		objects, err := assetItems(&index, tree, d.opts.ResourcesURL)
		if err != nil {
			return err
		}
		items = append(items, objects...)
	}

	if err := dl.downloadAll(ctx, items); err != nil {
		return err
	}

	if err := extractNatives(p.natives, tree.natives(m.ID)); err != nil {
		return fmt.Errorf("error extracting natives: %w", err)
	}

	log.Info().Msgf("Prepared %s in %s (%d files)", req.ID, time.Since(started).Round(time.Millisecond), len(items))
	return nil
}
