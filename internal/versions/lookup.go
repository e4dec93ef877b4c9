package versions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coppebars/rslauncher/core/state/launcher"
	"github.com/coppebars/rslauncher/internal/httpclient"
	"github.com/coppebars/rslauncher/internal/nativecore"
	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
)

const DefaultManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

// LookupError is a failure of one version source.
type LookupError struct {
	Provider launcher.Provider
	Err      error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s version lookup failed: %s", e.Provider, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Scanner lists the versions installed in a game tree.
type Scanner interface {
	LookupVersions(ctx context.Context, root string) ([]nativecore.VersionOverview, error)
}

type RootPathProvider interface {
	RootPath() (string, error)
}

// Result holds the versions of each source. A source that failed has a nil list and
// its error set.
type Result struct {
	Local     []launcher.Version `json:"local"`
	Mojang    []launcher.Version `json:"mojang"`
	LocalErr  error              `json:"-"`
	MojangErr error              `json:"-"`
}

type Service struct {
	client      *resty.Client
	manifestURL string
	scanner     Scanner
	settings    RootPathProvider
}

func NewService(client *resty.Client, manifestURL string, scanner Scanner, settings RootPathProvider) *Service {
	if client == nil {
		client = httpclient.New(httpclient.DefaultOptions())
	}
	if manifestURL == "" {
		manifestURL = DefaultManifestURL
	}
	return &Service{
		client:      client,
		manifestURL: manifestURL,
		scanner:     scanner,
		settings:    settings,
	}
}

// Lookup queries both sources concurrently and waits for both. The returned error
// joins the per-source errors; lists of sources that succeeded are usable either way.
func (s *Service) Lookup(ctx context.Context) (*Result, error) {
	res := &Result{}

	// no shared cancellation, a failing source must not abort the other one
	var g errgroup.Group
	g.Go(func() error {
		res.Mojang, res.MojangErr = s.LookupMojang(ctx)
		return nil
	})
	g.Go(func() error {
		res.Local, res.LocalErr = s.LookupLocal(ctx)
		return nil
	})
	g.Wait()

	return res, errors.Join(res.MojangErr, res.LocalErr)
}

type manifest struct {
	Versions []struct {
		ID string `json:"id"`
	} `json:"versions"`
}

func (s *Service) LookupMojang(ctx context.Context) ([]launcher.Version, error) {
	var m manifest
	resp, err := s.client.R().
		SetContext(ctx).
		Get(s.manifestURL)
	if err == nil {
		err = httpclient.CheckResponse(resp)
	}
	if err == nil {
		err = json.Unmarshal(resp.Body(), &m)
	}
	if err != nil {
		return nil, &LookupError{Provider: launcher.ProviderMojang, Err: err}
	}

	res := make([]launcher.Version, 0, len(m.Versions))
	for _, v := range m.Versions {
		res = append(res, launcher.Version{
			Provider: launcher.ProviderMojang,
			Vid:      v.ID,
			Mcv:      v.ID,
		})
	}
	return res, nil
}

func (s *Service) LookupLocal(ctx context.Context) ([]launcher.Version, error) {
	root, err := s.settings.RootPath()
	if err != nil {
		return nil, &LookupError{Provider: launcher.ProviderLocal, Err: err}
	}

	found, err := s.scanner.LookupVersions(ctx, root)
	if err != nil {
		return nil, &LookupError{Provider: launcher.ProviderLocal, Err: err}
	}

	res := make([]launcher.Version, 0, len(found))
	for _, v := range found {
		res = append(res, launcher.Version{
			Provider: launcher.ProviderLocal,
			Vid:      v.ID,
		})
	}
	return res, nil
}
