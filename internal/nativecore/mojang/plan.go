package mojang

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/coppebars/rslauncher/internal/nativecore"
)

const DefaultMavenURL = "https://libraries.minecraft.net/"

// mavenPath converts group:artifact:version[:classifier] into a repository path.
func mavenPath(name string) (string, error) {
	parts := strings.Split(name, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return "", fmt.Errorf("invalid library name %q", name)
	}
	group, artifact, version := parts[0], parts[1], parts[2]
	ext := "jar"
	if i := strings.IndexByte(version, '@'); i >= 0 {
		version, ext = version[:i], version[i+1:]
	}

	file := artifact + "-" + version
	if len(parts) == 4 {
		classifier := parts[3]
		if i := strings.IndexByte(classifier, '@'); i >= 0 {
			classifier, ext = classifier[:i], classifier[i+1:]
		}
		file += "-" + classifier
	}
	file += "." + ext

	return path.Join(strings.ReplaceAll(group, ".", "/"), artifact, version, file), nil
}

// artifact returns the main jar of a library.
func (l *Library) artifact() (*Artifact, error) {
	if l.Downloads != nil && l.Downloads.Artifact != nil {
		a := *l.Downloads.Artifact
		if a.Path == "" {
			p, err := mavenPath(l.Name)
			if err != nil {
				return nil, err
			}
			a.Path = p
		}
		return &a, nil
	}

	// natives-only entries of old manifests have classifiers but no main artifact
	if l.Downloads != nil && len(l.Downloads.Classifiers) > 0 {
		return nil, nil
	}

	p, err := mavenPath(l.Name)
	if err != nil {
		return nil, err
	}
	base := l.URL
	if base == "" {
		base = DefaultMavenURL
	}
	return &Artifact{
		Path: p,
		URL:  strings.TrimSuffix(base, "/") + "/" + p,
	}, nil
}

func (l *Library) native(env Environment) (*Artifact, error) {
	if len(l.Natives) == 0 {
		return nil, nil
	}
	classifier, ok := nativeClassifier(l, env)
	if !ok {
		return nil, nil
	}
	if l.Downloads == nil {
		return nil, fmt.Errorf("library %s has no downloads for natives", l.Name)
	}
	a, ok := l.Downloads.Classifiers[classifier]
	if !ok {
		return nil, fmt.Errorf("library %s has no %s natives", l.Name, classifier)
	}
	return a, nil
}

// layout resolves paths inside a game tree.
type layout struct {
	root string
}

func (l layout) versionDir(id string) string {
	return filepath.Join(l.root, "versions", id)
}

func (l layout) manifest(id string) string {
	return filepath.Join(l.versionDir(id), id+".json")
}

func (l layout) clientJar(id string) string {
	return filepath.Join(l.versionDir(id), id+".jar")
}

func (l layout) natives(id string) string {
	return filepath.Join(l.versionDir(id), "natives")
}

func (l layout) library(p string) string {
	return filepath.Join(l.root, "libraries", filepath.FromSlash(p))
}

func (l layout) assets() string {
	return filepath.Join(l.root, "assets")
}

func (l layout) assetIndex(id string) string {
	return filepath.Join(l.assets(), "indexes", id+".json")
}

func (l layout) assetObject(hash string) string {
	return filepath.Join(l.assets(), "objects", hash[:2], hash)
}

var ErrUnsafePath = errors.New("path escapes the game directory")

var objectHashPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// within checks that p, built from manifest data, stays below base.
func within(base, p string) error {
	rel, err := filepath.Rel(base, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s", ErrUnsafePath, p)
	}
	return nil
}

// nativeJar is a downloaded natives archive waiting for extraction.
type nativeJar struct {
	path    string
	exclude []string
}

// plan lists the files a manifest needs, excluding asset objects, which are only
// known once the asset index has been fetched.
type plan struct {
	items   []*nativecore.Item
	natives []nativeJar
}

func buildPlan(m *Manifest, tree layout, env Environment) (*plan, error) {
	p := &plan{}

	if m.Downloads != nil && m.Downloads.Client != nil {
		c := m.Downloads.Client
		p.items = append(p.items, &nativecore.Item{
			URL:  c.URL,
			Path: tree.clientJar(m.Jar()),
			Size: c.Size,
			SHA1: c.SHA1,
		})
	}

	for i := range m.Libraries {
		lib := &m.Libraries[i]
		if !Allowed(lib.Rules, env) {
			continue
		}

		a, err := lib.artifact()
		if err != nil {
			return nil, err
		}
		if a != nil && a.URL != "" {
			p.items = append(p.items, &nativecore.Item{
				URL:  a.URL,
				Path: tree.library(a.Path),
				Size: a.Size,
				SHA1: a.SHA1,
			})
		}

		native, err := lib.native(env)
		if err != nil {
			return nil, err
		}
		if native != nil {
			item := &nativecore.Item{
				URL:  native.URL,
				Path: tree.library(native.Path),
				Size: native.Size,
				SHA1: native.SHA1,
			}
			p.items = append(p.items, item)

			nj := nativeJar{path: item.Path}
			if lib.Extract != nil {
				nj.exclude = lib.Extract.Exclude
			}
			p.natives = append(p.natives, nj)
		}
	}

	if m.AssetIndex != nil {
		p.items = append(p.items, &nativecore.Item{
			URL:  m.AssetIndex.URL,
			Path: tree.assetIndex(m.AssetIndex.ID),
			Size: m.AssetIndex.Size,
			SHA1: m.AssetIndex.SHA1,
		})
	}

	for _, item := range p.items {
		if err := within(tree.root, item.Path); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func assetItems(index *AssetIndex, tree layout, resourcesURL string) ([]*nativecore.Item, error) {
	seen := make(map[string]bool, len(index.Objects))
	items := make([]*nativecore.Item, 0, len(index.Objects))
	for _, obj := range index.Objects {
		if seen[obj.Hash] {
			continue
		}
		if !objectHashPattern.MatchString(obj.Hash) {
			return nil, fmt.Errorf("%w: asset object hash %q", ErrUnsafePath, obj.Hash)
		}
		seen[obj.Hash] = true
		items = append(items, &nativecore.Item{
			URL:  strings.TrimSuffix(resourcesURL, "/") + "/" + obj.Hash[:2] + "/" + obj.Hash,
			Path: tree.assetObject(obj.Hash),
			Size: obj.Size,
			SHA1: obj.Hash,
		})
	}
	return items, nil
}

// classpath lists the jars passed to the game, client jar last.
func classpath(m *Manifest, tree layout, env Environment) ([]string, error) {
	cp := make([]string, 0, len(m.Libraries)+1)
	seen := make(map[string]bool)
	for i := range m.Libraries {
		lib := &m.Libraries[i]
		if !Allowed(lib.Rules, env) {
			continue
		}
		a, err := lib.artifact()
		if err != nil {
			return nil, err
		}
		if a == nil {
			continue
		}
		p := tree.library(a.Path)
		if err := within(tree.root, p); err != nil {
			return nil, err
		}
		if !seen[p] {
			seen[p] = true
			cp = append(cp, p)
		}
	}
	cp = append(cp, tree.clientJar(m.Jar()))
	return cp, nil
}
