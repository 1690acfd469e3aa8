// Package dist aggregates the configuration documents of one Dream
// distribution and implements the local-deployment derivation.
package dist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deeppavlov/dreamctl/core/distconf"
)

var (
	// ErrInvalidArgument reports a missing or ambiguous identity combination.
	ErrInvalidArgument = errors.New("provide either a distribution path or a name and a dream root")
	// ErrNotADirectory reports that a resolved distribution path is not an
	// existing directory.
	ErrNotADirectory = errors.New("not a distribution directory")
)

// Infrastructure services every local deployment needs regardless of the
// selected service set.
var alwaysLocal = []string{"agent", "mongo"}

// Dist is a named, self-contained set of configuration documents describing
// one deployable instance of the platform. It owns its documents exclusively;
// any of them may be nil when not loaded.
type Dist struct {
	Path      string
	Name      string
	DreamRoot string

	Pipeline *distconf.Pipeline
	Override *distconf.Compose
	Dev      *distconf.Compose
	Proxy    *distconf.Compose
	Local    *distconf.Compose
}

// LoadOpts selects which document kinds to read from disk.
type LoadOpts struct {
	Pipeline bool
	Override bool
	Dev      bool
	Proxy    bool
	Local    bool
}

// AllConfigs loads every document kind.
func AllConfigs() LoadOpts {
	return LoadOpts{Pipeline: true, Override: true, Dev: true, Proxy: true, Local: true}
}

// ResolveDistPath returns the distribution directory for a name inside a
// Dream root.
func ResolveDistPath(name, dreamRoot string) string {
	return filepath.Join(dreamRoot, "assistant_dists", name)
}

// ResolveNameAndRoot derives the distribution name and the Dream root from a
// distribution path (the layout is root/assistant_dists/name).
func ResolveNameAndRoot(distPath string) (name, dreamRoot string) {
	p := filepath.Clean(distPath)
	return filepath.Base(p), filepath.Dir(filepath.Dir(p))
}

// ResolveAllPaths resolves the (path, name, root) identity triple from either
// a distribution path or a (name, dream root) pair. The path form wins when
// both are given. The resolved path must be an existing directory.
func ResolveAllPaths(distPath, name, dreamRoot string) (string, string, string, error) {
	switch {
	case distPath != "":
		name, dreamRoot = ResolveNameAndRoot(distPath)
		distPath = filepath.Clean(distPath)
	case name != "" && dreamRoot != "":
		distPath = ResolveDistPath(name, dreamRoot)
	default:
		return "", "", "", ErrInvalidArgument
	}

	info, err := os.Stat(distPath)
	if err != nil || !info.IsDir() {
		return "", "", "", fmt.Errorf("%w: %s", ErrNotADirectory, distPath)
	}
	return distPath, name, dreamRoot, nil
}

// loadConfigs reads the selected document kinds from srcPath using default
// file names. When serviceNames is given, every loaded document is filtered
// down to those services right away.
func (d *Dist) loadConfigs(srcPath string, opts LoadOpts, serviceNames []string) error {
	if opts.Pipeline {
		p, err := distconf.PipelineFromDist(srcPath)
		if err != nil {
			return err
		}
		if len(serviceNames) > 0 {
			p = p.FilterServices(serviceNames, nil)
		}
		d.Pipeline = p
	}

	composeKinds := []struct {
		kind distconf.Kind
		want bool
		dst  **distconf.Compose
	}{
		{distconf.KindComposeOverride, opts.Override, &d.Override},
		{distconf.KindComposeDev, opts.Dev, &d.Dev},
		{distconf.KindComposeProxy, opts.Proxy, &d.Proxy},
		{distconf.KindComposeLocal, opts.Local, &d.Local},
	}
	for _, ck := range composeKinds {
		if !ck.want {
			continue
		}
		c, err := distconf.ComposeFromDist(ck.kind, srcPath)
		if err != nil {
			return err
		}
		if len(serviceNames) > 0 {
			c = c.FilterServices(serviceNames, nil)
		}
		*ck.dst = c
	}
	return nil
}

// FromDist loads a distribution from its directory.
func FromDist(distPath string, opts LoadOpts) (*Dist, error) {
	distPath, name, root, err := ResolveAllPaths(distPath, "", "")
	if err != nil {
		return nil, err
	}
	d := &Dist{Path: distPath, Name: name, DreamRoot: root}
	if err := d.loadConfigs(distPath, opts, nil); err != nil {
		return nil, err
	}
	return d, nil
}

// FromName loads a distribution by name from a Dream root.
func FromName(name, dreamRoot string, opts LoadOpts) (*Dist, error) {
	distPath, name, root, err := ResolveAllPaths("", name, dreamRoot)
	if err != nil {
		return nil, err
	}
	d := &Dist{Path: distPath, Name: name, DreamRoot: root}
	if err := d.loadConfigs(distPath, opts, nil); err != nil {
		return nil, err
	}
	return d, nil
}

// FromTemplate builds a new distribution named name whose documents are read
// from an existing template distribution, optionally filtered down to
// serviceNames. The target directory is not created until Save.
func FromTemplate(name, dreamRoot, templateName string, serviceNames []string, opts LoadOpts) (*Dist, error) {
	templatePath, _, _, err := ResolveAllPaths("", templateName, dreamRoot)
	if err != nil {
		return nil, err
	}
	d := &Dist{Path: ResolveDistPath(name, dreamRoot), Name: name, DreamRoot: dreamRoot}
	if err := d.loadConfigs(templatePath, opts, serviceNames); err != nil {
		return nil, err
	}
	return d, nil
}

// Save creates the distribution directory and writes every held document
// under its default file name, returning the written paths in document
// order. Writing is not transactional: a failure partway through leaves the
// already-written files in place.
func (d *Dist) Save(overwrite bool) ([]string, error) {
	if !overwrite {
		if _, err := os.Stat(d.Path); err == nil {
			return nil, fmt.Errorf("%w: %s", distconf.ErrExists, d.Path)
		}
	}
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return nil, err
	}

	var paths []string
	if d.Pipeline != nil {
		p, err := d.Pipeline.ToDist(d.Path, overwrite)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	for _, c := range []*distconf.Compose{d.Override, d.Dev, d.Proxy, d.Local} {
		if c == nil {
			continue
		}
		p, err := c.ToDist(d.Path, overwrite)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// CreateLocalYML derives local.yml from dev.yml and proxy.yml. The selected
// services (plus agent and mongo) keep their dev definitions, with ports
// hidden when dropPorts is set; every other service is taken from proxy.yml
// as a thin forwarder to the shared deployment. With singleReplica set every
// entry is pinned to one replica for predictable debugging. The existing
// local.yml, if any, is replaced.
func (d *Dist) CreateLocalYML(services []string, dropPorts, singleReplica bool) (string, error) {
	if d.Dev == nil || d.Proxy == nil {
		return "", fmt.Errorf("%w: dev.yml and proxy.yml must be loaded", distconf.ErrNotFound)
	}

	selected := append(append([]string{}, services...), alwaysLocal...)

	devPart := d.Dev.FilterServices(selected, nil)
	proxyPart := d.Proxy.FilterServices(nil, selected)

	local := distconf.NewCompose(distconf.KindComposeLocal)

	combined := map[string]*distconf.Container{}
	for name, ct := range devPart.Services {
		combined[name] = ct
	}
	for name, ct := range proxyPart.Services {
		combined[name] = ct
	}

	sel := make(map[string]bool, len(selected))
	for _, s := range selected {
		sel[s] = true
	}
	for name, ct := range combined {
		svc := ct.Clone()
		if sel[name] && dropPorts {
			svc.Ports = nil
		}
		if singleReplica {
			svc.Deploy = distconf.SingleReplica()
		}
		local = local.AddService(name, svc)
	}

	d.Local = local
	return local.ToDist(d.Path, true)
}
