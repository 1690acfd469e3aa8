package distconf

import (
	"fmt"
	"path/filepath"
)

// Deployment mirrors the compose "deploy" block. Only mode and replicas are
// modeled; everything else rides along in Extra.
type Deployment struct {
	Mode     string         `mapstructure:"mode"`
	Replicas *int           `mapstructure:"replicas"`
	Extra    map[string]any `mapstructure:",remain"`
}

// SingleReplica is the deployment pinned for local debugging.
func SingleReplica() *Deployment {
	one := 1
	return &Deployment{Mode: "replicated", Replicas: &one}
}

func (d *Deployment) clone() *Deployment {
	if d == nil {
		return nil
	}
	out := &Deployment{Mode: d.Mode, Extra: copyExtra(d.Extra)}
	if d.Replicas != nil {
		r := *d.Replicas
		out.Replicas = &r
	}
	return out
}

func (d *Deployment) asMap() map[string]any {
	m := map[string]any{}
	for k, v := range d.Extra {
		m[k] = v
	}
	if d.Mode != "" {
		m["mode"] = d.Mode
	}
	if d.Replicas != nil {
		m["replicas"] = *d.Replicas
	}
	return m
}

// Container is one service entry of a compose document. Ports and deploy are
// the only fields the derivation logic touches; every other key is kept raw
// in Extra and written back verbatim.
type Container struct {
	Ports  []any          `mapstructure:"ports"`
	Deploy *Deployment    `mapstructure:"deploy"`
	Extra  map[string]any `mapstructure:",remain"`
}

// Clone returns an independent copy of the container. Values inside Extra are
// shared; the derivation logic never mutates them.
func (c *Container) Clone() *Container {
	out := &Container{Deploy: c.Deploy.clone(), Extra: copyExtra(c.Extra)}
	if c.Ports != nil {
		out.Ports = append([]any{}, c.Ports...)
	}
	return out
}

func (c *Container) asMap() map[string]any {
	m := map[string]any{}
	for k, v := range c.Extra {
		m[k] = v
	}
	if c.Ports != nil {
		m["ports"] = c.Ports
	}
	if c.Deploy != nil {
		m["deploy"] = c.Deploy.asMap()
	}
	return m
}

func containerFromRaw(name string, raw any) (*Container, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: service %q is not a mapping", ErrSchema, name)
	}
	var c Container
	if err := decode(m, &c); err != nil {
		return nil, fmt.Errorf("%w: service %q: %v", ErrSchema, name, err)
	}
	return &c, nil
}

// Compose is a docker-compose document. One shape serves the override, dev,
// proxy and local variants; Kind selects the default file name.
type Compose struct {
	Kind     Kind
	Version  string
	Services map[string]*Container
	Extra    map[string]any
}

// NewCompose returns an empty compose document of the given kind.
func NewCompose(kind Kind) *Compose {
	return &Compose{Kind: kind, Services: map[string]*Container{}}
}

// LoadCompose reads and validates a compose document from path.
func LoadCompose(kind Kind, path string) (*Compose, error) {
	raw, err := load(path, kind.codec())
	if err != nil {
		return nil, err
	}
	return composeFromRaw(kind, raw)
}

// ComposeFromDist loads the kind's default file from a distribution directory.
func ComposeFromDist(kind Kind, distPath string) (*Compose, error) {
	return LoadCompose(kind, filepath.Join(distPath, kind.FileName()))
}

func composeFromRaw(kind Kind, raw map[string]any) (*Compose, error) {
	c := NewCompose(kind)
	seen := false
	for k, v := range raw {
		switch k {
		case "version":
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: version must be a string", ErrSchema)
			}
			c.Version = s
		case "services":
			m, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: services must be a mapping", ErrSchema)
			}
			for name, rawSvc := range m {
				ct, err := containerFromRaw(name, rawSvc)
				if err != nil {
					return nil, err
				}
				c.Services[name] = ct
			}
			seen = true
		default:
			if c.Extra == nil {
				c.Extra = map[string]any{}
			}
			c.Extra[k] = v
		}
	}
	if !seen {
		return nil, fmt.Errorf("%w: missing services mapping", ErrSchema)
	}
	return c, nil
}

func (c *Compose) raw() map[string]any {
	m := map[string]any{}
	for k, v := range c.Extra {
		m[k] = v
	}
	if c.Version != "" {
		m["version"] = c.Version
	}
	services := make(map[string]any, len(c.Services))
	for name, ct := range c.Services {
		services[name] = ct.asMap()
	}
	m["services"] = services
	return m
}

// ToPath serializes the document and writes it to path. Absent fields are
// omitted rather than written as null.
func (c *Compose) ToPath(path string, overwrite bool) (string, error) {
	return dump(c.raw(), path, overwrite, c.Kind.codec())
}

// ToDist writes the document under its default file name inside distPath.
func (c *Compose) ToDist(distPath string, overwrite bool) (string, error) {
	return c.ToPath(filepath.Join(distPath, c.Kind.FileName()), overwrite)
}

// Service returns the container registered under name.
func (c *Compose) Service(name string) (*Container, bool) {
	ct, ok := c.Services[name]
	return ct, ok
}

// FilterServices returns a new document holding only services whose name is
// in include (nil means all) and not in exclude. Version and unmodeled
// top-level fields carry over unchanged.
func (c *Compose) FilterServices(include, exclude []string) *Compose {
	inc := toSet(include)
	exc := toSet(exclude)
	out := &Compose{
		Kind:     c.Kind,
		Version:  c.Version,
		Services: map[string]*Container{},
		Extra:    copyExtra(c.Extra),
	}
	for name, ct := range c.Services {
		if include != nil && !inc[name] {
			continue
		}
		if exc[name] {
			continue
		}
		out.Services[name] = ct.Clone()
	}
	return out
}

// AddService returns a new document with the container inserted under name,
// replacing any previous entry.
func (c *Compose) AddService(name string, ct *Container) *Compose {
	out := c.FilterServices(nil, nil)
	out.Services[name] = ct
	return out
}
