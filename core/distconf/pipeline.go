package distconf

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Connector is an entry of the pipeline's top-level connectors block.
type Connector struct {
	URL   string         `mapstructure:"url"`
	Extra map[string]any `mapstructure:",remain"`
}

func (c *Connector) clone() *Connector {
	return &Connector{URL: c.URL, Extra: copyExtra(c.Extra)}
}

func (c *Connector) asMap() map[string]any {
	m := map[string]any{}
	for k, v := range c.Extra {
		m[k] = v
	}
	if c.URL != "" {
		m["url"] = c.URL
	}
	return m
}

// Service is one pipeline service entry. Its connector field is either an
// inline mapping (Connector) or a string reference into the connectors block
// (ConnectorRef); only the inline form carries a URL.
type Service struct {
	Connector    *Connector
	ConnectorRef string
	Extra        map[string]any
}

// ConnectorURL returns the inline connector URL, or "" when the service has
// no connector or only references one by name.
func (s *Service) ConnectorURL() string {
	if s.Connector != nil {
		return s.Connector.URL
	}
	return ""
}

func serviceFromRaw(name string, raw any) (*Service, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: service %q is not a mapping", ErrSchema, name)
	}
	s := &Service{Extra: map[string]any{}}
	for k, v := range m {
		if k != "connector" {
			s.Extra[k] = v
			continue
		}
		switch conn := v.(type) {
		case string:
			s.ConnectorRef = conn
		case map[string]any:
			var c Connector
			if err := decode(conn, &c); err != nil {
				return nil, fmt.Errorf("%w: service %q connector: %v", ErrSchema, name, err)
			}
			s.Connector = &c
		default:
			return nil, fmt.Errorf("%w: service %q connector must be a mapping or a reference", ErrSchema, name)
		}
	}
	return s, nil
}

func (s *Service) asMap() map[string]any {
	m := map[string]any{}
	for k, v := range s.Extra {
		m[k] = v
	}
	if s.Connector != nil {
		m["connector"] = s.Connector.asMap()
	} else if s.ConnectorRef != "" {
		m["connector"] = s.ConnectorRef
	}
	return m
}

// Pipeline stage names in request-processing order.
const (
	CategoryLastChanceService           = "last_chance_service"
	CategoryTimeoutService              = "timeout_service"
	CategoryBotAnnotatorSelector        = "bot_annotator_selector"
	CategoryPostAnnotators              = "post_annotators"
	CategoryAnnotators                  = "annotators"
	CategorySkillSelectors              = "skill_selectors"
	CategorySkills                      = "skills"
	CategoryPostSkillSelectorAnnotators = "post_skill_selector_annotators"
	CategoryResponseSelectors           = "response_selectors"
)

// ServiceGroups partitions pipeline services into the fixed pipeline stages.
// The three singleton stages are optional; a nil category map means the key
// was absent from the source document and stays absent on save.
type ServiceGroups struct {
	LastChanceService           *Service
	TimeoutService              *Service
	BotAnnotatorSelector        *Service
	PostAnnotators              map[string]*Service
	Annotators                  map[string]*Service
	SkillSelectors              map[string]*Service
	Skills                      map[string]*Service
	PostSkillSelectorAnnotators map[string]*Service
	ResponseSelectors           map[string]*Service
	Extra                       map[string]any
}

// Category is one named group of pipeline services.
type Category struct {
	Name     string
	Services map[string]*Service
}

// ByCategory returns every non-empty category in pipeline order. Singletons
// appear as single-entry categories keyed by their stage name.
func (g *ServiceGroups) ByCategory() []Category {
	var cats []Category
	singleton := func(name string, s *Service) {
		if s != nil {
			cats = append(cats, Category{Name: name, Services: map[string]*Service{name: s}})
		}
	}
	group := func(name string, m map[string]*Service) {
		if m != nil {
			cats = append(cats, Category{Name: name, Services: m})
		}
	}
	singleton(CategoryLastChanceService, g.LastChanceService)
	singleton(CategoryTimeoutService, g.TimeoutService)
	singleton(CategoryBotAnnotatorSelector, g.BotAnnotatorSelector)
	group(CategoryPostAnnotators, g.PostAnnotators)
	group(CategoryAnnotators, g.Annotators)
	group(CategorySkillSelectors, g.SkillSelectors)
	group(CategorySkills, g.Skills)
	group(CategoryPostSkillSelectorAnnotators, g.PostSkillSelectorAnnotators)
	group(CategoryResponseSelectors, g.ResponseSelectors)
	return cats
}

// Flattened collapses every category into a single name-keyed view. It is
// recomputed on each call so it never goes stale after filtering.
func (g *ServiceGroups) Flattened() map[string]*Service {
	out := map[string]*Service{}
	for _, cat := range g.ByCategory() {
		for name, s := range cat.Services {
			out[name] = s
		}
	}
	return out
}

func serviceGroupFromRaw(category string, raw any) (map[string]*Service, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a mapping", ErrSchema, category)
	}
	out := make(map[string]*Service, len(m))
	for name, rawSvc := range m {
		s, err := serviceFromRaw(name, rawSvc)
		if err != nil {
			return nil, err
		}
		out[name] = s
	}
	return out, nil
}

func serviceGroupsFromRaw(raw any) (*ServiceGroups, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: services must be a mapping", ErrSchema)
	}
	g := &ServiceGroups{}
	for k, v := range m {
		var err error
		switch k {
		case CategoryLastChanceService:
			g.LastChanceService, err = serviceFromRaw(k, v)
		case CategoryTimeoutService:
			g.TimeoutService, err = serviceFromRaw(k, v)
		case CategoryBotAnnotatorSelector:
			g.BotAnnotatorSelector, err = serviceFromRaw(k, v)
		case CategoryPostAnnotators:
			g.PostAnnotators, err = serviceGroupFromRaw(k, v)
		case CategoryAnnotators:
			g.Annotators, err = serviceGroupFromRaw(k, v)
		case CategorySkillSelectors:
			g.SkillSelectors, err = serviceGroupFromRaw(k, v)
		case CategorySkills:
			g.Skills, err = serviceGroupFromRaw(k, v)
		case CategoryPostSkillSelectorAnnotators:
			g.PostSkillSelectorAnnotators, err = serviceGroupFromRaw(k, v)
		case CategoryResponseSelectors:
			g.ResponseSelectors, err = serviceGroupFromRaw(k, v)
		default:
			if g.Extra == nil {
				g.Extra = map[string]any{}
			}
			g.Extra[k] = v
		}
		if err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *ServiceGroups) raw() map[string]any {
	m := map[string]any{}
	for k, v := range g.Extra {
		m[k] = v
	}
	for _, cat := range []struct {
		name string
		s    *Service
	}{
		{CategoryLastChanceService, g.LastChanceService},
		{CategoryTimeoutService, g.TimeoutService},
		{CategoryBotAnnotatorSelector, g.BotAnnotatorSelector},
	} {
		if cat.s != nil {
			m[cat.name] = cat.s.asMap()
		}
	}
	for _, cat := range []struct {
		name  string
		group map[string]*Service
	}{
		{CategoryPostAnnotators, g.PostAnnotators},
		{CategoryAnnotators, g.Annotators},
		{CategorySkillSelectors, g.SkillSelectors},
		{CategorySkills, g.Skills},
		{CategoryPostSkillSelectorAnnotators, g.PostSkillSelectorAnnotators},
		{CategoryResponseSelectors, g.ResponseSelectors},
	} {
		if cat.group == nil {
			continue
		}
		raw := make(map[string]any, len(cat.group))
		for name, s := range cat.group {
			raw[name] = s.asMap()
		}
		m[cat.name] = raw
	}
	return m
}

// Pipeline is the JSON document describing which services participate in
// request processing and how they are connected.
type Pipeline struct {
	Connectors map[string]*Connector
	Services   *ServiceGroups
	Extra      map[string]any
}

// LoadPipeline reads and validates a pipeline document from path.
func LoadPipeline(path string) (*Pipeline, error) {
	raw, err := load(path, KindPipeline.codec())
	if err != nil {
		return nil, err
	}
	return pipelineFromRaw(raw)
}

// PipelineFromDist loads pipeline_conf.json from a distribution directory.
func PipelineFromDist(distPath string) (*Pipeline, error) {
	return LoadPipeline(filepath.Join(distPath, KindPipeline.FileName()))
}

func pipelineFromRaw(raw map[string]any) (*Pipeline, error) {
	p := &Pipeline{Connectors: map[string]*Connector{}}
	for k, v := range raw {
		switch k {
		case "connectors":
			m, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: connectors must be a mapping", ErrSchema)
			}
			for name, rawConn := range m {
				cm, ok := rawConn.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%w: connector %q is not a mapping", ErrSchema, name)
				}
				var c Connector
				if err := decode(cm, &c); err != nil {
					return nil, fmt.Errorf("%w: connector %q: %v", ErrSchema, name, err)
				}
				p.Connectors[name] = &c
			}
		case "services":
			g, err := serviceGroupsFromRaw(v)
			if err != nil {
				return nil, err
			}
			p.Services = g
		default:
			if p.Extra == nil {
				p.Extra = map[string]any{}
			}
			p.Extra[k] = v
		}
	}
	if p.Services == nil {
		return nil, fmt.Errorf("%w: missing services mapping", ErrSchema)
	}
	return p, nil
}

func (p *Pipeline) raw() map[string]any {
	m := map[string]any{}
	for k, v := range p.Extra {
		m[k] = v
	}
	if len(p.Connectors) > 0 {
		conns := make(map[string]any, len(p.Connectors))
		for name, c := range p.Connectors {
			conns[name] = c.asMap()
		}
		m["connectors"] = conns
	}
	m["services"] = p.Services.raw()
	return m
}

// ToPath serializes the pipeline and writes it to path.
func (p *Pipeline) ToPath(path string, overwrite bool) (string, error) {
	return dump(p.raw(), path, overwrite, KindPipeline.codec())
}

// ToDist writes the pipeline under its default file name inside distPath.
func (p *Pipeline) ToDist(distPath string, overwrite bool) (string, error) {
	return p.ToPath(filepath.Join(distPath, KindPipeline.FileName()), overwrite)
}

// ContainerNames collects the URL hosts of every service in the flattened
// view. The host is the compose container backing the service.
func (p *Pipeline) ContainerNames() []string {
	var names []string
	for _, s := range p.Services.Flattened() {
		host, _, _ := ParseConnectorURL(s.ConnectorURL())
		if host != "" {
			names = append(names, host)
		}
	}
	return names
}

// DiscoverHostPortEndpoint looks up a service in the flattened view and
// parses its connector URL. Any returned segment may be empty when the
// service carries no URL.
func (p *Pipeline) DiscoverHostPortEndpoint(service string) (host, port, endpoint string, err error) {
	s, ok := p.Services.Flattened()[service]
	if !ok {
		return "", "", "", fmt.Errorf("%w: %s not found in pipeline", ErrNotFound, service)
	}
	host, port, endpoint = ParseConnectorURL(s.ConnectorURL())
	return host, port, endpoint, nil
}

func filterConnectors(conns map[string]*Connector, inc, exc map[string]bool) map[string]*Connector {
	out := map[string]*Connector{}
	for name, c := range conns {
		if c.URL == "" {
			continue
		}
		host, _, _ := ParseConnectorURL(c.URL)
		if inc[host] && !exc[host] {
			out[name] = c.clone()
		}
	}
	return out
}

// filterGroup keeps services whose connector URL host matches the include
// set. Services without an inline connector are matched by their own name
// with underscores normalized to dashes, the form the include list uses.
func filterGroup(group map[string]*Service, inc, exc map[string]bool) map[string]*Service {
	if group == nil {
		return nil
	}
	out := map[string]*Service{}
	for name, s := range group {
		if s.Connector == nil {
			if inc[strings.ReplaceAll(name, "_", "-")] {
				out[name] = s
			}
			continue
		}
		if s.Connector.URL == "" {
			continue
		}
		host, _, _ := ParseConnectorURL(s.Connector.URL)
		if inc[host] && !exc[host] {
			out[name] = s
		}
	}
	return out
}

// FilterServices returns a new pipeline holding only connectors and services
// matching the include list and not the exclude list. The singleton stages
// are never filtered; category partitioning is preserved.
func (p *Pipeline) FilterServices(include, exclude []string) *Pipeline {
	inc := toSet(include)
	exc := toSet(exclude)
	services := &ServiceGroups{
		LastChanceService:           p.Services.LastChanceService,
		TimeoutService:              p.Services.TimeoutService,
		BotAnnotatorSelector:        p.Services.BotAnnotatorSelector,
		PostAnnotators:              filterGroup(p.Services.PostAnnotators, inc, exc),
		Annotators:                  filterGroup(p.Services.Annotators, inc, exc),
		SkillSelectors:              filterGroup(p.Services.SkillSelectors, inc, exc),
		Skills:                      filterGroup(p.Services.Skills, inc, exc),
		PostSkillSelectorAnnotators: filterGroup(p.Services.PostSkillSelectorAnnotators, inc, exc),
		ResponseSelectors:           filterGroup(p.Services.ResponseSelectors, inc, exc),
		Extra:                       copyExtra(p.Services.Extra),
	}
	return &Pipeline{
		Connectors: filterConnectors(p.Connectors, inc, exc),
		Services:   services,
		Extra:      copyExtra(p.Extra),
	}
}
