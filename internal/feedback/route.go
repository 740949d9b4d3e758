package feedback

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"specpilot/internal/extractor"
)

// HTTP is the route's method and path as far as they are known.
type HTTP struct {
	Method string `yaml:"method" json:"method,omitempty"`
	Path   string `yaml:"path" json:"path,omitempty"`
}

// RouteOptions are the per-route switches. A nil switch means enabled.
type RouteOptions struct {
	Feedback        *bool `yaml:"feedback"`
	GenerateFixture *bool `yaml:"generateFixture"`
}

func (o RouteOptions) FeedbackEnabled() bool {
	return o.Feedback == nil || *o.Feedback
}

func (o RouteOptions) FixturesEnabled() bool {
	return o.GenerateFixture == nil || *o.GenerateFixture
}

// Route is the identity and access metadata of one entry handler.
type Route struct {
	Controller    string       `yaml:"controller"`
	Handler       string       `yaml:"handler"`
	HTTP          HTTP         `yaml:"http"`
	HasGuards     bool         `yaml:"hasGuards"`
	IsPublic      bool         `yaml:"isPublic"`
	ParamTypes    []string     `yaml:"paramTypes"`
	InjectedTypes []string     `yaml:"injectedTypes"`
	Options       RouteOptions `yaml:"options"`
}

// Key is the route identity, Controller.handler.
func (r Route) Key() string {
	return r.Controller + "." + r.Handler
}

type manifest struct {
	Routes []Route `yaml:"routes"`
}

// LoadManifest reads a YAML routes manifest.
func LoadManifest(path string) ([]Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routes manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse routes manifest %s: %w", path, err)
	}
	for i, r := range m.Routes {
		if r.Controller == "" || r.Handler == "" {
			return nil, fmt.Errorf("routes manifest %s: route %d needs controller and handler", path, i)
		}
		m.Routes[i].HTTP.Method = strings.ToUpper(r.HTTP.Method)
	}
	return m.Routes, nil
}

var httpDecorators = map[string]string{
	"Get":     "GET",
	"Post":    "POST",
	"Put":     "PUT",
	"Patch":   "PATCH",
	"Delete":  "DELETE",
	"Options": "OPTIONS",
	"Head":    "HEAD",
	"All":     "ALL",
}

// MarkerDecorator opts a handler into feedback during discovery.
const MarkerDecorator = "SpecPilot"

// DiscoverRoutes collects routes from @Controller classes of p. Only
// handlers carrying @SpecPilot are returned unless all is set.
func DiscoverRoutes(p *extractor.Project, policy Policy, all bool) []Route {
	var routes []Route
	for _, f := range p.Files() {
		for _, name := range f.ClassNames() {
			cls, ok := f.Class(name)
			if !ok {
				continue
			}
			ctrl, ok := extractor.FindDecorator(cls.Decorators, "Controller")
			if !ok {
				continue
			}
			routes = append(routes, controllerRoutes(cls, ctrl, policy, all)...)
		}
	}
	return routes
}

func controllerRoutes(cls *extractor.Class, ctrl extractor.Decorator, policy Policy, all bool) []Route {
	src := cls.File.Source
	base := pathArg(ctrl, src)
	classGuarded := extractor.HasDecorator(cls.Decorators, "UseGuards")
	classPublic := policy.isPublic(cls.Decorators, src)

	var injected []string
	if ctor, ok := cls.Constructor(); ok {
		for _, p := range ctor.Params() {
			if t := extractor.TypeSymbolName(p.Type); t != "" {
				injected = append(injected, t)
			}
		}
	}

	var routes []Route
	for _, m := range cls.Methods() {
		var method string
		var routeDec extractor.Decorator
		for _, d := range m.Decorators {
			if verb, ok := httpDecorators[d.Name]; ok {
				method, routeDec = verb, d
				break
			}
		}
		if method == "" {
			continue
		}
		marker, marked := extractor.FindDecorator(m.Decorators, MarkerDecorator)
		if !marked && !all {
			continue
		}

		r := Route{
			Controller:    cls.Name,
			Handler:       m.Name,
			HTTP:          HTTP{Method: method, Path: joinPath(base, pathArg(routeDec, src))},
			HasGuards:     classGuarded || extractor.HasDecorator(m.Decorators, "UseGuards"),
			IsPublic:      classPublic || policy.isPublic(m.Decorators, src),
			InjectedTypes: injected,
		}
		for _, p := range m.Params() {
			r.ParamTypes = append(r.ParamTypes, p.Type)
		}
		if marked {
			r.Options = markerOptions(marker, src)
		}
		routes = append(routes, r)
	}
	return routes
}

// pathArg reads @Controller('x'), @Get(['x', ...]) or @Controller({ path: 'x' }).
func pathArg(d extractor.Decorator, src []byte) string {
	v, ok := extractor.Eval(d.Arg(0), src)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []any:
		if len(t) > 0 {
			s, _ := t[0].(string)
			return s
		}
	case extractor.ObjectLiteral:
		if p, ok := t.Get("path"); ok {
			s, _ := p.(string)
			return s
		}
	}
	return ""
}

// joinPath joins controller and handler paths as "/a/b"; "" when both are empty.
func joinPath(a, b string) string {
	var parts []string
	for _, p := range []string{a, b} {
		if p = strings.Trim(p, "/"); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "/" + strings.Join(parts, "/")
}

func markerOptions(d extractor.Decorator, src []byte) RouteOptions {
	var opts RouteOptions
	v, ok := extractor.Eval(d.Arg(0), src)
	if !ok {
		return opts
	}
	obj, ok := v.(extractor.ObjectLiteral)
	if !ok {
		return opts
	}
	if b, ok := boolOption(obj, "feedback"); ok {
		opts.Feedback = &b
	}
	for _, key := range []string{"generateFixture", "generateTest"} {
		if b, ok := boolOption(obj, key); ok {
			opts.GenerateFixture = &b
			break
		}
	}
	return opts
}

func boolOption(obj extractor.ObjectLiteral, key string) (bool, bool) {
	v, ok := obj.Get(key)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
