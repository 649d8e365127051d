package proxy

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/vyrodovalexey/frontgw/internal/router"
)

// part is either a literal run of text or a {name} placeholder.
type part struct {
	literal string
	name    string
}

func (p part) isPlaceholder() bool {
	return p.name != ""
}

// Template is a parsed upstream URL template such as
// "https://v.redd.it/{id}/DASH_{size}". The scheme is fixed, and the host
// can only take values from the allow-lists given at parse time.
type Template struct {
	raw         string
	scheme      string
	host        []part
	path        []part
	query       string
	hostChoices map[string][]string
}

// TemplateOption configures template parsing.
type TemplateOption func(*Template)

// WithHostChoices allows the host placeholder name to take one of values.
func WithHostChoices(name string, values ...string) TemplateOption {
	return func(t *Template) {
		t.hostChoices[name] = append(t.hostChoices[name], values...)
	}
}

// ParseTemplate parses raw into a Template.
func ParseTemplate(raw string, opts ...TemplateOption) (*Template, error) {
	t := &Template{
		raw:         raw,
		hostChoices: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(t)
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return nil, fmt.Errorf("%w: %q: missing scheme", ErrInvalidTemplate, raw)
	}
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %q: unsupported scheme %q", ErrInvalidTemplate, raw, scheme)
	}
	t.scheme = scheme

	if i := strings.IndexByte(rest, '?'); i >= 0 {
		t.query = rest[i+1:]
		rest = rest[:i]
		if strings.ContainsAny(t.query, "{}") {
			return nil, fmt.Errorf("%w: %q: placeholders are not allowed in the query", ErrInvalidTemplate, raw)
		}
	}

	authority, path := rest, "/"
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		authority, path = rest[:i], rest[i:]
	}
	if authority == "" {
		return nil, fmt.Errorf("%w: %q: empty host", ErrInvalidTemplate, raw)
	}
	if strings.ContainsAny(authority, "@#") {
		return nil, fmt.Errorf("%w: %q: userinfo and fragments are not allowed", ErrInvalidTemplate, raw)
	}

	var err error
	if t.host, err = parseParts(authority); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidTemplate, raw, err)
	}
	if t.path, err = parseParts(path); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidTemplate, raw, err)
	}

	if err := t.checkHost(); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidTemplate, raw, err)
	}

	return t, nil
}

// checkHost verifies that every host placeholder has an allow-list and that
// each allowed value yields a valid host.
func (t *Template) checkHost() error {
	for _, p := range t.host {
		if !p.isPlaceholder() {
			continue
		}
		choices := t.hostChoices[p.name]
		if len(choices) == 0 {
			return fmt.Errorf("host placeholder {%s} has no allowed values", p.name)
		}
		for _, c := range choices {
			if c == "" || strings.ContainsAny(c, "/?#@:{}") {
				return fmt.Errorf("host placeholder {%s}: invalid value %q", p.name, c)
			}
		}
	}

	sample := make(router.Params)
	for name, choices := range t.hostChoices {
		sample[name] = choices[0]
	}
	host, err := t.expandHost(sample)
	if err != nil {
		return err
	}
	u, err := url.Parse(t.scheme + "://" + host + "/")
	if err != nil || u.Host != host {
		return fmt.Errorf("invalid host %q", host)
	}
	return nil
}

// parseParts splits s into literals and {name} placeholders.
func parseParts(s string) ([]part, error) {
	var parts []part
	for s != "" {
		open := strings.IndexByte(s, '{')
		closing := strings.IndexByte(s, '}')
		if open < 0 {
			if closing >= 0 {
				return nil, fmt.Errorf("unbalanced '}'")
			}
			parts = append(parts, part{literal: s})
			break
		}
		if closing >= 0 && closing < open {
			return nil, fmt.Errorf("unbalanced '}'")
		}
		if open > 0 {
			parts = append(parts, part{literal: s[:open]})
		}
		s = s[open+1:]
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return nil, fmt.Errorf("unbalanced '{'")
		}
		name := s[:end]
		if name == "" || strings.ContainsAny(name, "{/") {
			return nil, fmt.Errorf("invalid placeholder name %q", name)
		}
		parts = append(parts, part{name: name})
		s = s[end+1:]
	}
	return parts, nil
}

// String returns the raw template.
func (t *Template) String() string {
	return t.raw
}

// Placeholders returns the placeholder names in order of appearance.
func (t *Template) Placeholders() []string {
	var names []string
	for _, p := range slices.Concat(t.host, t.path) {
		if p.isPlaceholder() && !slices.Contains(names, p.name) {
			names = append(names, p.name)
		}
	}
	return names
}

// Bind checks that every placeholder is one of paramNames.
func (t *Template) Bind(paramNames []string) error {
	for _, name := range t.Placeholders() {
		if !slices.Contains(paramNames, name) {
			return fmt.Errorf("%w: {%s} in %q", ErrUnboundPlaceholder, name, t.raw)
		}
	}
	return nil
}

// Expand substitutes params into the template and appends rawQuery after
// the template's own query.
func (t *Template) Expand(params router.Params, rawQuery string) (*url.URL, error) {
	host, err := t.expandHost(params)
	if err != nil {
		return nil, err
	}

	var path strings.Builder
	for _, p := range t.path {
		if !p.isPlaceholder() {
			path.WriteString(p.literal)
			continue
		}
		v, ok := params[p.name]
		if !ok {
			return nil, fmt.Errorf("%w: {%s} in %q", ErrUnboundPlaceholder, p.name, t.raw)
		}
		path.WriteString(v)
	}

	query := t.query
	if rawQuery != "" {
		if query != "" {
			query += "&"
		}
		query += rawQuery
	}

	return &url.URL{
		Scheme:   t.scheme,
		Host:     host,
		Path:     path.String(),
		RawQuery: query,
	}, nil
}

func (t *Template) expandHost(params router.Params) (string, error) {
	var host strings.Builder
	for _, p := range t.host {
		if !p.isPlaceholder() {
			host.WriteString(p.literal)
			continue
		}
		v := params[p.name]
		if !slices.Contains(t.hostChoices[p.name], v) {
			return "", fmt.Errorf("%w: {%s}=%q", ErrHostNotAllowed, p.name, v)
		}
		host.WriteString(v)
	}
	return host.String(), nil
}
