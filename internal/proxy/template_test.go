package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/frontgw/internal/router"
)

func TestParseTemplate_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		opts []TemplateOption
	}{
		{name: "no scheme", raw: "v.redd.it/{id}"},
		{name: "ftp scheme", raw: "ftp://v.redd.it/{id}"},
		{name: "empty host", raw: "https:///{id}"},
		{name: "userinfo", raw: "https://user@v.redd.it/{id}"},
		{name: "unclosed placeholder", raw: "https://v.redd.it/{id"},
		{name: "stray closing brace", raw: "https://v.redd.it/id}"},
		{name: "empty placeholder", raw: "https://v.redd.it/{}"},
		{name: "placeholder in query", raw: "https://v.redd.it/x?a={id}"},
		{name: "host placeholder without choices", raw: "https://{point}.thumbs.redditmedia.com/{id}"},
		{
			name: "host choice with slash",
			raw:  "https://{point}.thumbs.redditmedia.com/{id}",
			opts: []TemplateOption{WithHostChoices("point", "a/b")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseTemplate(tt.raw, tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidTemplate)
		})
	}
}

func TestTemplate_Expand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		opts     []TemplateOption
		params   router.Params
		rawQuery string
		want     string
	}{
		{
			name:   "wildcard path",
			raw:    "https://i.example/{path}",
			params: router.Params{"path": "a/b.jpg"},
			want:   "https://i.example/a/b.jpg",
		},
		{
			name:   "embedded placeholder",
			raw:    "https://v.redd.it/{id}/DASH_{size}",
			params: router.Params{"id": "abc123", "size": "1080"},
			want:   "https://v.redd.it/abc123/DASH_1080",
		},
		{
			name:     "inbound query appended",
			raw:      "https://i.redd.it/{path}",
			params:   router.Params{"path": "x.png"},
			rawQuery: "width=640&s=abc",
			want:     "https://i.redd.it/x.png?width=640&s=abc",
		},
		{
			name:     "fixed query first",
			raw:      "https://i.redd.it/{path}?raw=1",
			params:   router.Params{"path": "x.png"},
			rawQuery: "s=abc",
			want:     "https://i.redd.it/x.png?raw=1&s=abc",
		},
		{
			name:   "host choice",
			raw:    "https://{loc}view.redd.it/{id}",
			opts:   []TemplateOption{WithHostChoices("loc", "pre", "external", "i")},
			params: router.Params{"loc": "external", "id": "a.jpg"},
			want:   "https://externalview.redd.it/a.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tmpl, err := ParseTemplate(tt.raw, tt.opts...)
			require.NoError(t, err)

			u, err := tmpl.Expand(tt.params, tt.rawQuery)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}
}

func TestTemplate_HostCannotBeRedirected(t *testing.T) {
	t.Parallel()

	tmpl, err := ParseTemplate("https://{point}.thumbs.redditmedia.com/{id}",
		WithHostChoices("point", "a", "b", "c", "d", "e", "f"))
	require.NoError(t, err)

	for _, point := range []string{"evil.com/", "g", "", "a.evil.com#"} {
		_, err := tmpl.Expand(router.Params{"point": point, "id": "x"}, "")
		assert.ErrorIs(t, err, ErrHostNotAllowed, point)
	}

	// path values never reach the authority
	u, err := tmpl.Expand(router.Params{"point": "a", "id": "@evil.com/x"}, "")
	require.NoError(t, err)
	assert.Equal(t, "a.thumbs.redditmedia.com", u.Host)
}

func TestTemplate_Bind(t *testing.T) {
	t.Parallel()

	tmpl, err := ParseTemplate("https://v.redd.it/{id}/{path}")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "path"}, tmpl.Placeholders())

	require.NoError(t, tmpl.Bind([]string{"id", "path", "extra"}))

	err = tmpl.Bind([]string{"id"})
	require.ErrorIs(t, err, ErrUnboundPlaceholder)
	assert.Contains(t, err.Error(), "{path}")
}
