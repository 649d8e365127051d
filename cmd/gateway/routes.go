package main

import (
	"fmt"
	"net/http"

	"github.com/vyrodovalexey/frontgw/internal/assets"
	"github.com/vyrodovalexey/frontgw/internal/gateway"
	"github.com/vyrodovalexey/frontgw/internal/info"
	"github.com/vyrodovalexey/frontgw/internal/proxy"
	"github.com/vyrodovalexey/frontgw/internal/router"
	"github.com/vyrodovalexey/frontgw/internal/upstream"
)

// mediaRoute maps a local pattern onto an upstream URL template.
type mediaRoute struct {
	pattern  string
	template string
	opts     []proxy.TemplateOption
}

var (
	thumbHosts   = proxy.WithHostChoices("point", "a", "b", "c", "d", "e", "f")
	previewHosts = proxy.WithHostChoices("loc", "pre", "external", "i")
)

// mediaRoutes is the fixed set of proxied upstream locations. Order
// matters: the award_images preview must precede the generic preview.
var mediaRoutes = []mediaRoute{
	{pattern: "/vid/:id/:size", template: "https://v.redd.it/{id}/DASH_{size}"},
	{pattern: "/hls/:id/*path", template: "https://v.redd.it/{id}/{path}"},
	{pattern: "/img/*path", template: "https://i.redd.it/{path}"},
	{
		pattern:  "/thumb/:point/:id",
		template: "https://{point}.thumbs.redditmedia.com/{id}",
		opts:     []proxy.TemplateOption{thumbHosts},
	},
	{pattern: "/emoji/:id/:name", template: "https://emoji.redditmedia.com/{id}/{name}"},
	{
		pattern:  "/emote/:subreddit_id/:filename",
		template: "https://reddit-econ-prod-assets-permanent.s3.amazonaws.com/asset-manager/{subreddit_id}/{filename}",
	},
	{
		pattern:  "/preview/:loc/award_images/:fullname/:id",
		template: "https://{loc}view.redd.it/award_images/{fullname}/{id}",
		opts:     []proxy.TemplateOption{previewHosts},
	},
	{
		pattern:  "/preview/:loc/:id",
		template: "https://{loc}view.redd.it/{id}",
		opts:     []proxy.TemplateOption{previewHosts},
	},
	{pattern: "/style/*path", template: "https://styles.redditmedia.com/{path}"},
	{pattern: "/static/*path", template: "https://www.redditstatic.com/{path}"},
}

// Feed routes.
const (
	pathCommits   = "/commits.atom"
	pathInstances = "/instances.json"
)

// routeDeps are the handlers mounted by registerRoutes.
type routeDeps struct {
	bundle    *assets.Bundle
	forwarder *proxy.Forwarder
	feeds     *upstream.Feeds
	info      *info.Info
	robotsOff bool
	commits   string
	instances string
}

// registerRoutes mounts the whole route table on reg, ending with the
// catch-all.
func registerRoutes(reg router.Registrar, deps routeDeps) error {
	if err := deps.bundle.Mount(reg); err != nil {
		return err
	}
	if err := assets.MountRobots(reg, deps.robotsOff); err != nil {
		return err
	}

	if err := deps.feeds.Mount(reg, pathCommits, upstream.CommitsFeed(deps.commits)); err != nil {
		return err
	}
	if err := deps.feeds.Mount(reg, pathInstances, upstream.InstancesFeed(deps.instances)); err != nil {
		return err
	}

	for _, m := range mediaRoutes {
		err := deps.forwarder.Mount(reg, m.pattern, m.template, proxy.WithTemplateOptions(m.opts...))
		if err != nil {
			return fmt.Errorf("failed to mount %s: %w", m.pattern, err)
		}
	}

	if err := deps.info.Mount(reg); err != nil {
		return err
	}

	if _, err := reg.Register(http.MethodGet, "/*", gateway.NotFound()); err != nil {
		return fmt.Errorf("failed to register catch-all: %w", err)
	}
	return nil
}
