package assets

import (
	"net/http"

	"github.com/vyrodovalexey/frontgw/internal/router"
)

// RobotsPath is the route serving the crawler policy.
const RobotsPath = "/robots.txt"

const (
	robotsDisallowAll  = "User-agent: *\nDisallow: /"
	robotsDisallowUser = "User-agent: *\nDisallow: /u/\nDisallow: /user/"
)

// Robots returns the robots.txt asset. With disableIndexing every path is
// disallowed; otherwise only user pages are.
func Robots(disableIndexing bool) *Asset {
	body := robotsDisallowUser
	if disableIndexing {
		body = robotsDisallowAll
	}
	return &Asset{
		Route:       RobotsPath,
		ContentType: "text/plain",
		Cached:      true,
		Body:        []byte(body),
	}
}

// MountRobots registers the robots.txt route.
func MountRobots(reg router.Registrar, disableIndexing bool) error {
	_, err := reg.Register(http.MethodGet, RobotsPath, Robots(disableIndexing).Handler())
	return err
}
