// Package upstream talks to fixed external endpoints outside the proxy
// routes: the cached commit and instance feeds, and the startup
// rate-limit probe.
package upstream
