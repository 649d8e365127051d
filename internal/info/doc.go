// Package info renders the instance information page as html, json,
// yaml or plain text.
package info
