// Package assets serves the embedded static bundle.
//
// The bundle is read once at startup. Text assets are checked to be
// valid UTF-8 and a failure aborts startup with a *DecodeError naming the
// asset. The stylesheet is style.css followed by every theme under
// themes/ in name order.
package assets
