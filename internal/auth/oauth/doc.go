// Package oauth maintains the short-lived access token the gateway presents
// to the upstream API.
//
// The Manager obtains tokens with the client credentials grant and keeps
// the current one in memory. When the held token is missing or about to
// expire, concurrent callers share a single token request:
//
//	mgr, err := oauth.NewManager(oauth.Config{
//	    TokenEndpoint: "https://www.example.com/api/v1/access_token",
//	    ClientID:      "client",
//	    RefreshMargin: time.Minute,
//	})
//	token, err := mgr.Token(ctx)
//
// A failed round is reported to every caller that waited on it. The next
// call starts a new round; Token does not retry on its own.
package oauth
