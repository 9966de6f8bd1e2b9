package oauth

import (
	"strings"

	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

// AuthCodeURL builds GitHub's authorization URL with the client id, redirect
// target, requested scopes, and the CSRF state.
func AuthCodeURL(clientID, redirectURL, scopes, state string) string {
	conf := &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURL,
		Scopes:      splitScopes(scopes),
		Endpoint:    githuboauth.Endpoint,
	}
	return conf.AuthCodeURL(state)
}

func splitScopes(scopes string) []string {
	var out []string
	for _, s := range strings.FieldsFunc(scopes, func(r rune) bool { return r == ',' || r == ' ' }) {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
