package match

import "net/url"

// SearchLink returns the bookmaker search URL for s, querying "Home Away".
// It returns "" when base is empty or not a URL.
func SearchLink(base string, s Snapshot) string {
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("query", s.Home+" "+s.Away)
	u.RawQuery = q.Encode()
	return u.String()
}
