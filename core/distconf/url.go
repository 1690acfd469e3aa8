package distconf

import "strings"

// ParseConnectorURL splits a connector URL of the form
// scheme://host:port[/endpoint] into host, port and endpoint. Any segment may
// be missing; an empty url yields three empty strings, a url without a path
// yields an empty endpoint. The host segment equals the name of the compose
// container serving the pipeline service.
func ParseConnectorURL(url string) (host, port, endpoint string) {
	if url == "" {
		return "", "", ""
	}
	rest := url
	if i := strings.Index(rest, "//"); i >= 0 {
		rest = rest[i+2:]
	}
	hostport, path, _ := strings.Cut(rest, "/")
	host, port, _ = strings.Cut(hostport, ":")
	return host, port, path
}
