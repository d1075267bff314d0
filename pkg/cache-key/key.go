package cachekey

import (
	"fmt"
	"strings"

	"github.com/always-cache/filehttp/pkg/message"
)

var ErrorMethodNotSupported = fmt.Errorf("Method not supported")

// GetKey returns the cache key for a request: the host followed by the path.
// The host comes from the request's Host header, or fallbackHost when the
// header is absent. Only GET requests have keys.
func GetKey(req *message.Request, fallbackHost string) (string, error) {
	if req.Verb != message.GET {
		return "", ErrorMethodNotSupported
	}
	host, ok := req.Header.Get("host")
	if !ok || strings.TrimSpace(host) == "" {
		host = fallbackHost
	}
	return strings.ToLower(strings.TrimSpace(host)) + req.Path, nil
}
