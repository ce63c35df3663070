package uploader

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Credential is the transfer target handed out by the negotiation endpoint.
// It stays unchanged for the whole upload.
type Credential struct {
	UploadURL string            `json:"upload_url"`
	Method    string            `json:"http_method"`
	Headers   map[string]string `json:"headers"`
}

func (c *Credential) method() string {
	if len(c.Method) == 0 {
		return http.MethodPut
	}
	return strings.ToUpper(c.Method)
}

func (c *Credential) cloneHeaders(extra int) map[string]string {
	rs := make(map[string]string, len(c.Headers)+extra)
	for k, v := range c.Headers {
		rs[k] = v
	}
	return rs
}

// ResourceIDFromURL returns the last non-empty path segment of the upload url,
// e.g. the video id of /library/{lib}/videos/{id}.
func ResourceIDFromURL(uploadURL string) (string, error) {
	u, err := url.Parse(uploadURL)
	if err != nil {
		return "", fmt.Errorf("parse upload url failed, err:%w", err)
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segs) - 1; i >= 0; i-- {
		if len(segs[i]) == 0 {
			continue
		}
		id, err := url.PathUnescape(segs[i])
		if err != nil {
			return "", fmt.Errorf("unescape resource id failed, seg:%s, err:%w", segs[i], err)
		}
		return id, nil
	}
	return "", fmt.Errorf("no resource id found in url:%s", uploadURL)
}
