package auth

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// DomainURL returns scheme://host as seen by the visitor. Loopback hosts use plain http;
// other hosts use https unless X-Forwarded-Proto says otherwise.
func DomainURL(r *http.Request) string {
	host := firstHeaderValue(r.Header.Get("X-Forwarded-Host"))
	if host == "" {
		host = r.Host
	}
	proto := "https"
	if isLoopback(host) {
		proto = "http"
	} else if forwarded := firstHeaderValue(r.Header.Get("X-Forwarded-Proto")); forwarded != "" {
		proto = forwarded
	}
	return proto + "://" + host
}

func firstHeaderValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func isLoopback(host string) bool {
	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}
	hostname = strings.Trim(hostname, "[]")
	if strings.EqualFold(hostname, "localhost") {
		return true
	}
	ip := net.ParseIP(hostname)
	return ip != nil && ip.IsLoopback()
}

func buildLink(domainURL, callbackPath, param, token string) (string, error) {
	u, err := url.Parse(domainURL + callbackPath)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(param, token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func tokenFromLink(link, param string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Query().Get(param)
}

// postForm parses urlencoded and multipart bodies into one set of values.
func postForm(r *http.Request) (url.Values, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return nil, err
		}
		return r.PostForm, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return r.PostForm, nil
}

// phoneFrom returns the submitted phone field, or ErrMissingPhone.
func phoneFrom(form url.Values, field string) (string, error) {
	values, ok := form[field]
	if !ok || len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return "", ErrMissingPhone
	}
	return values[0], nil
}
