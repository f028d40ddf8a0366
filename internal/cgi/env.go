package cgi

import (
	"strconv"
	"strings"

	"webservd/internal/httpparse"
)

// BuildEnv constructs the RFC 3875 meta-variables plus one HTTP_* entry
// per request header other than Content-Type and Content-Length, which
// appear only as CONTENT_TYPE and CONTENT_LENGTH.
func BuildEnv(req *httpparse.Request, serverName, serverPort, scriptPath string) []string {
	env := []string{
		"GATEWAY_INTERFACE=CGI/1.1",
		"SERVER_SOFTWARE=" + serverName,
		"SERVER_PROTOCOL=HTTP/1.1",
		"SERVER_NAME=" + req.Host,
		"SERVER_PORT=" + serverPort,
		"REQUEST_METHOD=" + req.Method,
		"QUERY_STRING=" + req.RawQuery,
		"SCRIPT_NAME=" + req.Path,
		"SCRIPT_FILENAME=" + scriptPath,
	}
	if ct := req.Header.Get("content-type"); ct != "" {
		env = append(env, "CONTENT_TYPE="+ct)
	}
	if req.ContentLength > 0 || req.Header.Get("content-length") != "" {
		env = append(env, "CONTENT_LENGTH="+strconv.FormatInt(int64(len(req.Body)), 10))
	}

	for name, values := range req.Header {
		if name == "content-type" || name == "content-length" {
			continue
		}
		env = append(env, "HTTP_"+httpEnvName(name)+"="+strings.Join(values, ", "))
	}
	return env
}

// httpEnvName converts a lower-cased header name ("x-forwarded-for")
// into its HTTP_* meta-variable form ("X_FORWARDED_FOR").
func httpEnvName(name string) string {
	b := []byte(strings.ToUpper(name))
	for i, c := range b {
		if c == '-' {
			b[i] = '_'
		}
	}
	return string(b)
}
