package cookies

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const httpOnlyPrefix = "#HttpOnly_"

// Parse reads cookies in the tab-separated Netscape jar format: domain,
// include-subdomains flag, path, secure flag, expiry, name, value.
// Comment and blank lines are skipped.
func Parse(r io.Reader) ([]*http.Cookie, error) {
	var cookies []*http.Cookie

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJarSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			httpOnly = true
			line = strings.TrimPrefix(line, httpOnlyPrefix)
		}
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			return nil, fmt.Errorf("line %d: want 7 tab-separated fields, got %d", lineNo, len(fields))
		}

		expiry, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid expiry %q", lineNo, fields[4])
		}

		c := &http.Cookie{
			Domain:   fields[0],
			Path:     fields[2],
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			Name:     fields[5],
			Value:    fields[6],
			HttpOnly: httpOnly,
		}
		if expiry > 0 {
			c.Expires = time.Unix(expiry, 0)
		}
		cookies = append(cookies, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cookies, nil
}

// LoadJar reads a Netscape jar file into an http.CookieJar. Expired
// cookies are dropped.
func LoadJar(path string) (http.CookieJar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jar: %w", err)
	}
	defer f.Close()

	cookies, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse jar: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	byHost := make(map[string][]*http.Cookie)
	for _, c := range cookies {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}
		host := strings.TrimPrefix(c.Domain, ".")
		byHost[host] = append(byHost[host], c)
	}
	for host, cs := range byHost {
		jar.SetCookies(&url.URL{Scheme: "https", Host: host, Path: "/"}, cs)
	}

	return jar, nil
}
