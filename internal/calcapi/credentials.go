package calcapi

import (
	"net/http"
	"slices"
	"time"
)

type Cookie struct {
	Name  string
	Value string
}

// Credentials hold the remote API cookies of one browser session. They are stored in the
// browser's session between requests.
type Credentials struct {
	Cookies []Cookie
}

func (c *Credentials) Empty() bool {
	return c == nil || len(c.Cookies) == 0
}

func (c *Credentials) Clear() {
	if c != nil {
		c.Cookies = nil
	}
}

func (c *Credentials) apply(req *http.Request) {
	if c == nil {
		return
	}
	for _, ck := range c.Cookies {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
}

func (c *Credentials) set(name, value string) {
	idx := slices.IndexFunc(c.Cookies, func(ck Cookie) bool { return ck.Name == name })
	if idx < 0 {
		c.Cookies = append(c.Cookies, Cookie{Name: name, Value: value})
		return
	}
	c.Cookies[idx].Value = value
}

func (c *Credentials) remove(name string) {
	c.Cookies = slices.DeleteFunc(c.Cookies, func(ck Cookie) bool { return ck.Name == name })
}

// update merges the cookies set by a response.
func (c *Credentials) update(rsp *http.Response, now time.Time) {
	if c == nil {
		return
	}
	for _, ck := range rsp.Cookies() {
		expired := ck.MaxAge < 0 || (!ck.Expires.IsZero() && ck.Expires.Before(now))
		if expired || ck.Value == "" {
			c.remove(ck.Name)
			continue
		}
		c.set(ck.Name, ck.Value)
	}
}

func (c *Credentials) Clone() *Credentials {
	if c == nil {
		return &Credentials{}
	}
	return &Credentials{Cookies: slices.Clone(c.Cookies)}
}

func (c *Credentials) get(name string) (string, bool) {
	idx := slices.IndexFunc(c.Cookies, func(ck Cookie) bool { return ck.Name == name })
	if idx < 0 {
		return "", false
	}
	return c.Cookies[idx].Value, true
}

// Merge applies to c the changes that were made to the copy changed since it was cloned from
// base. It allows to use the same credentials in concurrent requests.
func (c *Credentials) Merge(base, changed *Credentials) {
	if c == nil {
		return
	}
	for _, ck := range changed.Cookies {
		if v, ok := base.get(ck.Name); !ok || v != ck.Value {
			c.set(ck.Name, ck.Value)
		}
	}
	for _, ck := range base.Cookies {
		if _, ok := changed.get(ck.Name); !ok {
			c.remove(ck.Name)
		}
	}
}
