package source

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/go-rod/rod/lib/proto"
)

const siteOrigin = "https://www.bilibili.com"

// StorageState is a persisted browser profile: a cookie jar plus per-origin
// localStorage pairs, exported by an earlier interactive login. Reusing it
// avoids logging in on every crawl.
type StorageState struct {
	Cookies []StateCookie `json:"cookies"`
	Origins []StateOrigin `json:"origins"`
}

type StateCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
}

type StateOrigin struct {
	Origin       string    `json:"origin"`
	LocalStorage []StateKV `json:"localStorage"`
}

type StateKV struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func LoadStorageState(path string) (*StorageState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read storage state: %w", err)
	}

	var state StorageState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse storage state %s: %w", path, err)
	}
	return &state, nil
}

// CookieParams converts the jar for injection into a rod browser.
func (s *StorageState) CookieParams() []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  proto.TimeSinceEpoch(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	return params
}

// LocalStorage returns the stored key-value pairs for one origin.
func (s *StorageState) LocalStorage(origin string) []StateKV {
	for _, o := range s.Origins {
		if o.Origin == origin {
			return o.LocalStorage
		}
	}
	return nil
}

// Credential is the session cookie set the target site authenticates with.
type Credential struct {
	Sessdata    string
	BiliJct     string
	Buvid3      string
	Buvid4      string
	DedeUserID  string
	AcTimeValue string
}

// Credential extracts the site credential from the profile: the cookies
// bound to the site's domain plus the refresh token kept in localStorage.
func (s *StorageState) Credential() Credential {
	cookies := make(map[string]string)
	for _, c := range s.Cookies {
		if c.Domain == ".bilibili.com" {
			cookies[c.Name] = c.Value
		}
	}

	local := make(map[string]string)
	for _, kv := range s.LocalStorage(siteOrigin) {
		local[kv.Name] = kv.Value
	}

	return Credential{
		Sessdata:    cookies["SESSDATA"],
		BiliJct:     cookies["bili_jct"],
		Buvid3:      cookies["buvid3"],
		Buvid4:      cookies["buvid4"],
		DedeUserID:  cookies["DedeUserID"],
		AcTimeValue: local["ac_time_value"],
	}
}

// Cookies renders the credential for an HTTP client.
func (c Credential) Cookies() []*http.Cookie {
	pairs := []struct{ name, value string }{
		{"SESSDATA", c.Sessdata},
		{"bili_jct", c.BiliJct},
		{"buvid3", c.Buvid3},
		{"buvid4", c.Buvid4},
		{"DedeUserID", c.DedeUserID},
	}

	var out []*http.Cookie
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		out = append(out, &http.Cookie{
			Name:   p.name,
			Value:  p.value,
			Domain: ".bilibili.com",
			Path:   "/",
		})
	}
	return out
}
