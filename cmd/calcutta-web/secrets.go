package main

import (
	"encoding/base64"
	"fmt"

	"github.com/gorilla/securecookie"
)

type Secrets struct {
	SessionAuthKey string `toml:"session-auth-key"`
	SessionEncKey  string `toml:"session-enc-key"`
	CSRFKey        string `toml:"csrf-key"`
}

func generateKey(dst *string, size int) (bool, error) {
	if *dst != "" {
		return false, nil
	}
	key := securecookie.GenerateRandomKey(size)
	if key == nil {
		return false, fmt.Errorf("cannot generate key")
	}
	*dst = base64.StdEncoding.EncodeToString(key)
	return true, nil
}

// GenerateMissing fills the empty keys with random values. It returns true if anything changed.
func (s *Secrets) GenerateMissing() (bool, error) {
	changed := false
	for _, k := range []struct {
		name string
		dst  *string
		size int
	}{
		{"session auth key", &s.SessionAuthKey, 64},
		{"session enc key", &s.SessionEncKey, 32},
		{"csrf key", &s.CSRFKey, 32},
	} {
		ok, err := generateKey(k.dst, k.size)
		if err != nil {
			return false, fmt.Errorf("%v: %w", k.name, err)
		}
		changed = changed || ok
	}
	return changed, nil
}

func decodeKey(name, s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode %v: %w", name, err)
	}
	return key, nil
}
