package main

import (
	"os"
	"strconv"
	"strings"
)

// env reads SP_* settings. Unset, blank and unparsable values all fall back
// to the default.
func env(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func envBool(key string, def bool) bool {
	v, ok := env(key)
	if !ok {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt only accepts positive values.
func envInt(key string, def int) int {
	v, ok := env(key)
	if !ok {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return n
	}
	return def
}

func envString(key, def string) string {
	if v, ok := env(key); ok {
		return v
	}
	return def
}
