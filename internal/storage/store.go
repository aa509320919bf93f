// Package storage provides the durable key-value backends session
// credentials are persisted to. Every backend satisfies Store; the session
// manager never touches a concrete backend directly.
package storage

import (
	"errors"
	"strings"
)

var ErrInvalidNamespace = errors.New("invalid storage namespace")

// Store is a small string key-value capability. Removing an absent key is
// not an error.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key string, value string) error
	Remove(keys ...string) error
}

// IsValidNamespace reports whether name can be used as a file name or redis
// key segment. Namespaces are usually the identity service hostname.
func IsValidNamespace(name string) bool {

	if len(name) == 0 || name == "." || name == ".." {
		return false
	}

	return !strings.ContainsAny(name, "/\\ \t\n")
}
