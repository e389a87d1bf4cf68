// Package register has a registration method that a goroutine.Pool implementation can use
// to register the pool. Registered names are unique in the process, which lets pools
// derive unique worker names from their own name.
package register

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gostdlib/forkjoin/goroutines"
)

var registry = map[string]goroutines.Pool{}
var mu = sync.RWMutex{}

// ErrTaken is returned by Register when the name of the pool is already registered.
var ErrTaken = fmt.Errorf("name already taken")

// Register registers a name for a pool in the registry.
func Register(pool goroutines.Pool) error {
	mu.Lock()
	defer mu.Unlock()

	name := pool.GetName()
	if name == "" {
		return nil
	}

	if _, ok := registry[name]; ok {
		return ErrTaken
	}

	registry[name] = pool
	return nil
}

// Unregister unregisters the pool from the registry.
func Unregister(pool goroutines.Pool) {
	mu.Lock()
	defer mu.Unlock()

	name := pool.GetName()
	if registry[name] == pool {
		delete(registry, name)
	}
}

var numOrHyphen = regexp.MustCompile(`[0-9-\s]`)

// ValidateBaseName returns an error if the name contains numbers, spaces or hyphens.
func ValidateBaseName(name string) error {
	if numOrHyphen.MatchString(name) {
		return fmt.Errorf("name(%s) cannot contain numbers, spaces or hyphens", name)
	}
	return nil
}

// NewName takes the current name of the pool and returns the next candidate name
// by incrementing a numeric suffix: "pool" becomes "pool-1", "pool-1" becomes "pool-2".
func NewName(name string) string {
	i := strings.LastIndex(name, "-")
	if i < 0 {
		return name + "-1"
	}

	n, err := strconv.Atoi(name[i+1:])
	if err != nil {
		panic(fmt.Sprintf("register is broken, name %s is invalid", name))
	}
	return fmt.Sprintf("%s-%d", name[:i], n+1)
}

// Pools returns all pools registered by this package sorted by name.
func Pools() []goroutines.Pool {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]goroutines.Pool, 0, len(registry))
	for _, p := range registry {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}
