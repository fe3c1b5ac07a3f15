// Package di provides a small dependency injection container with typed tokens.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry resolves services by key.
type ServiceRegistry interface {
	Get(key string) any
}

// Container registers services and lazily built singletons.
type Container interface {
	ServiceRegistry
	Register(key string, value any)
	AddSingleton(key string, factory func(ServiceRegistry) any)
	Has(key string) bool
}

type singleton struct {
	once    sync.Once
	factory func(ServiceRegistry) any
	value   any
}

type container struct {
	mu         sync.RWMutex
	values     map[string]any
	singletons map[string]*singleton
}

// NewContainer returns an empty container.
func NewContainer() Container {
	return &container{
		values:     make(map[string]any),
		singletons: make(map[string]*singleton),
	}
}

func (c *container) Register(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	delete(c.singletons, key)
}

func (c *container) AddSingleton(key string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.singletons[key] = &singleton{factory: factory}
	delete(c.values, key)
}

func (c *container) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.values[key]
	if !ok {
		_, ok = c.singletons[key]
	}
	return ok
}

// Get returns the service registered under key. It panics when nothing is
// registered, which is a wiring bug rather than a runtime condition.
func (c *container) Get(key string) any {
	c.mu.RLock()
	v, ok := c.values[key]
	s, lazy := c.singletons[key]
	c.mu.RUnlock()

	if ok {
		return v
	}
	if !lazy {
		panic(fmt.Sprintf("di: service %q not registered", key))
	}

	// The factory runs outside the lock so it can resolve its own dependencies.
	s.once.Do(func() {
		s.value = s.factory(c)
	})
	return s.value
}

// Token is a typed key for a service.
type Token[T any] struct {
	key string
}

// NewToken creates a token for key.
func NewToken[T any](key string) Token[T] {
	return Token[T]{key: key}
}

// Key returns the registry key.
func (t Token[T]) Key() string {
	return t.key
}

// RegisterToken registers a lazy singleton factory for the token.
func RegisterToken[T any](c Container, t Token[T], factory func(ServiceRegistry) T) {
	c.AddSingleton(t.key, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// ProvideToken registers an already constructed value for the token.
func ProvideToken[T any](c Container, t Token[T], value T) {
	c.Register(t.key, value)
}

// GetToken resolves the token.
func GetToken[T any](sr ServiceRegistry, t Token[T]) T {
	v := sr.Get(t.key)
	typed, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has type %T", t.key, v))
	}
	return typed
}
