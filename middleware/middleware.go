// Package middleware holds the HTTP middleware used by the bundled server.
package middleware

import "net/http"

// Middleware wraps an http.Handler to add functionality.
type Middleware func(http.Handler) http.Handler

// Chain represents a chain of middlewares that can be applied to a handler
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares}
}

// Use adds a middleware to the chain
func (c *Chain) Use(middleware Middleware) *Chain {
	c.middlewares = append(c.middlewares, middleware)
	return c
}

// Apply wraps h so the first middleware added runs outermost.
func (c *Chain) Apply(h http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		h = c.middlewares[i](h)
	}
	return h
}
