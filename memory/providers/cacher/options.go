package cacher

import (
	"context"
	"time"
)

type Option func(*Options)

type Options struct {
	Location    string
	MaxMessages int
	TTL         time.Duration
	Context     context.Context
}

func WithLocation(loc string) Option {
	return func(o *Options) {
		o.Location = loc
	}
}

func WithMaxMessages(max int) Option {
	return func(o *Options) {
		o.MaxMessages = max
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.TTL = ttl
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		MaxMessages: 50,
		TTL:         24 * time.Hour,
		Context:     context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
