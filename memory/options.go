package memory

import (
	"context"

	"github.com/w-h-a/mnemo/generator"
	"github.com/w-h-a/mnemo/memory/providers/cacher"
	"github.com/w-h-a/mnemo/memory/providers/facts"
	"github.com/w-h-a/mnemo/memory/providers/vector"
)

type Option func(*Options)

type Options struct {
	Cacher    cacher.Cacher
	Facts     facts.Storer
	Summaries facts.SummaryStorer
	Vector    vector.Storer
	Generator generator.Generator
	Context   context.Context
}

func WithCacher(c cacher.Cacher) Option {
	return func(o *Options) {
		o.Cacher = c
	}
}

func WithFacts(f facts.Storer) Option {
	return func(o *Options) {
		o.Facts = f
	}
}

func WithSummaries(s facts.SummaryStorer) Option {
	return func(o *Options) {
		o.Summaries = s
	}
}

func WithVector(v vector.Storer) Option {
	return func(o *Options) {
		o.Vector = v
	}
}

func WithGenerator(g generator.Generator) Option {
	return func(o *Options) {
		o.Generator = g
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type FullContextOption func(*FullContextOptions)

type FullContextOptions struct {
	IncludeFacts      bool
	IncludeSemantic   bool
	MaxTokens         int
	SemanticLimit     int
	SemanticThreshold float64
}

func FullContextWithoutFacts() FullContextOption {
	return func(o *FullContextOptions) {
		o.IncludeFacts = false
	}
}

func FullContextWithoutSemantic() FullContextOption {
	return func(o *FullContextOptions) {
		o.IncludeSemantic = false
	}
}

func FullContextWithMaxTokens(maxTokens int) FullContextOption {
	return func(o *FullContextOptions) {
		o.MaxTokens = maxTokens
	}
}

func FullContextWithSemanticLimit(limit int) FullContextOption {
	return func(o *FullContextOptions) {
		o.SemanticLimit = limit
	}
}

func FullContextWithSemanticThreshold(threshold float64) FullContextOption {
	return func(o *FullContextOptions) {
		o.SemanticThreshold = threshold
	}
}

func NewFullContextOptions(opts ...FullContextOption) FullContextOptions {
	options := FullContextOptions{
		IncludeFacts:      true,
		IncludeSemantic:   true,
		MaxTokens:         2000,
		SemanticLimit:     5,
		SemanticThreshold: 0.7,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
