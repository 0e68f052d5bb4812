package rag

import (
	"context"

	"github.com/w-h-a/mnemo/embedder"
	"github.com/w-h-a/mnemo/generator"
	"github.com/w-h-a/mnemo/memory/providers/vector"
	"github.com/w-h-a/mnemo/rag/loader"
)

type Option func(*Options)

type Options struct {
	Loader       loader.Loader
	Embedder     embedder.Embedder
	Storer       vector.Storer
	Generator    generator.Generator
	ChunkSize    int
	Overlap      int
	MinChunkSize int
	Context      context.Context
}

func WithLoader(l loader.Loader) Option {
	return func(o *Options) {
		o.Loader = l
	}
}

func WithEmbedder(e embedder.Embedder) Option {
	return func(o *Options) {
		o.Embedder = e
	}
}

func WithStorer(s vector.Storer) Option {
	return func(o *Options) {
		o.Storer = s
	}
}

func WithGenerator(g generator.Generator) Option {
	return func(o *Options) {
		o.Generator = g
	}
}

func WithChunkSize(size int) Option {
	return func(o *Options) {
		o.ChunkSize = size
	}
}

func WithOverlap(overlap int) Option {
	return func(o *Options) {
		o.Overlap = overlap
	}
}

func WithMinChunkSize(size int) Option {
	return func(o *Options) {
		o.MinChunkSize = size
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		ChunkSize:    400,
		Overlap:      80,
		MinChunkSize: 50,
		Context:      context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
