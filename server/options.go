package server

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"mini-ack/registry"
)

type Options struct {
	Logger       *zap.Logger
	Output       io.Writer     // where PrintHandler writes received payloads
	ReadTimeout  time.Duration // per stream connection, 0 = none
	WriteTimeout time.Duration // ack write, 0 = none

	Registry      registry.Registry
	AdvertiseAddr string // announced address; defaults to the bound address
	RegistryTTL   int64
	Weight        int // announced balancing weight
}

func DefaultOptions() *Options {
	return &Options{
		Logger:       zap.NewNop(),
		Output:       os.Stdout,
		WriteTimeout: 5 * time.Second,
		RegistryTTL:  10,
	}
}

type Option func(*Options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

func WithOutput(w io.Writer) Option {
	return func(o *Options) {
		o.Output = w
	}
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ReadTimeout = d
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.WriteTimeout = d
	}
}

// WithRegistry announces the listener in reg after it binds and withdraws it
// on Shutdown. advertiseAddr may be empty.
func WithRegistry(reg registry.Registry, advertiseAddr string, ttl int64) Option {
	return func(o *Options) {
		o.Registry = reg
		o.AdvertiseAddr = advertiseAddr
		if ttl > 0 {
			o.RegistryTTL = ttl
		}
	}
}

func WithRegistryWeight(w int) Option {
	return func(o *Options) {
		o.Weight = w
	}
}
