package ports

import "context"

// AddressResolver looks up the node's externally visible address.
type AddressResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// ResolverFunc adapts a plain function to AddressResolver.
type ResolverFunc func(ctx context.Context) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context) (string, error) {
	return f(ctx)
}
