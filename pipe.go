package etl

import (
	"context"
	"fmt"
)

// Pipe is either a Transformer or a Loader; exactly one of the two is set
type Pipe struct {
	transformer Transformer
	loader      Loader
}

// TransformerPipe wraps a Transformer as a Pipe
func TransformerPipe(t Transformer) Pipe {
	return Pipe{transformer: t}
}

// LoaderPipe wraps a Loader as a Pipe
func LoaderPipe(l Loader) Pipe {
	return Pipe{loader: l}
}

// IsTransformer returns true iff this Pipe wraps a Transformer
func (p Pipe) IsTransformer() bool {
	return p.transformer != nil
}

// IsLoader returns true iff this Pipe wraps a Loader
func (p Pipe) IsLoader() bool {
	return p.loader != nil
}

// Transformer returns the wrapped Transformer, or nil
func (p Pipe) Transformer() Transformer {
	return p.transformer
}

// Loader returns the wrapped Loader, or nil
func (p Pipe) Loader() Loader {
	return p.loader
}

// Apply runs this Pipe against rows. Transformers replace the batch; Loaders
// return it unchanged.
func (p Pipe) Apply(ctx context.Context, rows Rows) (Rows, error) {
	switch {
	case p.transformer != nil:
		return p.transformer.Transform(ctx, rows)
	case p.loader != nil:
		return rows, p.loader.Load(ctx, rows)
	default:
		return rows, nil
	}
}

// Name returns the type name of the wrapped Transformer or Loader
func (p Pipe) Name() string {
	switch {
	case p.transformer != nil:
		return fmt.Sprintf("%T", p.transformer)
	case p.loader != nil:
		return fmt.Sprintf("%T", p.loader)
	default:
		return "<nil>"
	}
}
