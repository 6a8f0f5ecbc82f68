package tracing

import (
	"context"
	"iter"
)

// WrapSeq wraps a function producing a lazy sequence. The span opens when
// iteration begins and stays open for the sequence's whole lifetime: it ends
// when the sequence is exhausted, when the consumer abandons iteration early
// (normal completion, not an error), or when production panics (error). The
// output capture records the element count and last element, never the full
// stream.
func WrapSeq[I, O any](kind Kind, fn func(context.Context, I) iter.Seq[O], opts ...Option) func(context.Context, I) iter.Seq[O] {
	cfg := newConfig(fn, opts)
	return func(ctx context.Context, in I) iter.Seq[O] {
		return func(yield func(O) bool) {
			ctx, sc := start(ctx, kind, cfg, in)
			out := streamOutput{}
			defer func() {
				if r := recover(); r != nil {
					sc.abort(r)
					panic(r)
				}
				sc.close(ctx, out, nil)
			}()
			for v := range fn(ctx, in) {
				out.Count++
				out.Last = v
				if !yield(v) {
					return
				}
			}
		}
	}
}

// WrapSeq2 wraps a function producing a lazy sequence whose production can
// fail mid-stream. Every element is delivered to the consumer unchanged; the
// first non-nil error marks the span as failed when it closes.
func WrapSeq2[I, O any](kind Kind, fn func(context.Context, I) iter.Seq2[O, error], opts ...Option) func(context.Context, I) iter.Seq2[O, error] {
	cfg := newConfig(fn, opts)
	return func(ctx context.Context, in I) iter.Seq2[O, error] {
		return func(yield func(O, error) bool) {
			ctx, sc := start(ctx, kind, cfg, in)
			out := streamOutput{}
			var firstErr error
			defer func() {
				if r := recover(); r != nil {
					sc.abort(r)
					panic(r)
				}
				if firstErr != nil {
					sc.close(ctx, nil, firstErr)
				} else {
					sc.close(ctx, out, nil)
				}
			}()
			for v, err := range fn(ctx, in) {
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
				} else {
					out.Count++
					out.Last = v
				}
				if !yield(v, err) {
					return
				}
			}
		}
	}
}
