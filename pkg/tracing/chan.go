package tracing

import "context"

// WrapChan wraps a function producing a channel stream. Elements from the
// source channel are relayed to the returned channel; the span stays open
// until the source closes (normal completion) or ctx is cancelled while the
// stream is live (cancellation status). An error from fn itself closes the
// span immediately with error status and passes through unchanged.
func WrapChan[I, O any](kind Kind, fn func(context.Context, I) (<-chan O, error), opts ...Option) func(context.Context, I) (<-chan O, error) {
	cfg := newConfig(fn, opts)
	return func(ctx context.Context, in I) (<-chan O, error) {
		ctx, sc := start(ctx, kind, cfg, in)
		src, err := fn(ctx, in)
		if err != nil {
			sc.close(ctx, nil, err)
			return nil, err
		}

		out := make(chan O)
		go func() {
			defer close(out)
			agg := streamOutput{}
			for {
				select {
				case <-ctx.Done():
					sc.close(ctx, nil, ctx.Err())
					return
				case v, ok := <-src:
					if !ok {
						sc.close(ctx, agg, nil)
						return
					}
					agg.Count++
					agg.Last = v
					select {
					case out <- v:
					case <-ctx.Done():
						sc.close(ctx, nil, ctx.Err())
						return
					}
				}
			}
		}()
		return out, nil
	}
}
