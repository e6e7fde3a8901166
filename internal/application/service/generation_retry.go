package service

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/output"
)

const defaultGenerationBackoff = 250 * time.Millisecond

// generationCall bundles what every model call in this package needs
type generationCall struct {
	gateway output.GenerationGateway
	limiter *GenerationLimiter
	retries int
	backoff time.Duration
}

// run sends req until clean yields non-empty text or the retry budget is spent.
// Each attempt takes a limiter slot and carries req.Timeout as its own deadline.
func (g generationCall) run(ctx context.Context, req output.GenerationRequest, clean func(string) string, onFail func(attempt int, err error)) (text string, attempts int, err error) {
	base := g.backoff
	if base <= 0 {
		base = defaultGenerationBackoff
	}
	backoff := retry.WithMaxRetries(uint64(max(g.retries, 0)), retry.NewExponential(base))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		out, err := g.once(ctx, req, clean)
		if err != nil {
			if onFail != nil {
				onFail(attempts, err)
			}
			return retry.RetryableError(err)
		}
		text = out
		return nil
	})
	return text, attempts, err
}

func (g generationCall) once(ctx context.Context, req output.GenerationRequest, clean func(string) string) (string, error) {
	var text string
	call := func(ctx context.Context) error {
		if req.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, req.Timeout)
			defer cancel()
		}
		resp, err := g.gateway.Generate(ctx, req)
		if err != nil {
			return err
		}
		text = clean(resp.Text)
		if text == "" {
			return output.ErrEmptyGeneration
		}
		return nil
	}

	if g.limiter == nil {
		return text, call(ctx)
	}
	return text, g.limiter.Do(ctx, call)
}
