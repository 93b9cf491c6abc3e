package pseudosession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ggoodman/opcua-pseudosession-go/batch"
	"github.com/ggoodman/opcua-pseudosession-go/internal/logctx"
	"github.com/ggoodman/opcua-pseudosession-go/scheduler"
	"github.com/ggoodman/opcua-pseudosession-go/ua"
)

// Call invokes each method through the session's MethodService. Errors and
// panics raised by the service are contained in the affected item's result
// as BadInternalError. Results are in request order even when
// Config.CallConcurrency lets invocations overlap.
func (s *Session) Call(ctx context.Context, req batch.Request[ua.CallMethodRequest]) *scheduler.Future[batch.Response[ua.CallMethodResult]] {
	return submit(s, ctx, "call", req, func(ctx context.Context, req batch.Request[ua.CallMethodRequest]) (batch.Response[ua.CallMethodResult], error) {
		items := req.Items()
		results := make([]ua.CallMethodResult, len(items))

		if s.cfg.CallConcurrency < 2 || len(items) < 2 {
			for i, item := range items {
				results[i] = s.callOne(ctx, i, item)
			}
			return batch.Collect(req, results), nil
		}

		sem := make(chan struct{}, s.cfg.CallConcurrency)
		var wg sync.WaitGroup
		for i, item := range items {
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				results[i] = s.callOne(ctx, i, item)
			}()
		}
		wg.Wait()
		return batch.Collect(req, results), nil
	})
}

func (s *Session) callOne(ctx context.Context, i int, req ua.CallMethodRequest) (res ua.CallMethodResult) {
	if s.methods == nil {
		return ua.CallMethodResult{StatusCode: ua.BadNotImplemented}
	}
	ctx = logctx.WithItemData(ctx, &logctx.ItemData{Index: i, NodeID: req.MethodID.String()})

	defer func() {
		if r := recover(); r != nil {
			s.log.ErrorContext(ctx, "method panicked", slog.String("panic", fmt.Sprint(r)))
			res = ua.CallMethodResult{StatusCode: ua.BadInternalError}
		}
	}()

	out, err := s.methods.Call(ctx, req)
	if err != nil {
		var code ua.StatusCode
		if errors.As(err, &code) {
			return ua.CallMethodResult{StatusCode: code}
		}
		s.log.ErrorContext(ctx, "method failed", slog.String("err", err.Error()))
		return ua.CallMethodResult{StatusCode: ua.BadInternalError}
	}
	return out
}
