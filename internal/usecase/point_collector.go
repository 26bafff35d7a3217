package usecase

import (
	"context"

	"FreshSnap/internal/domain/models"
	drepo "FreshSnap/internal/domain/repository"
	mid "FreshSnap/internal/middleware"
)

// PointCollector collects price points from the market stream and forwards
// them to the processor, optionally through the realtime pipeline.
type PointCollector struct {
	stream  drepo.MarketStream
	proc    *PointProcessor
	metrics drepo.Metrics
	pipe    *mid.RealtimePipeline
}

// NewPointCollector creates a new PointCollector instance.
func NewPointCollector(stream drepo.MarketStream, proc *PointProcessor, metrics drepo.Metrics, pipe *mid.RealtimePipeline) *PointCollector {
	return &PointCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the market stream is connected.
func (c *PointCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *PointCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	ptCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, ptCh, errCh)
	return nil
}

// consume drains the stream channels. A read failure kills the stream's
// channels for good, so after a reconnect the loop must re-acquire fresh
// ones; the old pair is dropped.
func (c *PointCollector) consume(ctx context.Context, ptCh <-chan *models.PricePoint, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok || err != nil {
				c.metrics.RecordError("stream")
				if rerr := c.stream.Reconnect(ctx); rerr != nil {
					c.metrics.RecordError("reconnect")
					continue
				}
				ptCh, errCh = c.stream.Read(ctx)
			}
		case pt, ok := <-ptCh:
			if !ok {
				// closed alongside the error channel; let the error
				// branch drive the reconnect
				ptCh = nil
				continue
			}
			if pt == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, pt)
			} else {
				_ = c.proc.Process(ctx, pt)
			}
		}
	}
}

func (c *PointCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying PointProcessor for lifecycle management.
func (c *PointCollector) Processor() *PointProcessor { return c.proc }

// Shutdown stops the pipeline and closes the stream.
func (c *PointCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
