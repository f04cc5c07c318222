package conform

import (
	"context"
	"errors"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// RowSource yields decoded rows in source order. Next returns io.EOF after
// the last row.
type RowSource interface {
	Next() (Row, error)
}

type indexedRow struct {
	index int
	row   Row
}

// ConvertAll streams rows through the assembler with bounded concurrency.
// Rows are independent, so workers evaluate them in parallel; records are
// re-ordered by source row index before emit, preserving input order.
// Returns the number of records emitted.
func ConvertAll(ctx context.Context, asm *Assembler, src RowSource, concurrency int, emit func(Record) error) (int, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	rowCh := make(chan indexedRow, concurrency*2)
	recCh := make(chan Record, concurrency*2)

	g.Go(func() error {
		defer close(rowCh)
		for i := 0; ; i++ {
			row, err := src.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return eris.Wrapf(err, "conform: read row %d", i)
			}
			select {
			case rowCh <- indexedRow{index: i, row: row}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	g.Go(func() error {
		workers, wctx := errgroup.WithContext(gctx)
		for w := 0; w < concurrency; w++ {
			workers.Go(func() error {
				for ir := range rowCh {
					rec := asm.Assemble(ir.row)
					rec.Index = ir.index
					select {
					case recCh <- rec:
					case <-wctx.Done():
						return wctx.Err()
					}
				}
				return nil
			})
		}
		err := workers.Wait()
		close(recCh)
		return err
	})

	// Collector: reimpose source order before emitting.
	pending := make(map[int]Record)
	next := 0
	emitted := 0
	var emitErr error

	for rec := range recCh {
		if emitErr != nil {
			continue // drain
		}
		pending[rec.Index] = rec
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if err := emit(r); err != nil {
				emitErr = eris.Wrapf(err, "conform: emit record %d", next)
				cancel()
				break
			}
			next++
			emitted++
		}
	}

	if err := g.Wait(); err != nil && emitErr == nil {
		return emitted, err
	}
	return emitted, emitErr
}
