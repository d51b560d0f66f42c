package main

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/focus-vault/internal/errs"
)

var errInternal = errors.New("internal error")

// logged records each command's outcome at debug level, without arguments.
func logged(log *zap.Logger, name string, next command) command {
	return func(ctx context.Context, c *cli, args []string) error {
		start := time.Now()
		err := next(ctx, c, args)

		kind := "ok"
		if err != nil {
			kind = "unclassified"
			if k := errs.Kind(err); k != nil {
				kind = k.Error()
			}
		}
		log.Debug("command",
			zap.String("cmd", name),
			zap.String("result", kind),
			zap.Duration("dur", time.Since(start)),
		)
		return err
	}
}

// recovered turns a panic into errInternal so the user sees one line.
func recovered(log *zap.Logger, name string, next command) command {
	return func(ctx context.Context, c *cli, args []string) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("cmd", name),
				)
				err = errInternal
			}
		}()
		return next(ctx, c, args)
	}
}
