package services

import (
	"context"
	"errors"

	"github.com/cppla/threads/repository"
	"go.uber.org/zap"
)

// mutate runs fn as one unit. On a store without transactions a failed fn is
// followed by undo, which must tolerate steps that never ran.
func (b *base) mutate(ctx context.Context, op string, fn func(ctx context.Context) error, undo func(ctx context.Context) error) error {
	err := b.tx.WithTransaction(ctx, fn)
	if err == nil || b.tx.Transactional() || undo == nil {
		return err
	}
	if uerr := undo(context.WithoutCancel(ctx)); uerr != nil {
		b.log.Error("compensation failed",
			zap.String("op", op),
			zap.Error(uerr),
			zap.NamedError("cause", err),
		)
	}
	return err
}

func isMissing(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
