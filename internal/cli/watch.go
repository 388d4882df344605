package cli

import (
	"context"

	"github.com/aretw0/xui/pkg/domain"
	"github.com/aretw0/xui/pkg/subscription"
)

// Watch prints every snapshot of collection as one EJSON line until ctx is done.
func (a *App) Watch(ctx context.Context, collection string) error {
	source, err := a.OpenSource(collection)
	if err != nil {
		return err
	}

	sub, err := subscription.Start(ctx, source,
		func(docs []domain.Document) {
			if err := printLine(a.Out, docs); err != nil {
				a.Logger.Warn("Failed to print snapshot", "err", err)
			}
		},
		subscription.WithIDField(a.Config.Transport.IDField),
		subscription.WithLogger(a.Logger),
		subscription.WithOnReady(func() {
			a.Logger.Info("Collection ready", "collection", collection)
		}),
	)
	if err != nil {
		return err
	}
	defer sub.Stop()

	<-ctx.Done()
	return nil
}
