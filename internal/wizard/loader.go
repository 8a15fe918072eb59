package wizard

import (
	"context"
	"errors"
)

func (c *Controller) loadProfessionals(ctx context.Context) {
	list, err := c.store.ListActiveProfessionals(ctx)
	if err != nil {
		c.loadFailed(ctx, "professionals", err)
		return
	}

	c.mu.Lock()
	c.professionals = list
	c.professionalsLoaded = true
	c.mu.Unlock()
	c.logger.Debug().Int("count", len(list)).Msg("Professionals loaded")
}

// loadServices fetches the services of professionalID. The result is applied
// only if that professional is still the selected one and no newer load was
// started in between.
func (c *Controller) loadServices(ctx context.Context, professionalID int64, gen uint64) error {
	list, err := c.store.ListActiveServices(ctx, professionalID)

	c.mu.Lock()
	p, ok := c.session.Professional()
	if !ok || p.ID != professionalID || gen != c.serviceGen {
		c.mu.Unlock()
		c.logger.Debug().
			Int64("professional_id", professionalID).
			Uint64("generation", gen).
			Msg("Discarding stale service list")
		return ErrSuperseded
	}
	if err != nil {
		c.mu.Unlock()
		c.loadFailed(ctx, "services", err)
		return nil
	}
	c.services = list
	c.servicesFor = professionalID
	c.servicesLoaded = true
	c.mu.Unlock()

	c.logger.Debug().Int64("professional_id", professionalID).Int("count", len(list)).Msg("Services loaded")
	return nil
}

func (c *Controller) loadHistory(ctx context.Context, clientID int64) {
	list, err := c.store.ListAppointmentsByClient(ctx, clientID)
	if err != nil {
		c.loadFailed(ctx, "history", err)
		return
	}

	c.mu.Lock()
	if c.receipt == nil || c.receipt.Profile.ID != clientID {
		c.mu.Unlock()
		return
	}
	c.history = list
	c.historyLoaded = true
	c.mu.Unlock()
}

func (c *Controller) loadFailed(ctx context.Context, op string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	c.metrics.LoaderError(op)
	c.logger.Warn().Err(err).Str("loader", op).Msg("Load failed")
	c.notifier.Notify(ctx, Notification{Kind: KindError, Err: &LoadError{Op: op, Err: err}})
}
