package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stitchdesk/internal/models"
	"stitchdesk/internal/repository"
)

type UsageCounter func(ctx context.Context, shopID uuid.UUID) (UsageCounts, error)

type repoCounter struct {
	customers repository.CustomerRepository
	orders    repository.OrderRepository
	gallery   repository.GalleryRepository
	inventory repository.InventoryRepository
	users     repository.UserRepository
	now       func() time.Time
}

// Count runs the five counts concurrently.
func (r repoCounter) Count(ctx context.Context, shopID uuid.UUID) (UsageCounts, error) {
	var c UsageCounts
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { c.Customers, err = r.customers.Count(ctx, shopID); return })
	g.Go(func() (err error) {
		c.OrdersThisMonth, err = r.orders.CountSince(ctx, shopID, startOfMonth(r.now()))
		return
	})
	g.Go(func() (err error) { c.GalleryImages, err = r.gallery.CountShopImages(ctx, shopID); return })
	g.Go(func() (err error) { c.InventoryItems, err = r.inventory.CountItems(ctx, shopID); return })
	g.Go(func() (err error) { c.Staff, err = r.users.CountStaff(ctx, shopID); return })
	if err := g.Wait(); err != nil {
		return UsageCounts{}, err
	}
	return c, nil
}

// MyUsage reports every usage limit of the caller's plan against what the
// shop has right now.
func (s *SubscriptionService) MyUsage(ctx context.Context, u *models.User) (*UsageLimits, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	var c UsageCounts
	if s.Counts != nil {
		if c, err = s.Counts(ctx, shopID); err != nil {
			return nil, err
		}
	}
	return s.Usage(ctx, u, c)
}
