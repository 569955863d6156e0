// Package seed holds the default subscription plans.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"stitchdesk/internal/decimal"
	"stitchdesk/internal/models"
)

//go:embed plans.yaml
var plansYAML []byte

type planFile struct {
	Plans []planEntry `yaml:"plans"`
}

// Missing limits mean unlimited.
type planEntry struct {
	Name         string              `yaml:"name"`
	PlanType     models.PlanType     `yaml:"plan_type"`
	BillingCycle models.BillingCycle `yaml:"billing_cycle"`
	Price        string              `yaml:"price"`
	Limits       struct {
		Customers      *int `yaml:"customers"`
		OrdersPerMonth *int `yaml:"orders_per_month"`
		GalleryImages  *int `yaml:"gallery_images"`
		InventoryItems *int `yaml:"inventory_items"`
		StaffUsers     *int `yaml:"staff_users"`
	} `yaml:"limits"`
}

// Plans returns the embedded plan catalogue.
func Plans() ([]models.Plan, error) { return parsePlans(plansYAML) }

func parsePlans(raw []byte) ([]models.Plan, error) {
	var f planFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse plans: %w", err)
	}
	out := make([]models.Plan, 0, len(f.Plans))
	for i, e := range f.Plans {
		if e.Name == "" || !e.PlanType.Valid() || !e.BillingCycle.Valid() {
			return nil, fmt.Errorf("plan %d: name, plan_type and billing_cycle are required", i+1)
		}
		price, err := decimal.Parse(e.Price)
		if err != nil {
			return nil, fmt.Errorf("plan %q: price: %w", e.Name, err)
		}
		out = append(out, models.Plan{
			Name:              e.Name,
			PlanType:          e.PlanType,
			BillingCycle:      e.BillingCycle,
			Price:             price,
			MaxCustomers:      e.Limits.Customers,
			MaxOrdersPerMonth: e.Limits.OrdersPerMonth,
			MaxGalleryImages:  e.Limits.GalleryImages,
			MaxInventoryItems: e.Limits.InventoryItems,
			MaxStaffUsers:     e.Limits.StaffUsers,
			IsActive:          true,
		})
	}
	return out, nil
}

// PlanStore is the slice of the subscription repository seeding needs.
type PlanStore interface {
	UpsertPlan(ctx context.Context, p *models.Plan) error
}

// Apply upserts every plan and returns how many were written.
func Apply(ctx context.Context, store PlanStore) (int, error) {
	plans, err := Plans()
	if err != nil {
		return 0, err
	}
	for i := range plans {
		if err := store.UpsertPlan(ctx, &plans[i]); err != nil {
			return i, fmt.Errorf("upsert %s: %w", plans[i].Name, err)
		}
	}
	return len(plans), nil
}
