package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stitchdesk/internal/models"
)

func TestPlans(t *testing.T) {
	plans, err := Plans()
	require.NoError(t, err)
	require.Len(t, plans, 4)

	basic := plans[0]
	assert.Equal(t, models.PlanBasic, basic.PlanType)
	assert.Equal(t, models.CycleMonthly, basic.BillingCycle)
	assert.Equal(t, "599.00", basic.Price.String())
	require.NotNil(t, basic.MaxCustomers)
	assert.Equal(t, 100, *basic.MaxCustomers)
	assert.Equal(t, 1, *basic.MaxStaffUsers)

	pro := plans[3]
	assert.Equal(t, models.PlanPro, pro.PlanType)
	assert.Equal(t, "10990.00", pro.Price.String())
	assert.Nil(t, pro.MaxCustomers)
	assert.Nil(t, pro.MaxOrdersPerMonth)
	assert.True(t, pro.IsActive)
}

func TestParsePlansRejectsBadEntries(t *testing.T) {
	_, err := parsePlans([]byte("plans:\n  - name: X\n    plan_type: gold\n    billing_cycle: monthly\n    price: \"1\"\n"))
	assert.Error(t, err)

	_, err = parsePlans([]byte("plans:\n  - name: X\n    plan_type: pro\n    billing_cycle: monthly\n    price: abc\n"))
	assert.Error(t, err)
}

type planRecorder struct {
	got  []string
	fail string
}

func (r *planRecorder) UpsertPlan(_ context.Context, p *models.Plan) error {
	if p.Name == r.fail {
		return errors.New("db down")
	}
	r.got = append(r.got, p.Name)
	return nil
}

func TestApply(t *testing.T) {
	rec := &planRecorder{}
	n, err := Apply(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []string{"Basic Monthly", "Basic Yearly", "Pro Monthly", "Pro Yearly"}, rec.got)

	n, err = Apply(context.Background(), &planRecorder{fail: "Pro Monthly"})
	assert.Error(t, err)
	assert.Equal(t, 2, n)
}
