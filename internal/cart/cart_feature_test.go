package cart_test

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"plantshop/internal"
	"plantshop/internal/cart"
)

type cartTestContext struct {
	store *cart.Store
}

func (c *cartTestContext) anEmptyCart() error {
	c.store = cart.NewStore()
	return nil
}

func (c *cartTestContext) iAddItemPriced(id string, price float64) error {
	c.store.Add(internal.Item{ID: id, Name: "Plant " + id, Price: price})
	return nil
}

func (c *cartTestContext) iRemoveItem(id string) error {
	c.store.Remove(id)
	return nil
}

func (c *cartTestContext) iClearTheCart() error {
	c.store.Clear()
	return nil
}

func (c *cartTestContext) theCartLinesAre(want string) error {
	parts := make([]string, 0)
	for _, line := range c.store.Lines() {
		parts = append(parts, line.ID+":"+strconv.Itoa(line.Qty))
	}
	if got := strings.Join(parts, ","); got != want {
		return fmt.Errorf("lines %q, want %q", got, want)
	}
	return nil
}

func (c *cartTestContext) theCartTotalIs(want float64) error {
	if got := c.store.Total(); got != want {
		return fmt.Errorf("total %v, want %v", got, want)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &cartTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.store = cart.NewStore()
		return ctx, nil
	})

	ctx.Step(`^an empty cart$`, tc.anEmptyCart)
	ctx.Step(`^I add item "([^"]*)" priced (\d+(?:\.\d+)?)$`, tc.iAddItemPriced)
	ctx.Step(`^I remove item "([^"]*)"$`, tc.iRemoveItem)
	ctx.Step(`^I clear the cart$`, tc.iClearTheCart)
	ctx.Step(`^the cart lines are "([^"]*)"$`, tc.theCartLinesAre)
	ctx.Step(`^the cart total is (\d+(?:\.\d+)?)$`, tc.theCartTotalIs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/cart.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
