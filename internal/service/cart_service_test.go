package service

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/repository"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

// Adding to the cart and then viewing it shows the product with the added
// quantity.
func TestProperty_AddThenViewShowsItem(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("view contains the added product and quantity", prop.ForAll(
		func(quantity int) bool {
			s := newServices()
			ctx := context.Background()
			user := s.seedUser(t)
			product := s.seedProduct(t, "Mug", "8.50")

			if _, err := s.carts.Add(ctx, user.ID, product.ID, quantity); err != nil {
				t.Logf("FAIL: add: %v", err)
				return false
			}

			view, err := s.carts.View(ctx, user.ID)
			if err != nil || len(view.Items) != 1 {
				return false
			}
			item := view.Items[0]
			want := product.Price.Mul(decimal.NewFromInt(int64(quantity)))
			return item.ProductID == product.ID &&
				item.Quantity == quantity &&
				item.Product != nil &&
				view.Total.Equal(want)
		},
		gen.IntRange(1, 1000),
	))

	properties.TestingRun(t)
}

// Two adds of one product leave one row carrying the summed quantity.
func TestProperty_RepeatedAddMergesRows(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("one row with the summed quantity", prop.ForAll(
		func(a, b int) bool {
			s := newServices()
			ctx := context.Background()
			user := s.seedUser(t)
			product := s.seedProduct(t, "Tee", "15.00")

			first, err := s.carts.Add(ctx, user.ID, product.ID, a)
			if err != nil {
				return false
			}
			second, err := s.carts.Add(ctx, user.ID, product.ID, b)
			if err != nil {
				return false
			}

			view, err := s.carts.View(ctx, user.ID)
			return err == nil &&
				first.ID == second.ID &&
				len(view.Items) == 1 &&
				view.Items[0].Quantity == a+b
		},
		gen.IntRange(1, 50),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}

func TestCart_UpdateAndRemoveByRowID(t *testing.T) {
	s := newServices()
	ctx := context.Background()
	user := s.seedUser(t)
	product := s.seedProduct(t, "Lamp", "20.00")

	item, err := s.carts.Add(ctx, user.ID, product.ID, 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	updated, err := s.carts.UpdateQuantity(ctx, item.ID, 4)
	if err != nil || updated.Quantity != 4 {
		t.Fatalf("update: %+v (%v)", updated, err)
	}

	if _, err := s.carts.UpdateQuantity(ctx, item.ID, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}

	if err := s.carts.Remove(ctx, item.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.carts.Remove(ctx, item.ID); !errors.Is(err, repository.ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound, got %v", err)
	}

	view, err := s.carts.View(ctx, user.ID)
	if err != nil || len(view.Items) != 0 || !view.Total.IsZero() {
		t.Fatalf("expected empty cart, got %+v (%v)", view, err)
	}
}

func TestCart_AddRejectsUnknownProductAndBadQuantity(t *testing.T) {
	s := newServices()
	ctx := context.Background()
	user := s.seedUser(t)

	if _, err := s.carts.Add(ctx, user.ID, 404, 1); !errors.Is(err, repository.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	product := s.seedProduct(t, "Vase", "12.00")
	if _, err := s.carts.Add(ctx, user.ID, product.ID, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}
