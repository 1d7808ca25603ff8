package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart               = errors.New("cart is empty")
	ErrOrderTotalTooLarge      = errors.New("order total exceeds the allowed maximum")
	ErrInvalidOrderStatus      = errors.New("unknown order status")
	ErrInvalidStatusTransition = errors.New("order status transition not allowed")
)

// OrderService defines the interface for checkout and order history
type OrderService interface {
	PlaceOrder(ctx context.Context, userID int64) (*domain.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]*domain.Order, error)
	Get(ctx context.Context, orderID int64) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error)
}

type orderService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(store repository.Store, logger *zap.Logger) OrderService {
	return &orderService{store: store, logger: logger}
}

// PlaceOrder turns the user's cart into a pending order. All writes share one
// transaction, so a failure leaves no order behind and the cart untouched.
func (s *orderService) PlaceOrder(ctx context.Context, userID int64) (*domain.Order, error) {
	var order *domain.Order

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		cart, err := tx.Carts().ListByUserForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to read cart: %w", err)
		}
		if len(cart) == 0 {
			return ErrEmptyCart
		}

		total := decimal.Zero
		items := make([]domain.OrderItem, 0, len(cart))
		cartIDs := make([]int64, 0, len(cart))
		for _, row := range cart {
			cartIDs = append(cartIDs, row.ID)
			total = total.Add(row.Subtotal())
			items = append(items, domain.OrderItem{
				ProductID: row.ProductID,
				Quantity:  row.Quantity,
				Price:     row.Product.Price,
			})
		}

		if total.GreaterThan(domain.MaxOrderTotal) {
			return ErrOrderTotalTooLarge
		}

		order = &domain.Order{
			UserID: userID,
			Status: domain.OrderStatusPending,
			Total:  total,
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		order.Items, err = tx.Orders().CreateItems(ctx, order.ID, items)
		if err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}

		// Rows added after the locked read stay in the cart.
		if _, err := tx.Carts().DeleteItems(ctx, userID, cartIDs); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrEmptyCart) && !errors.Is(err, ErrOrderTotalTooLarge) {
			s.logger.Error("Checkout rolled back", zap.Int64("user_id", userID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.Total.StringFixed(2)),
	)

	return order, nil
}

// ListOrders returns the user's orders newest first
func (s *orderService) ListOrders(ctx context.Context, userID int64) ([]*domain.Order, error) {
	orders, err := s.store.Orders().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := s.store.Orders().FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// UpdateStatus moves an order along pending, confirmed, shipped, delivered.
// Pending and confirmed orders may also be cancelled.
func (s *orderService) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidOrderStatus
	}

	var updated *domain.Order
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().FindByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to get order: %w", err)
		}

		if !order.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, order.Status, status)
		}

		updated, err = tx.Orders().UpdateStatus(ctx, orderID, status)
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		updated.Items = order.Items
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order status changed", zap.Int64("order_id", orderID), zap.String("status", string(status)))
	return updated, nil
}
