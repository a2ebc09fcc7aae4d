package notification

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/sony/gobreaker/v2"
)

const DefaultSendTimeout = 5 * time.Second

// Dispatcher sends notifications in the background. A send is tried once
// and its failure is only logged. Five consecutive failures open the breaker
// and sends are dropped until it half-opens.
type Dispatcher struct {
	notifier Notifier
	breaker  *gobreaker.CircuitBreaker[struct{}]
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(notifier Notifier, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "notifications",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return &Dispatcher{
		notifier: notifier,
		breaker:  breaker,
		timeout:  timeout,
	}
}

func (d *Dispatcher) OrderPlaced(order *domain.Order) {
	o := *order
	d.dispatch("order confirmation", o.OrderID, func(ctx context.Context) error {
		return d.notifier.SendOrderConfirmation(ctx, &o)
	})
}

func (d *Dispatcher) StatusChanged(order *domain.Order, previous domain.OrderStatus) {
	o := *order
	d.dispatch("status update", o.OrderID, func(ctx context.Context) error {
		return d.notifier.SendOrderStatusUpdate(ctx, &o, previous)
	})
}

func (d *Dispatcher) dispatch(kind, orderID string, send func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		_, err := d.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, send(ctx)
		})
		if err != nil {
			log.Printf("%s for order %s not sent: %v", kind, orderID, err)
		}
	}()
}

// Wait blocks until in-flight sends finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) State() gobreaker.State {
	return d.breaker.State()
}
