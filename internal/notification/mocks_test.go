package notification

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	m    sync.Mutex
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.m.Lock()
	defer f.m.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

type fakeReader struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if f.err != nil {
		return kafka.Message{}, f.err
	}
	if len(f.msgs) == 0 {
		return kafka.Message{}, context.Canceled
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

type sentMail struct {
	To, Subject, Body string
}

type recordingMailer struct {
	m    sync.Mutex
	sent []sentMail
	err  error
}

func (r *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

var errSend = errors.New("broker unavailable")

type recordingNotifier struct {
	m        sync.Mutex
	confirms []string
	updates  []string
	err      error
	// block holds every send until the channel is closed.
	block chan struct{}
}

func (r *recordingNotifier) wait(ctx context.Context) error {
	if r.block == nil {
		return nil
	}
	select {
	case <-r.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *recordingNotifier) SendOrderConfirmation(ctx context.Context, order *domain.Order) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return r.err
	}
	r.confirms = append(r.confirms, order.OrderID)
	return nil
}

func (r *recordingNotifier) SendOrderStatusUpdate(ctx context.Context, order *domain.Order, _ domain.OrderStatus) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return r.err
	}
	r.updates = append(r.updates, order.OrderID)
	return nil
}

func kafkaMessage(value []byte) kafka.Message {
	return kafka.Message{Topic: Topic, Value: value}
}
