package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/appetiteclub/apt"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/appetiteclub/orderboard/pkg/enums/viewtab"
	"github.com/appetiteclub/orderboard/services/orders/internal/order"
	"github.com/appetiteclub/orderboard/services/orders/internal/viewfilter"
)

// Sender delivers a Telegram message. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewBotSender authenticates against the Bot API with token.
func NewBotSender(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("cannot create telegram bot: %w", err)
	}
	return bot, nil
}

// ReadyNotifier tells the staff chat when an order enters the pronti view.
// It is fed cache snapshots through Observe and works on the most recent
// one in its own goroutine. Orders already ready in the first snapshot are
// not announced.
type ReadyNotifier struct {
	sender Sender
	chatID int64
	logger apt.Logger

	mu         sync.Mutex
	pending    []*order.Order
	hasPending bool
	signal     chan struct{}

	notified map[uuid.UUID]struct{}
	primed   bool

	cancel context.CancelFunc
	done   chan struct{}
}

func NewReadyNotifier(sender Sender, chatID int64, logger apt.Logger) *ReadyNotifier {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &ReadyNotifier{
		sender:   sender,
		chatID:   chatID,
		logger:   logger,
		signal:   make(chan struct{}, 1),
		notified: make(map[uuid.UUID]struct{}),
	}
}

// Observe queues a snapshot. It never blocks; a snapshot not yet processed
// is replaced by the newer one.
func (n *ReadyNotifier) Observe(snapshot []*order.Order) {
	n.mu.Lock()
	n.pending = snapshot
	n.hasPending = true
	n.mu.Unlock()

	select {
	case n.signal <- struct{}{}:
	default:
	}
}

func (n *ReadyNotifier) Start(_ context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.done = make(chan struct{})

	go n.run(runCtx)
	n.logger.Info("ready notifier started", "chat_id", n.chatID)
	return nil
}

func (n *ReadyNotifier) Stop(ctx context.Context) error {
	if n.cancel == nil {
		return nil
	}
	n.cancel()

	select {
	case <-n.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	n.logger.Info("ready notifier stopped")
	return nil
}

func (n *ReadyNotifier) run(ctx context.Context) {
	defer close(n.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.signal:
			n.mu.Lock()
			snapshot, ok := n.pending, n.hasPending
			n.pending, n.hasPending = nil, false
			n.mu.Unlock()

			if ok {
				n.process(snapshot)
			}
		}
	}
}

func (n *ReadyNotifier) process(snapshot []*order.Order) {
	inFlight := make(map[uuid.UUID]struct{}, len(snapshot))
	for _, o := range snapshot {
		inFlight[o.ID] = struct{}{}
	}
	for id := range n.notified {
		if _, ok := inFlight[id]; !ok {
			delete(n.notified, id)
		}
	}

	ready := viewfilter.ForView(snapshot, viewtab.Tabs.Ready.Code())

	if !n.primed {
		for _, o := range ready {
			n.notified[o.ID] = struct{}{}
		}
		n.primed = true
		return
	}

	for _, o := range ready {
		if _, ok := n.notified[o.ID]; ok {
			continue
		}

		msg := tgbotapi.NewMessage(n.chatID, readyMessage(o))
		if _, err := n.sender.Send(msg); err != nil {
			n.logger.Error("cannot send ready notification", "order_id", o.ID.String(), "error", err)
			continue
		}
		n.notified[o.ID] = struct{}{}
		n.logger.Debug("ready notification sent", "order_id", o.ID.String())
	}
}

func readyMessage(o *order.Order) string {
	var b strings.Builder

	switch {
	case o.TableRef != "":
		fmt.Fprintf(&b, "Ordine pronto: tavolo %s", o.TableRef)
	default:
		fmt.Fprintf(&b, "Ordine pronto: cliente %s", o.CustomerRef)
	}
	if o.WaiterRef != "" {
		fmt.Fprintf(&b, " (%s)", o.WaiterRef)
	}

	for _, it := range o.Items {
		fmt.Fprintf(&b, "\n%d x %s", it.Quantity, it.ProductName)
		if it.Note != "" {
			fmt.Fprintf(&b, " - %s", it.Note)
		}
	}
	return b.String()
}
