// Package handler routes point-of-sale commands to the menu, the order
// ledger and the billing engine.
package handler

import (
	"context"
	"strconv"
	"strings"

	"tablepos/internal/pkg/billing"
	"tablepos/internal/pkg/catalog"
	"tablepos/internal/pkg/ledger"
	"tablepos/internal/pkg/protocol"
	"tablepos/internal/pkg/session"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Menu is the read-only catalog lookup used by the handler.
type Menu interface {
	Lookup(id int) (catalog.Item, error)
	Items() []catalog.Item
}

// Settler settles a table.
type Settler interface {
	Settle(ctx context.Context, table int) (billing.Bill, error)
}

// Handler is the command dispatcher shared by all sessions.
type Handler struct {
	menu    Menu
	store   ledger.Store
	settler Settler
}

// HandlerCfg configures a Handler.
type HandlerCfg func(*Handler) error

// WithMenu sets the menu.
func WithMenu(menu Menu) HandlerCfg {
	return func(h *Handler) error {
		h.menu = menu
		return nil
	}
}

// WithLedger sets the order ledger.
func WithLedger(store ledger.Store) HandlerCfg {
	return func(h *Handler) error {
		h.store = store
		return nil
	}
}

// WithSettler sets the billing engine.
func WithSettler(settler Settler) HandlerCfg {
	return func(h *Handler) error {
		h.settler = settler
		return nil
	}
}

// NewHandler creates a new Handler.
func NewHandler(cfgs ...HandlerCfg) (*Handler, error) {
	h := &Handler{}
	for _, cfg := range cfgs {
		if err := cfg(h); err != nil {
			return nil, errors.Wrap(err, "apply handler cfg failed")
		}
	}
	if h.menu == nil || h.store == nil || h.settler == nil {
		return nil, errors.New("handler needs a menu, a ledger and a settler")
	}
	return h, nil
}

// Handle answers one command. Every failure is turned into an ERROR
// response; none of them ends the session.
func (h *Handler) Handle(ctx context.Context, s *session.Session, cmd protocol.Command) protocol.Response {
	switch cmd.Verb {
	case protocol.VerbAuth:
		if len(cmd.Args) > 0 {
			role := session.ParseRole(cmd.Args[0])
			s.SetRole(role)
			if !role.Known() {
				s.Logger().Warn("unrecognised role declared")
			}
		}
		return protocol.Lines(protocol.OKAuth)
	case protocol.VerbMenu:
		return h.menuList()
	case protocol.VerbOrder:
		return h.order(s, cmd.Args)
	case protocol.VerbGetOrders:
		return h.orders()
	case protocol.VerbPay:
		return h.pay(ctx, s, cmd.Args)
	case protocol.VerbQuit:
		return protocol.Response{Body: []string{protocol.Bye}, Close: true}
	}
	return protocol.Error(protocol.ReasonUnknownCommand)
}

func (h *Handler) menuList() protocol.Response {
	items := h.menu.Items()
	body := make([]string, 0, len(items))
	for _, item := range items {
		body = append(body, strings.Join([]string{
			strconv.Itoa(item.ID),
			item.Name,
			strconv.FormatInt(item.Price, 10),
		}, protocol.FieldSeparator))
	}
	return protocol.Lines(body...)
}

func (h *Handler) order(s *session.Session, args []string) protocol.Response {
	nums, ok := positiveInts(args, 3)
	if !ok {
		return protocol.Error(protocol.ReasonInvalidOrderFormat)
	}
	table, itemID, qty := nums[0], nums[1], nums[2]
	item, err := h.menu.Lookup(itemID)
	if err != nil {
		return protocol.Error(protocol.ReasonItemNotFound)
	}
	lineTotal, err := billing.LineTotal(item.Price, qty)
	if err != nil {
		return protocol.Error(protocol.ReasonInvalidOrderFormat)
	}
	err = h.store.Upsert(table, ledger.Line{
		ItemID:   item.ID,
		Name:     item.Name,
		Price:    item.Price,
		Quantity: qty,
	})
	if errors.Is(err, ledger.ErrAmountOverflow) {
		return protocol.Error(protocol.ReasonInvalidOrderFormat)
	}
	if err != nil {
		s.Logger().WithError(err).Error("record order failed")
		return protocol.Error(protocol.ReasonInternal)
	}
	s.Logger().WithFields(logrus.Fields{
		"table":    table,
		"item":     itemID,
		"quantity": qty,
		"amount":   lineTotal,
	}).Info("order recorded")
	return protocol.OK(strconv.FormatInt(lineTotal, 10))
}

func (h *Handler) orders() protocol.Response {
	entries := h.store.Snapshot()
	if len(entries) == 0 {
		return protocol.Lines(protocol.Empty)
	}
	body := make([]string, 0, len(entries))
	for _, e := range entries {
		body = append(body, strings.Join([]string{
			strconv.Itoa(e.Table),
			strconv.Itoa(e.ItemID),
			e.Name,
			strconv.Itoa(e.Quantity),
			strconv.FormatInt(e.Price, 10),
			strconv.FormatInt(e.Total(), 10),
		}, protocol.FieldSeparator))
	}
	return protocol.Lines(body...)
}

func (h *Handler) pay(ctx context.Context, s *session.Session, args []string) protocol.Response {
	nums, ok := positiveInts(args, 1)
	if !ok {
		return protocol.Error(protocol.ReasonInvalidPayFormat)
	}
	bill, err := h.settler.Settle(ctx, nums[0])
	if errors.Is(err, ledger.ErrTableNotFound) {
		return protocol.Error(protocol.ReasonTableNotFound)
	}
	if err != nil {
		s.Logger().WithError(err).WithField("table", nums[0]).Error("settle table failed")
		return protocol.Error(protocol.ReasonInternal)
	}
	s.Logger().WithFields(logrus.Fields{
		"bill":  bill.ID.String(),
		"table": bill.Table,
		"lines": len(bill.Lines),
		"total": bill.Total,
	}).Info("table settled")
	return protocol.Lines(bill.Body()...)
}

// positiveInts parses exactly n arguments as integers greater than zero.
func positiveInts(args []string, n int) ([]int, bool) {
	if len(args) != n {
		return nil, false
	}
	nums := make([]int, n)
	for i, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil || v <= 0 {
			return nil, false
		}
		nums[i] = v
	}
	return nums, true
}
