package billing

import (
	"strconv"
	"strings"
	"time"

	"tablepos/internal/pkg/ledger"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Bill is the settled account of one table.
type Bill struct {
	ID        uuid.UUID
	Table     int
	Lines     []ledger.Line
	Total     int64
	SettledAt time.Time
}

// Body renders the bill as sent to the paying terminal:
//
//	TABLE <table>
//	<name>;<qty>;<price>;<lineTotal>
//	TOTAL <amount>
func (b Bill) Body() []string {
	body := make([]string, 0, len(b.Lines)+2)
	body = append(body, "TABLE "+strconv.Itoa(b.Table))
	for _, line := range b.Lines {
		body = append(body, strings.Join([]string{
			line.Name,
			strconv.Itoa(line.Quantity),
			strconv.FormatInt(line.Price, 10),
			strconv.FormatInt(line.Total(), 10),
		}, ";"))
	}
	body = append(body, "TOTAL "+strconv.FormatInt(b.Total, 10))
	return body
}

// ParseBody is the inverse of Body. Item ids are not part of the bill
// text and are left zero.
func ParseBody(body []string) (Bill, error) {
	if len(body) < 2 {
		return Bill{}, errors.Wrap(ErrMalformedBill, "too few lines")
	}
	var b Bill
	table, ok := strings.CutPrefix(body[0], "TABLE ")
	if !ok {
		return Bill{}, errors.Wrap(ErrMalformedBill, "missing TABLE header")
	}
	var err error
	if b.Table, err = strconv.Atoi(table); err != nil {
		return Bill{}, errors.Wrap(ErrMalformedBill, "parse table failed")
	}
	total, ok := strings.CutPrefix(body[len(body)-1], "TOTAL ")
	if !ok {
		return Bill{}, errors.Wrap(ErrMalformedBill, "missing TOTAL trailer")
	}
	if b.Total, err = strconv.ParseInt(total, 10, 64); err != nil {
		return Bill{}, errors.Wrap(ErrMalformedBill, "parse total failed")
	}
	for _, text := range body[1 : len(body)-1] {
		parts := strings.Split(text, ";")
		if len(parts) != 4 {
			return Bill{}, errors.Wrapf(ErrMalformedBill, "line %q", text)
		}
		qty, err := strconv.Atoi(parts[1])
		if err != nil {
			return Bill{}, errors.Wrapf(ErrMalformedBill, "parse quantity of %q failed", text)
		}
		price, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return Bill{}, errors.Wrapf(ErrMalformedBill, "parse price of %q failed", text)
		}
		b.Lines = append(b.Lines, ledger.Line{Name: parts[0], Quantity: qty, Price: price})
	}
	return b, nil
}
