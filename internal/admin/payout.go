package admin

import (
	"fmt"
	"strings"

	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/util/sliceutil"
)

type PayoutLine struct {
	User   string
	Amount calcapi.Money
}

// Payout is the summary shown after a sub-event is closed. All the numbers come from the server.
type Payout struct {
	Message  string
	HasDebug bool
	NetPot   calcapi.Money
	HouseCut calcapi.Money
	Lines    []PayoutLine
}

func newPayout(rsp *calcapi.CloseSubEventResponse) *Payout {
	p := &Payout{Message: rsp.Message}
	if p.Message == "" {
		p.Message = "Sub-event closed"
	}
	if rsp.Debug != nil {
		p.HasDebug = true
		p.NetPot = rsp.Debug.NetPot
		p.HouseCut = rsp.Debug.HouseCut
	}
	p.Lines = sliceutil.Map(rsp.Distribution, func(d calcapi.Payout) PayoutLine {
		user := d.Username
		if user == "" {
			user = "User " + d.UserID.String()
		}
		return PayoutLine{User: user, Amount: d.Amount}
	})
	return p
}

// Lines of text for the alert shown to the admin.
func (p *Payout) Text() []string {
	res := []string{p.Message}
	if p.HasDebug {
		res = append(res, fmt.Sprintf("Net pot: $%v, house cut: $%v", p.NetPot, p.HouseCut))
	}
	if len(p.Lines) == 0 {
		res = append(res, "No payouts")
		return res
	}
	var b strings.Builder
	b.WriteString("Payouts: ")
	for i, l := range p.Lines {
		if i != 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%v: $%v", l.User, l.Amount)
	}
	res = append(res, b.String())
	return res
}
