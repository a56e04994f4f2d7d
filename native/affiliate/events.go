package affiliate

import (
	"encoding/hex"
	"strconv"

	"loanledger/core/events"
	"loanledger/core/types"
)

// EventTypeSplitSet is emitted once per affiliate code when its write-once
// split is registered.
const EventTypeSplitSet = "loan.affiliate.split_set"

type bookEvent struct {
	evt *types.Event
}

func (e bookEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e bookEvent) Event() *types.Event { return e.evt }

// NewSplitSetEvent returns the canonical event payload for a newly registered
// affiliate split.
func NewSplitSetEvent(code [32]byte, split *Split) events.Event {
	attrs := make(map[string]string)
	attrs["code"] = hex.EncodeToString(code[:])
	if split != nil {
		attrs["recipient"] = hex.EncodeToString(split.Recipient[:])
		attrs["splitBps"] = strconv.FormatUint(split.SplitBps, 10)
	}
	return bookEvent{evt: &types.Event{Type: EventTypeSplitSet, Attributes: attrs}}
}
