package permit

// Action tags in schema order. New actions get new tags appended at the
// end; existing variants keep their byte layout forever.
const (
	tagPlace uint8 = iota
	tagCancelByID
	tagCancelByClientID
	tagCancelAll
	tagModify
	tagWithdraw
	tagSetLeverage
	tagNoop
	tagFaucet
)

// Action is the closed union of operations an envelope may authorize.
// Implementations live in this package only.
type Action interface {
	// Kind returns the stable operation name used in logs and metrics
	Kind() string
	tag() uint8
	marshal(e *encoder)
}

func decodeAction(d *decoder) Action {
	tag := d.u8()
	if d.err != nil {
		return nil
	}
	var a Action
	switch tag {
	case tagPlace:
		a = decodePlace(d)
	case tagCancelByID:
		a = decodeCancelByID(d)
	case tagCancelByClientID:
		a = decodeCancelByClientID(d)
	case tagCancelAll:
		a = decodeCancelAll(d)
	case tagModify:
		a = decodeModify(d)
	case tagWithdraw:
		a = decodeWithdraw(d)
	case tagSetLeverage:
		a = decodeSetLeverage(d)
	case tagNoop:
		a = Noop{}
	case tagFaucet:
		a = decodeFaucet(d)
	default:
		d.fail(decodeErrorf("unknown action tag %d", tag))
		return nil
	}
	if d.err != nil {
		return nil
	}
	return a
}

// TimeInForce controls how long a placed order stays on the book
type TimeInForce struct {
	Mode TIFMode
	// Deadline is the expiry for GTT orders, unused otherwise
	Deadline uint64
}

type TIFMode uint8

const (
	TIFImmediateOrCancel TIFMode = iota
	TIFFillOrKill
	TIFGoodTillCancelled
	TIFAddLiquidityOnly
	TIFGoodTillTime
)

func (t TimeInForce) marshal(e *encoder) {
	e.u8(uint8(t.Mode))
	if t.Mode == TIFGoodTillTime {
		e.u64(t.Deadline)
	}
}

func decodeTIF(d *decoder) (t TimeInForce) {
	mode := d.u8()
	if d.err != nil {
		return
	}
	if mode > uint8(TIFGoodTillTime) {
		d.fail(decodeErrorf("unknown time-in-force tag %d", mode))
		return
	}
	t.Mode = TIFMode(mode)
	if t.Mode == TIFGoodTillTime {
		t.Deadline = d.u64()
	}
	return
}

// HealthMetric selects which account health figure a floor applies to
type HealthMetric uint8

const (
	HealthInitial HealthMetric = iota
	HealthMaintenance
	HealthRatioBps
)

// HealthFloor rejects the action on chain if the account health metric
// would drop below Min after execution.
type HealthFloor struct {
	Metric HealthMetric
	Min    int64
}

func (h HealthFloor) marshal(e *encoder) {
	e.u8(uint8(h.Metric))
	e.i64(h.Min)
}

func decodeHealthFloor(d *decoder) (h HealthFloor) {
	metric := d.u8()
	if d.err != nil {
		return
	}
	if metric > uint8(HealthRatioBps) {
		d.fail(decodeErrorf("unknown health metric tag %d", metric))
		return
	}
	h.Metric = HealthMetric(metric)
	h.Min = d.i64()
	return
}

func marshalOptFloor(e *encoder, h *HealthFloor) {
	if h == nil {
		e.u8(0)
		return
	}
	e.u8(1)
	h.marshal(e)
}

func decodeOptFloor(d *decoder) *HealthFloor {
	if !d.option() {
		return nil
	}
	h := decodeHealthFloor(d)
	return &h
}

// Place submits a new order
type Place struct {
	MarketID     uint64
	ClientID     Uint128
	Side         uint8
	Qty          uint64
	Price        *uint64
	TIF          TimeInForce
	ReduceOnly   bool
	TriggerPrice *uint64
	TriggerType  uint8
	HealthFloor  *HealthFloor
}

func (Place) Kind() string { return "place" }
func (Place) tag() uint8   { return tagPlace }
func (a Place) marshal(e *encoder) {
	e.u64(a.MarketID)
	e.u128(a.ClientID)
	e.u8(a.Side)
	e.u64(a.Qty)
	e.optU64(a.Price)
	a.TIF.marshal(e)
	e.bool(a.ReduceOnly)
	e.optU64(a.TriggerPrice)
	e.u8(a.TriggerType)
	marshalOptFloor(e, a.HealthFloor)
}

func decodePlace(d *decoder) Action {
	return Place{
		MarketID:     d.u64(),
		ClientID:     d.u128(),
		Side:         d.u8(),
		Qty:          d.u64(),
		Price:        d.optU64(),
		TIF:          decodeTIF(d),
		ReduceOnly:   d.bool(),
		TriggerPrice: d.optU64(),
		TriggerType:  d.u8(),
		HealthFloor:  decodeOptFloor(d),
	}
}

// CancelByID cancels one resting order by its book order id
type CancelByID struct {
	MarketID uint64
	OrderID  uint64
}

func (CancelByID) Kind() string { return "cancel_by_id" }
func (CancelByID) tag() uint8   { return tagCancelByID }
func (a CancelByID) marshal(e *encoder) {
	e.u64(a.MarketID)
	e.u64(a.OrderID)
}

func decodeCancelByID(d *decoder) Action {
	return CancelByID{MarketID: d.u64(), OrderID: d.u64()}
}

// CancelByClientID cancels one resting order by the client-chosen id
type CancelByClientID struct {
	MarketID uint64
	ClientID Uint128
}

func (CancelByClientID) Kind() string { return "cancel_by_client_id" }
func (CancelByClientID) tag() uint8   { return tagCancelByClientID }
func (a CancelByClientID) marshal(e *encoder) {
	e.u64(a.MarketID)
	e.u128(a.ClientID)
}

func decodeCancelByClientID(d *decoder) Action {
	return CancelByClientID{MarketID: d.u64(), ClientID: d.u128()}
}

// CancelAll cancels every resting order, optionally scoped to one market
type CancelAll struct {
	MarketID *uint64
}

func (CancelAll) Kind() string { return "cancel_all" }
func (CancelAll) tag() uint8   { return tagCancelAll }
func (a CancelAll) marshal(e *encoder) {
	e.optU64(a.MarketID)
}

func decodeCancelAll(d *decoder) Action {
	return CancelAll{MarketID: d.optU64()}
}

// Modify atomically cancels an order and places a replacement
type Modify struct {
	MarketID      uint64
	CancelOrderID uint64
	NewClientID   Uint128
	Side          uint8
	Qty           uint64
	Price         *uint64
	TIF           TimeInForce
	ReduceOnly    bool
	TriggerPrice  *uint64
	TriggerType   uint8
	HealthFloor   *HealthFloor
}

func (Modify) Kind() string { return "modify" }
func (Modify) tag() uint8   { return tagModify }
func (a Modify) marshal(e *encoder) {
	e.u64(a.MarketID)
	e.u64(a.CancelOrderID)
	e.u128(a.NewClientID)
	e.u8(a.Side)
	e.u64(a.Qty)
	e.optU64(a.Price)
	a.TIF.marshal(e)
	e.bool(a.ReduceOnly)
	e.optU64(a.TriggerPrice)
	e.u8(a.TriggerType)
	marshalOptFloor(e, a.HealthFloor)
}

func decodeModify(d *decoder) Action {
	return Modify{
		MarketID:      d.u64(),
		CancelOrderID: d.u64(),
		NewClientID:   d.u128(),
		Side:          d.u8(),
		Qty:           d.u64(),
		Price:         d.optU64(),
		TIF:           decodeTIF(d),
		ReduceOnly:    d.bool(),
		TriggerPrice:  d.optU64(),
		TriggerType:   d.u8(),
		HealthFloor:   decodeOptFloor(d),
	}
}

// Withdraw moves collateral out of the account
type Withdraw struct {
	Amount      uint64
	ToOwner     PubKey
	HealthFloor *HealthFloor
}

func (Withdraw) Kind() string { return "withdraw" }
func (Withdraw) tag() uint8   { return tagWithdraw }
func (a Withdraw) marshal(e *encoder) {
	e.u64(a.Amount)
	e.bytes32(a.ToOwner)
	marshalOptFloor(e, a.HealthFloor)
}

func decodeWithdraw(d *decoder) Action {
	return Withdraw{
		Amount:      d.u64(),
		ToOwner:     d.bytes32(),
		HealthFloor: decodeOptFloor(d),
	}
}

// SetLeverage changes the target leverage for one market
type SetLeverage struct {
	MarketID          uint64
	TargetLeverageBps uint16
	HealthFloor       *HealthFloor
}

func (SetLeverage) Kind() string { return "set_leverage" }
func (SetLeverage) tag() uint8   { return tagSetLeverage }
func (a SetLeverage) marshal(e *encoder) {
	e.u64(a.MarketID)
	e.u16(a.TargetLeverageBps)
	marshalOptFloor(e, a.HealthFloor)
}

func decodeSetLeverage(d *decoder) Action {
	return SetLeverage{
		MarketID:          d.u64(),
		TargetLeverageBps: d.u16(),
		HealthFloor:       decodeOptFloor(d),
	}
}

// Noop authorizes nothing. Useful for key liveness checks and fixtures.
type Noop struct{}

func (Noop) Kind() string     { return "noop" }
func (Noop) tag() uint8       { return tagNoop }
func (Noop) marshal(*encoder) {}

// Faucet mints test funds, devnet and localnet only
type Faucet struct {
	MarketID  uint64
	Amount    uint64
	Recipient PubKey
}

func (Faucet) Kind() string { return "faucet" }
func (Faucet) tag() uint8   { return tagFaucet }
func (a Faucet) marshal(e *encoder) {
	e.u64(a.MarketID)
	e.u64(a.Amount)
	e.bytes32(a.Recipient)
}

func decodeFaucet(d *decoder) Action {
	return Faucet{
		MarketID:  d.u64(),
		Amount:    d.u64(),
		Recipient: d.bytes32(),
	}
}
