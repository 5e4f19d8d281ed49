package continuation

import (
	"sort"

	"github.com/luma/ibzmq/protocol"
)

// Registry maps message type ids to continuation constructors. Registration
// is not safe for concurrent use; lookups are once registration is complete.
type Registry struct {
	constructors map[int]Constructor
}

func NewRegistry() *Registry {
	return &Registry{constructors: make(map[int]Constructor)}
}

func (r *Registry) Register(typeID int, c Constructor) {
	r.constructors[typeID] = c
}

// RegisterProgram registers a segment program for typeID.
func (r *Registry) RegisterProgram(typeID int, segments ...Segment) {
	r.Register(typeID, Program(segments...))
}

func (r *Registry) Lookup(typeID int) (Constructor, bool) {
	c, ok := r.constructors[typeID]
	return c, ok
}

// TypeIDs returns the registered type ids in ascending order.
func (r *Registry) TypeIDs() []int {
	ids := make([]int, 0, len(r.constructors))
	for id := range r.constructors {
		ids = append(ids, id)
	}

	sort.Ints(ids)
	return ids
}

// Fixed reads exactly n body fields.
func Fixed(n int) Constructor {
	return Program(Segment{Count: n})
}

// Empty reads no body fields.
func Empty() Constructor {
	return Fixed(0)
}

// Group reads a prefix of n fields followed by head[at] * multiplier fields.
func Group(n, at, multiplier int) Constructor {
	return Program(Segment{Count: n, Extend: CountAt(at, multiplier)})
}

// FixedCounts lists the body length of every fixed size message type.
var FixedCounts = map[int]int{
	protocol.TickPrice:              5,
	protocol.TickSize:               3,
	protocol.OrderStatus:            10,
	protocol.ErrMsg:                 3,
	protocol.AcctValue:              4,
	protocol.PortfolioValue:         17,
	protocol.AcctUpdateTime:         1,
	protocol.NextValidID:            1,
	protocol.ExecutionData:          28,
	protocol.MarketDepth:            6,
	protocol.MarketDepthL2:          7,
	protocol.NewsBulletins:          4,
	protocol.ManagedAccts:           1,
	protocol.ReceiveFA:              2,
	protocol.ScannerParameters:      1,
	protocol.TickOptionComputation:  10,
	protocol.TickGeneric:            3,
	protocol.TickString:             3,
	protocol.TickEFP:                9,
	protocol.CurrentTime:            1,
	protocol.RealTimeBars:           9,
	protocol.FundamentalData:        2,
	protocol.ContractDataEnd:        1,
	protocol.OpenOrderEnd:           0,
	protocol.AcctDownloadEnd:        1,
	protocol.ExecutionDataEnd:       1,
	protocol.DeltaNeutralValidation: 4,
	protocol.TickSnapshotEnd:        1,
	protocol.MarketDataType:         2,
	protocol.CommissionReport:       6,
}

var contractData = []Segment{
	{Count: 29},
	// security id list: count, then (tag, value) pairs
	{Count: 1, Extend: CountAt(0, 2)},
}

var openOrder = []Segment{
	{Count: 58},
	// delta neutral contract
	{Count: 2, Extend: FlagAt(0, 4)},
	{Count: 6},
	// combo legs
	{Count: 2, Extend: CountAt(1, 8)},
	// order combo legs
	{Count: 1, Extend: CountAt(0, 1)},
	// smart combo routing params
	{Count: 1, Extend: CountAt(0, 2)},
	// scale orders
	{Count: 3, Extend: PriceSetAt(2, 7)},
	// hedge
	{Count: 1, Extend: FlagAt(0, 1)},
	{Count: 4},
	// under comp
	{Count: 1, Extend: NonZeroAt(0, 3)},
	// algo strategy, then its parameter list
	{Count: 1, When: PresentAt(0), Then: []Segment{
		{Count: 1, Extend: CountAt(0, 2)},
	}},
	// order state
	{Count: 10},
}

// DefaultRegistry returns a registry with every inbound message type.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	for typeID, n := range FixedCounts {
		r.Register(typeID, Fixed(n))
	}

	r.RegisterProgram(protocol.OpenOrder, openOrder...)
	r.RegisterProgram(protocol.ContractData, contractData...)
	r.Register(protocol.BondContractData, Group(30, 29, 2))
	r.Register(protocol.HistoricalData, Group(4, 3, 9))
	r.Register(protocol.ScannerData, Group(2, 1, 16))

	return r
}
