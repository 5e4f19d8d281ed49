package protocol

const (
	// ClientVersion is the session protocol version this proxy speaks.
	ClientVersion = 59

	// MaxDouble is how the gateway writes an unset floating point value.
	MaxDouble = "1.7976931348623157E308"
)

// Inbound message type ids.
const (
	TickPrice              = 1
	TickSize               = 2
	OrderStatus            = 3
	ErrMsg                 = 4
	OpenOrder              = 5
	AcctValue              = 6
	PortfolioValue         = 7
	AcctUpdateTime         = 8
	NextValidID            = 9
	ContractData           = 10
	ExecutionData          = 11
	MarketDepth            = 12
	MarketDepthL2          = 13
	NewsBulletins          = 14
	ManagedAccts           = 15
	ReceiveFA              = 16
	HistoricalData         = 17
	BondContractData       = 18
	ScannerParameters      = 19
	ScannerData            = 20
	TickOptionComputation  = 21
	TickGeneric            = 45
	TickString             = 46
	TickEFP                = 47
	CurrentTime            = 49
	RealTimeBars           = 50
	FundamentalData        = 51
	ContractDataEnd        = 52
	OpenOrderEnd           = 53
	AcctDownloadEnd        = 54
	ExecutionDataEnd       = 55
	DeltaNeutralValidation = 56
	TickSnapshotEnd        = 57
	MarketDataType         = 58
	CommissionReport       = 59
)

// Outbound request type ids.
const (
	ReqMktData                = 1
	CancelMktData             = 2
	PlaceOrder                = 3
	CancelOrder               = 4
	ReqOpenOrders             = 5
	ReqAccountData            = 6
	ReqExecutions             = 7
	ReqIDs                    = 8
	ReqContractData           = 9
	ReqMktDepth               = 10
	CancelMktDepth            = 11
	ReqNewsBulletins          = 12
	CancelNewsBulletins       = 13
	SetServerLogLevel         = 14
	ReqAutoOpenOrders         = 15
	ReqAllOpenOrders          = 16
	ReqManagedAccts           = 17
	ReqFA                     = 18
	ReplaceFA                 = 19
	ReqHistoricalData         = 20
	ExerciseOptions           = 21
	ReqScannerSubscription    = 22
	CancelScannerSubscription = 23
	ReqScannerParameters      = 24
	CancelHistoricalData      = 25
	ReqCurrentTime            = 49
	ReqRealTimeBars           = 50
	CancelRealTimeBars        = 51
	ReqFundamentalData        = 52
	CancelFundamentalData     = 53
	ReqCalcImpliedVolat       = 54
	ReqCalcOptionPrice        = 55
	CancelCalcImpliedVolat    = 56
	CancelCalcOptionPrice     = 57
	ReqGlobalCancel           = 58
	ReqMarketDataType         = 59
)

var messageNames = map[int]string{
	TickPrice:              "TICK_PRICE",
	TickSize:               "TICK_SIZE",
	OrderStatus:            "ORDER_STATUS",
	ErrMsg:                 "ERR_MSG",
	OpenOrder:              "OPEN_ORDER",
	AcctValue:              "ACCT_VALUE",
	PortfolioValue:         "PORTFOLIO_VALUE",
	AcctUpdateTime:         "ACCT_UPDATE_TIME",
	NextValidID:            "NEXT_VALID_ID",
	ContractData:           "CONTRACT_DATA",
	ExecutionData:          "EXECUTION_DATA",
	MarketDepth:            "MARKET_DEPTH",
	MarketDepthL2:          "MARKET_DEPTH_L2",
	NewsBulletins:          "NEWS_BULLETINS",
	ManagedAccts:           "MANAGED_ACCTS",
	ReceiveFA:              "RECEIVE_FA",
	HistoricalData:         "HISTORICAL_DATA",
	BondContractData:       "BOND_CONTRACT_DATA",
	ScannerParameters:      "SCANNER_PARAMETERS",
	ScannerData:            "SCANNER_DATA",
	TickOptionComputation:  "TICK_OPTION_COMPUTATION",
	TickGeneric:            "TICK_GENERIC",
	TickString:             "TICK_STRING",
	TickEFP:                "TICK_EFP",
	CurrentTime:            "CURRENT_TIME",
	RealTimeBars:           "REAL_TIME_BARS",
	FundamentalData:        "FUNDAMENTAL_DATA",
	ContractDataEnd:        "CONTRACT_DATA_END",
	OpenOrderEnd:           "OPEN_ORDER_END",
	AcctDownloadEnd:        "ACCT_DOWNLOAD_END",
	ExecutionDataEnd:       "EXECUTION_DATA_END",
	DeltaNeutralValidation: "DELTA_NEUTRAL_VALIDATION",
	TickSnapshotEnd:        "TICK_SNAPSHOT_END",
	MarketDataType:         "MARKET_DATA_TYPE",
	CommissionReport:       "COMMISSION_REPORT",
}

var requestNames = map[int]string{
	ReqMktData:                "REQ_MKT_DATA",
	CancelMktData:             "CANCEL_MKT_DATA",
	PlaceOrder:                "PLACE_ORDER",
	CancelOrder:               "CANCEL_ORDER",
	ReqOpenOrders:             "REQ_OPEN_ORDERS",
	ReqAccountData:            "REQ_ACCOUNT_DATA",
	ReqExecutions:             "REQ_EXECUTIONS",
	ReqIDs:                    "REQ_IDS",
	ReqContractData:           "REQ_CONTRACT_DATA",
	ReqMktDepth:               "REQ_MKT_DEPTH",
	CancelMktDepth:            "CANCEL_MKT_DEPTH",
	ReqNewsBulletins:          "REQ_NEWS_BULLETINS",
	CancelNewsBulletins:       "CANCEL_NEWS_BULLETINS",
	SetServerLogLevel:         "SET_SERVER_LOGLEVEL",
	ReqAutoOpenOrders:         "REQ_AUTO_OPEN_ORDERS",
	ReqAllOpenOrders:          "REQ_ALL_OPEN_ORDERS",
	ReqManagedAccts:           "REQ_MANAGED_ACCTS",
	ReqFA:                     "REQ_FA",
	ReplaceFA:                 "REPLACE_FA",
	ReqHistoricalData:         "REQ_HISTORICAL_DATA",
	ExerciseOptions:           "EXERCISE_OPTIONS",
	ReqScannerSubscription:    "REQ_SCANNER_SUBSCRIPTION",
	CancelScannerSubscription: "CANCEL_SCANNER_SUBSCRIPTION",
	ReqScannerParameters:      "REQ_SCANNER_PARAMETERS",
	CancelHistoricalData:      "CANCEL_HISTORICAL_DATA",
	ReqCurrentTime:            "REQ_CURRENT_TIME",
	ReqRealTimeBars:           "REQ_REAL_TIME_BARS",
	CancelRealTimeBars:        "CANCEL_REAL_TIME_BARS",
	ReqFundamentalData:        "REQ_FUNDAMENTAL_DATA",
	CancelFundamentalData:     "CANCEL_FUNDAMENTAL_DATA",
	ReqCalcImpliedVolat:       "REQ_CALC_IMPLIED_VOLAT",
	ReqCalcOptionPrice:        "REQ_CALC_OPTION_PRICE",
	CancelCalcImpliedVolat:    "CANCEL_CALC_IMPLIED_VOLAT",
	CancelCalcOptionPrice:     "CANCEL_CALC_OPTION_PRICE",
	ReqGlobalCancel:           "REQ_GLOBAL_CANCEL",
	ReqMarketDataType:         "REQ_MARKET_DATA_TYPE",
}

// MessageName returns the name of an inbound message type, or "Unknown".
func MessageName(typeID int) string {
	if name, ok := messageNames[typeID]; ok {
		return name
	}

	return "Unknown"
}

// RequestName returns the name of an outbound request type, or "Unknown".
func RequestName(typeID int) string {
	if name, ok := requestNames[typeID]; ok {
		return name
	}

	return "Unknown"
}
