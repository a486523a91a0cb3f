package subgraph

// DepositEvent is one Deposited event as indexed by the subgraph. Numeric
// fields are decimal strings; Amount is in base units.
type DepositEvent struct {
	ID              string `json:"id"`
	Depositor       string `json:"depositor"`
	Amount          string `json:"amount"`
	DepositNumber   string `json:"depositNumber"`
	Timestamp       string `json:"timestamp"`
	BlockNumber     string `json:"blockNumber"`
	BlockTimestamp  string `json:"blockTimestamp"`
	TransactionHash string `json:"transactionHash"`
}

// DepositAmountSet records the admin configuring the amount of deposit #DepositNumber.
type DepositAmountSet struct {
	ID              string `json:"id"`
	DepositNumber   string `json:"depositNumber"`
	Amount          string `json:"amount"`
	BlockNumber     string `json:"blockNumber"`
	BlockTimestamp  string `json:"blockTimestamp"`
	TransactionHash string `json:"transactionHash"`
}

// AggregateBucket is a minuteStats or hourlyStats row. Timestamp is the bucket start.
type AggregateBucket struct {
	ID                 string `json:"id"`
	Timestamp          string `json:"timestamp"`
	DepositCount       string `json:"depositCount"`
	DepositAmount      string `json:"depositAmount"`
	WithdrawAmount     string `json:"withdrawAmount"`
	UniqueDepositors   string `json:"uniqueDepositors"`
	CumulativeDeposits string `json:"cumulativeDeposits"`
	CumulativeAmount   string `json:"cumulativeAmount"`
}

// GlobalStats is the singleton running-totals entity.
type GlobalStats struct {
	ID                   string `json:"id"`
	TotalDeposits        string `json:"totalDeposits"`
	TotalAmount          string `json:"totalAmount"`
	TotalWithdrawn       string `json:"totalWithdrawn"`
	UniqueDepositors     string `json:"uniqueDepositors"`
	LastDepositTimestamp string `json:"lastDepositTimestamp"`
	LastUpdateTimestamp  string `json:"lastUpdateTimestamp"`
}
