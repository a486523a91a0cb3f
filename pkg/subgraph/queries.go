package subgraph

const (
	depositFields = `
			id
			depositor
			amount
			depositNumber
			timestamp
			blockNumber
			blockTimestamp
			transactionHash`

	bucketFields = `
			id
			timestamp
			depositCount
			depositAmount
			withdrawAmount
			uniqueDepositors
			cumulativeDeposits
			cumulativeAmount`

	recentDepositsQuery = `
		query GetRecentDeposits($first: Int!) {
			depositeds(first: $first, orderBy: timestamp, orderDirection: desc) {` + depositFields + `
			}
		}`

	depositAmountSetsQuery = `
		query GetDepositAmountSets($first: Int!) {
			depositAmountSets(first: $first, orderBy: blockNumber, orderDirection: desc) {
				id
				depositNumber
				amount
				blockNumber
				blockTimestamp
				transactionHash
			}
		}`

	minuteStatsQuery = `
		query GetMinuteStats($first: Int!) {
			minuteStats(first: $first, orderBy: timestamp, orderDirection: desc) {` + bucketFields + `
			}
		}`

	hourlyStatsQuery = `
		query GetHourlyStats($first: Int!) {
			hourlyStats(first: $first, orderBy: timestamp, orderDirection: desc) {` + bucketFields + `
			}
		}`

	allDepositsQuery = `
		query GetAllDeposits($first: Int!) {
			depositeds(first: $first, orderBy: depositNumber, orderDirection: asc) {` + depositFields + `
			}
		}`

	globalStatsQuery = `
		query GetGlobalStats($first: Int!) {
			globalStats(first: $first) {
				id
				totalDeposits
				totalAmount
				totalWithdrawn
				uniqueDepositors
				lastDepositTimestamp
				lastUpdateTimestamp
			}
		}`
)
