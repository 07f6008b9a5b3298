package topics

const (
	// Props
	PropResults = "prop_results"

	// Wagers
	WagerPlaced  = "wager_placed"
	WagerSettled = "wager_settled"

	// DLQs
	PropResultsDLQ = "prop_results_dlq"
)
