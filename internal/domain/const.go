package domain

import "time"

const (
	// Blockchain constants
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"

	// DEFAULT_RELEASE_WINDOW is the fixed vesting window used by the
	// aggregated single-slot ledger variant
	DEFAULT_RELEASE_WINDOW = 60 * 24 * time.Hour
)
