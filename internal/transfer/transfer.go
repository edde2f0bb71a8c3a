// Package transfer defines the external token transfer boundary. The
// accounting core never assumes anything about the token's internal
// representation; it only relies on the two capabilities below, both strict
// success-or-failure with no partial transfer.
package transfer

import (
	"context"
	"math/big"

	"github.com/feral-file/ff-vesting/internal/domain"
)

// Transferor defines the interface for moving tokens across the engine boundary
//
//go:generate mockgen -source=transfer.go -destination=../mocks/transferor.go -package=mocks -mock_names=Transferor=MockTransferor
type Transferor interface {
	// TransferIn debits amount of token from the depositor into the vesting vault
	TransferIn(ctx context.Context, token, from domain.Address, amount *big.Int) error
	// TransferOut credits amount of token from the vault to the beneficiary
	TransferOut(ctx context.Context, token, to domain.Address, amount *big.Int) error
}
