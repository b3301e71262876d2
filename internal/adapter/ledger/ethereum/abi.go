package ethereum

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/shopspring/decimal"
)

// treasuryABI covers the methods the backend calls on the treasury contract.
const treasuryABI = `[
  {"type":"function","name":"borrowFaucet","stateMutability":"nonpayable",
   "inputs":[{"name":"account","type":"address"}],"outputs":[]},
  {"type":"function","name":"lendFaucet","stateMutability":"payable",
   "inputs":[],"outputs":[]},
  {"type":"function","name":"withdraw","stateMutability":"nonpayable",
   "inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"updateWhitelistedAccount","stateMutability":"nonpayable",
   "inputs":[{"name":"account","type":"address"},{"name":"isWhitelisted","type":"bool"}],"outputs":[]},
  {"type":"function","name":"isWhitelistedAccount","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"owner","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

const (
	methodBorrow        = "borrowFaucet"
	methodLend          = "lendFaucet"
	methodWithdraw      = "withdraw"
	methodSetWhitelist  = "updateWhitelistedAccount"
	methodIsWhitelisted = "isWhitelistedAccount"
	methodOwner         = "owner"
)

func parseTreasuryABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(treasuryABI))
}

const etherDecimals = 18

// ToWei converts an ether amount to wei, truncating below 1 wei.
func ToWei(ether decimal.Decimal) *big.Int {
	return ether.Shift(etherDecimals).BigInt()
}

// FromWei converts wei to an ether amount without loss.
func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -etherDecimals)
}
