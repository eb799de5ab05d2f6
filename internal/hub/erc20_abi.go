package hub

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// symbol and name are read as string first, then as bytes32.
const (
	erc20ABIStringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`
	erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`
)

var (
	erc20ABIs     [2]abi.ABI
	erc20ABIsOnce sync.Once
	erc20ABIsErr  error
)

func loadERC20ABIs() {
	for i, src := range []string{erc20ABIStringJSON, erc20ABIBytes32JSON} {
		erc20ABIs[i], erc20ABIsErr = abi.JSON(strings.NewReader(src))
		if erc20ABIsErr != nil {
			return
		}
	}
}

func erc20ABIStringInstance() (abi.ABI, error) {
	erc20ABIsOnce.Do(loadERC20ABIs)
	return erc20ABIs[0], erc20ABIsErr
}

func erc20ABIBytes32Instance() (abi.ABI, error) {
	erc20ABIsOnce.Do(loadERC20ABIs)
	return erc20ABIs[1], erc20ABIsErr
}
