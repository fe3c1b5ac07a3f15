// Package contract implements the network source tier on a key-value state
// contract.
package contract

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// KVABI is the interface of the state contract:
//
//	function get(bytes32 key) external view returns (bytes memory);
//	function put(bytes32 key, bytes calldata value) external;
const KVABI = `[
	{"type":"function","name":"get","stateMutability":"view",
	 "inputs":[{"name":"key","type":"bytes32"}],
	 "outputs":[{"name":"","type":"bytes"}]},
	{"type":"function","name":"put","stateMutability":"nonpayable",
	 "inputs":[{"name":"key","type":"bytes32"},{"name":"value","type":"bytes"}],
	 "outputs":[]}
]`

var kvABI = mustParseABI(KVABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("invalid state contract ABI: " + err.Error())
	}
	return parsed
}
