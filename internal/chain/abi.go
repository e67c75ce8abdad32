package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// HatABI is the ABI subset of the deployed ERC-1155 hat contract.
const HatABI = `[
	{
		"type": "function",
		"name": "balanceOf",
		"stateMutability": "view",
		"inputs": [
			{"name": "account", "type": "address"},
			{"name": "id", "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"type": "function",
		"name": "totalSupply",
		"stateMutability": "view",
		"inputs": [],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"type": "function",
		"name": "mint",
		"stateMutability": "nonpayable",
		"inputs": [{"name": "to", "type": "address"}],
		"outputs": []
	},
	{
		"type": "function",
		"name": "buyHat",
		"stateMutability": "payable",
		"inputs": [{"name": "fid", "type": "uint256"}],
		"outputs": []
	}
]`

// Contract method names.
const (
	MethodBalanceOf   = "balanceOf"
	MethodTotalSupply = "totalSupply"
	MethodMint        = "mint"
	MethodBuyHat      = "buyHat"
)

var parsedHatABI = mustParseABI(HatABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parse hat abi: %v", err))
	}
	return parsed
}

// ParsedABI returns the parsed hat contract ABI.
func ParsedABI() abi.ABI {
	return parsedHatABI
}

// EncodeBuyHat packs calldata for buyHat(fid), the payable purchase call
// submitted by the caller's own wallet.
func EncodeBuyHat(fid uint64) ([]byte, error) {
	data, err := parsedHatABI.Pack(MethodBuyHat, new(big.Int).SetUint64(fid))
	if err != nil {
		return nil, fmt.Errorf("pack buyHat: %w", err)
	}
	return data, nil
}
