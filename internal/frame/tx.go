package frame

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"hat-store/internal/chain"
	"hat-store/internal/domain"
	"hat-store/internal/engine"
)

// DefaultChainID is Base mainnet in CAIP-2 form.
const DefaultChainID = "eip155:8453"

// ErrAnonymousPurchase is returned when a purchase has no caller id.
var ErrAnonymousPurchase = errors.New("purchase requires a caller id")

// TxResponse is the transaction frame returned to the wallet.
type TxResponse struct {
	ChainID string   `json:"chainId"`
	Method  string   `json:"method"`
	Params  TxParams `json:"params"`
}

// TxParams are the eth_sendTransaction parameters.
type TxParams struct {
	ABI   json.RawMessage `json:"abi"`
	To    string          `json:"to"`
	Data  string          `json:"data"`
	Value string          `json:"value"`
}

// BuildPurchase builds the buyHat(fid) transaction at tier's price.
func BuildPurchase(chainID string, contract common.Address, fid uint64, tier domain.PriceTier) (TxResponse, error) {
	if fid == 0 {
		return TxResponse{}, ErrAnonymousPurchase
	}

	data, err := chain.EncodeBuyHat(fid)
	if err != nil {
		return TxResponse{}, fmt.Errorf("encode purchase: %w", err)
	}

	return TxResponse{
		ChainID: chainID,
		Method:  "eth_sendTransaction",
		Params: TxParams{
			ABI:   json.RawMessage(chain.HatABI),
			To:    contract.Hex(),
			Data:  hexutil.Encode(data),
			Value: engine.PriceForTier(tier).Wei.String(),
		},
	}, nil
}
