package main

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

// SupplyResult is the output of the supply command.
type SupplyResult struct {
	Contract string `json:"contract"`
	Supply   string `json:"supply"`
	SoldOut  bool   `json:"sold_out"`
}

// BalanceResult is the output of the balance command.
type BalanceResult struct {
	Owner   string `json:"owner"`
	TokenID int64  `json:"token_id"`
	Balance string `json:"balance"`
}

// NewSupplyCommand creates the supply command.
func NewSupplyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "supply",
		Short:         "Print the contract's remaining supply",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSupply(rootOpts, cmd)
		},
	}
}

func runSupply(rootOpts *RootOptions, cmd *cobra.Command) error {
	cfg, err := rootOpts.config()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, closeChain, err := rootOpts.dialChain(ctx, cfg, rootOpts.logger(cmd))
	if err != nil {
		return WrapExitError(ExitFailure, "connect chain", err)
	}
	defer closeChain()

	supply, err := client.TotalSupply(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "read supply", err)
	}

	result := SupplyResult{
		Contract: cfg.Chain.ContractAddress().Hex(),
		Supply:   supply.String(),
		SoldOut:  supply.Sign() == 0,
	}
	return printResult(cmd.OutOrStdout(), rootOpts.Format, result, []field{
		{"Contract", result.Contract},
		{"Supply", result.Supply},
		{"Sold out", fmt.Sprint(result.SoldOut)},
	})
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "balance <address>",
		Short:         "Print how many hats an address holds",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBalance(rootOpts, args[0], cmd)
		},
	}
}

func runBalance(rootOpts *RootOptions, address string, cmd *cobra.Command) error {
	if !common.IsHexAddress(address) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid address %q", address))
	}
	owner := common.HexToAddress(address)

	cfg, err := rootOpts.config()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, closeChain, err := rootOpts.dialChain(ctx, cfg, rootOpts.logger(cmd))
	if err != nil {
		return WrapExitError(ExitFailure, "connect chain", err)
	}
	defer closeChain()

	balance, err := client.BalanceOf(ctx, owner)
	if err != nil {
		return WrapExitError(ExitFailure, "read balance", err)
	}
	if balance == nil {
		balance = new(big.Int)
	}

	result := BalanceResult{
		Owner:   owner.Hex(),
		TokenID: cfg.Chain.TokenID,
		Balance: balance.String(),
	}
	return printResult(cmd.OutOrStdout(), rootOpts.Format, result, []field{
		{"Owner", result.Owner},
		{"Token id", fmt.Sprint(result.TokenID)},
		{"Balance", result.Balance},
	})
}
