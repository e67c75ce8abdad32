package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// ResolveResult is the output of the resolve command.
type ResolveResult struct {
	SocialID uint64 `json:"fid"`
	Found    bool   `json:"found"`
	Address  string `json:"address,omitempty"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "resolve <fid>",
		Short:         "Resolve a social id to its first verified address",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(rootOpts, args[0], cmd)
		},
	}
}

func runResolve(rootOpts *RootOptions, arg string, cmd *cobra.Command) error {
	fid, err := parseSocialID(arg)
	if err != nil {
		return err
	}

	cfg, err := rootOpts.config()
	if err != nil {
		return err
	}

	resolver, err := rootOpts.openResolver(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "identity", err)
	}
	if resolver == nil {
		return NewExitError(ExitCommandError, "no identity service configured (identity.base_url)")
	}

	addr, found, err := resolver.ResolveAddress(cmd.Context(), fid)
	if err != nil {
		return WrapExitError(ExitFailure, "resolve", err)
	}

	result := ResolveResult{SocialID: fid, Found: found}
	address := "none"
	if found {
		result.Address = addr.Hex()
		address = result.Address
	}
	return printResult(cmd.OutOrStdout(), rootOpts.Format, result, []field{
		{"Fid", fmt.Sprint(fid)},
		{"Address", address},
	})
}

// parseSocialID parses a positive social id.
func parseSocialID(s string) (uint64, error) {
	fid, err := strconv.ParseUint(s, 10, 64)
	if err != nil || fid == 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid fid %q: must be a positive integer", s))
	}
	return fid, nil
}
