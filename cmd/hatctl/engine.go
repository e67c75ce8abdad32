package main

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/spf13/cobra"

	"hat-store/internal/domain"
	"hat-store/internal/engine"
)

var eligibilities = []domain.Eligibility{
	domain.IneligibleNoAddress,
	domain.EligibleForMint,
	domain.AlreadyHolder,
	domain.SupplyExhausted,
	domain.EligibilityUnavailable,
}

// QuoteResult is the output of the quote command.
type QuoteResult struct {
	Eligibility string `json:"eligibility"`
	Tier        string `json:"tier"`
	Wei         string `json:"wei"`
	Ether       string `json:"ether"`
}

// EligibilityResult is the output of the eligibility command.
type EligibilityResult struct {
	SocialID    uint64      `json:"fid"`
	Eligibility string      `json:"eligibility"`
	Address     string      `json:"address,omitempty"`
	Supply      string      `json:"supply,omitempty"`
	Balance     string      `json:"balance,omitempty"`
	Failure     string      `json:"failure,omitempty"`
	Price       QuoteResult `json:"price"`
}

// NewQuoteCommand creates the quote command.
func NewQuoteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <eligibility>",
		Short: "Print the purchase price for an eligibility",
		Long: fmt.Sprintf(`Print the purchase price for an eligibility.

Eligibility is one of: %s`, eligibilityNames()),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuote(rootOpts, args[0], cmd)
		},
	}
}

func runQuote(rootOpts *RootOptions, arg string, cmd *cobra.Command) error {
	e, err := parseEligibility(arg)
	if err != nil {
		return err
	}
	result := quote(e)
	return printResult(cmd.OutOrStdout(), rootOpts.Format, result, quoteFields(result))
}

// NewEligibilityCommand creates the eligibility command.
func NewEligibilityCommand(rootOpts *RootOptions) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "eligibility <fid>",
		Short: "Decide discount eligibility for a social id without minting",
		Long: `Decide discount eligibility for a social id the way the coupon
step does: a well-formed --address wins over the identity lookup, then the
supply and the caller's balance are read. No mint is sent.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEligibility(rootOpts, args[0], address, cmd)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "typed wallet address, as entered in the frame input")

	return cmd
}

func runEligibility(rootOpts *RootOptions, arg, address string, cmd *cobra.Command) error {
	fid, err := parseSocialID(arg)
	if err != nil {
		return err
	}

	cfg, err := rootOpts.config()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	eng, closeEngine, err := rootOpts.newEngine(ctx, cfg, rootOpts.logger(cmd))
	if err != nil {
		return err
	}
	defer closeEngine()

	d := eng.DecideDiscountEligibility(ctx, domain.Identity{SocialID: fid, TypedAddress: address})

	result := EligibilityResult{
		SocialID:    fid,
		Eligibility: d.Eligibility.String(),
		Supply:      amount(d.Supply),
		Balance:     amount(d.Balance),
		Price:       quote(d.Eligibility),
	}
	if d.HasAddress {
		result.Address = d.Address.Hex()
	}
	if d.Failure != nil {
		result.Failure = d.Failure.Error()
	}

	fields := []field{
		{"Fid", fmt.Sprint(fid)},
		{"Eligibility", result.Eligibility},
		{"Address", orNone(result.Address)},
		{"Supply", orNone(result.Supply)},
		{"Balance", orNone(result.Balance)},
	}
	if result.Failure != "" {
		fields = append(fields, field{"Failure", result.Failure})
	}
	fields = append(fields, quoteFields(result.Price)[1:]...)

	if err := printResult(cmd.OutOrStdout(), rootOpts.Format, result, fields); err != nil {
		return err
	}
	if d.Failure != nil {
		return WrapExitError(ExitFailure, "eligibility unavailable", d.Failure)
	}
	return nil
}

func quote(e domain.Eligibility) QuoteResult {
	p := engine.PriceFor(e)
	return QuoteResult{
		Eligibility: e.String(),
		Tier:        string(p.Tier),
		Wei:         p.Wei.String(),
		Ether:       engine.FormatEther(p.Wei),
	}
}

func quoteFields(q QuoteResult) []field {
	return []field{
		{"Eligibility", q.Eligibility},
		{"Tier", q.Tier},
		{"Price (wei)", q.Wei},
		{"Price (ETH)", q.Ether},
	}
}

func parseEligibility(s string) (domain.Eligibility, error) {
	for _, e := range eligibilities {
		if strings.EqualFold(s, string(e)) {
			return e, nil
		}
	}
	return "", NewExitError(ExitCommandError,
		fmt.Sprintf("unknown eligibility %q: must be one of %s", s, eligibilityNames()))
}

func eligibilityNames() string {
	names := make([]string, len(eligibilities))
	for i, e := range eligibilities {
		names[i] = string(e)
	}
	return strings.Join(names, ", ")
}

func amount(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
