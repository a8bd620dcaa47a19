package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nexcar/rwe-km/internal/persona"
)

func newResolveCmd(root *rootOptions) *cobra.Command {
	var (
		sub  persona.Subgroup
		bulk string
		risk string
		load string
		keys string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Match a subgroup against available persona keys",
		Long:  "Resolve a heat-map subgroup to one of the persona identifiers listed in --keys, one per line.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(sub.RowTitle) == "" {
				return fmt.Errorf("--row is required")
			}
			var err error
			if sub.Bulk, err = parseBulk(bulk); err != nil {
				return err
			}
			if sub.Risk, err = parseRisk(risk); err != nil {
				return err
			}
			if sub.Burden, err = parseBurden(load); err != nil {
				return err
			}

			in, err := openInput(cmd, keys)
			if err != nil {
				return err
			}
			defer in.Close()
			var available []string
			scanner := bufio.NewScanner(in)
			for scanner.Scan() {
				if line := strings.TrimSpace(scanner.Text()); line != "" {
					available = append(available, line)
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read keys: %w", err)
			}

			res := persona.NewResolver(root.logger(cmd)).Resolve(sub, available)
			if !res.Found() {
				return fmt.Errorf("no persona matches %q", persona.CanonicalKey(sub))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", res.Outcome, res.Key)
			return nil
		},
	}

	cmd.Flags().StringVar(&sub.RowTitle, "row", "", "row title, e.g. \"Early Relapse\"")
	cmd.Flags().StringVar(&bulk, "bulk", "", "bulky or non-bulky")
	cmd.Flags().StringVar(&risk, "risk", "", "IPI bucket: 0-2 or 3-5")
	cmd.Flags().StringVar(&load, "burden", "", "blast burden: low or high")
	cmd.Flags().StringVar(&keys, "keys", "-", "file of persona keys, - for stdin")
	return cmd
}

func parseBulk(v string) (persona.BulkStatus, error) {
	switch strings.ToLower(v) {
	case "":
		return persona.BulkNone, nil
	case "bulky":
		return persona.BulkBulky, nil
	case "non-bulky", "nonbulky":
		return persona.BulkNonBulky, nil
	}
	return "", fmt.Errorf("invalid --bulk %q", v)
}

func parseRisk(v string) (persona.RiskRange, error) {
	switch persona.RiskRange(v) {
	case persona.RiskNone, persona.RiskLow, persona.RiskHigh:
		return persona.RiskRange(v), nil
	}
	return "", fmt.Errorf("invalid --risk %q", v)
}

func parseBurden(v string) (persona.Burden, error) {
	switch persona.Burden(strings.ToLower(v)) {
	case persona.BurdenNone, persona.BurdenLow, persona.BurdenHigh:
		return persona.Burden(strings.ToLower(v)), nil
	}
	return "", fmt.Errorf("invalid --burden %q", v)
}
