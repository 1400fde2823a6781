package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"edencore/marketrun/internal/domain"
	"edencore/marketrun/internal/i18n"
	"edencore/marketrun/internal/marketrun"
	"edencore/marketrun/internal/runplan"
)

// withEngine opens a session, loads the consolidated list and hands the
// engine to fn.
func withEngine(opts *globalOptions, cmd *cobra.Command, fn func(*marketrun.Engine) error) error {
	ctx := cmd.Context()
	s, err := opts.openSession(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.engine.Load(ctx); err != nil {
		return err
	}
	return fn(s.engine)
}

func newListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the shopping list grouped by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(opts, cmd, func(engine *marketrun.Engine) error {
				out := cmd.OutOrStdout()
				renderShopping(out, engine.ShoppingSections(), engine.Language())
				renderProgress(out, engine.Progress(), engine.Language())
				return nil
			})
		},
	}
}

func newDistributionCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "distribution",
		Short: "Show how much of each product goes to each store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(opts, cmd, func(engine *marketrun.Engine) error {
				renderDistribution(cmd.OutOrStdout(), engine.DistributionSections(), engine.Language())
				return nil
			})
		},
	}
}

func newStallsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stalls",
		Short: "Show the shopping list grouped by market stall",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(opts, cmd, func(engine *marketrun.Engine) error {
				out := cmd.OutOrStdout()
				lang := engine.Language()
				for _, section := range engine.StallSections() {
					fmt.Fprintf(out, "== %s ==\n", section.Name)
					for _, item := range section.Items {
						renderItem(out, item, lang)
					}
				}
				return nil
			})
		},
	}
}

func newSearchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy-search products by name in any language",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(opts, cmd, func(engine *marketrun.Engine) error {
				out := cmd.OutOrStdout()
				lang := engine.Language()
				matches := engine.Search(strings.Join(args, " "))
				if len(matches) == 0 {
					fmt.Fprintln(out, i18n.UI(lang, i18n.KeyNoItemsFound))
					return nil
				}
				for _, item := range matches {
					renderItem(out, item, lang)
				}
				return nil
			})
		},
	}
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run <plan.yaml>",
		Short: "Apply a run plan and finalize the purchase batch",
		Long: `Loads the consolidated list, applies store quantities, prices and bought
flags from the plan, then submits every bought item as one batch. With
--dry-run the resulting list is printed and nothing is submitted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := runplan.Load(args[0])
			if err != nil {
				return err
			}
			return withEngine(opts, cmd, func(engine *marketrun.Engine) error {
				if err := plan.Apply(engine); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				lang := engine.Language()
				if dryRun {
					renderShopping(out, engine.ShoppingSections(), lang)
					renderProgress(out, engine.Progress(), lang)
					return nil
				}

				resp, err := engine.Finalize(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "batch %s %s (%d items)\n", resp.ID, resp.Status, len(resp.Items))
				for _, line := range resp.Items {
					fmt.Fprintf(out, "  %s  %s: %s  %s: %s  %s: %s\n", line.ProductID,
						i18n.UI(lang, i18n.KeyQty), i18n.FormatAmount(lang, line.TotalQuantityBought),
						i18n.UI(lang, i18n.KeyUnitPrice), i18n.FormatAmount(lang, line.UnitPriceCalculated),
						i18n.UI(lang, i18n.KeyTotalCost), i18n.FormatAmount(lang, line.TotalCostUZS))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "apply the plan and print the result without submitting")
	return cmd
}

func renderShopping(w io.Writer, sections []marketrun.CategorySection, lang i18n.Language) {
	fmt.Fprintf(w, "%s\n", i18n.UI(lang, i18n.KeyMarketRun))
	if len(sections) == 0 {
		fmt.Fprintln(w, i18n.UI(lang, i18n.KeyNoItemsFound))
		return
	}
	for _, section := range sections {
		name := section.Name
		if name == "" {
			name = i18n.UI(lang, i18n.KeyOther)
		}
		fmt.Fprintf(w, "== %s ==\n", name)
		for _, item := range section.Items {
			renderItem(w, item, lang)
		}
	}
}

func renderItem(w io.Writer, item domain.MarketItem, lang i18n.Language) {
	mark := " "
	if item.Status == domain.StatusBought {
		mark = "x"
	}
	fmt.Fprintf(w, "[%s] %s  %s %s", mark, i18n.Translate(item.ProductName, lang),
		i18n.FormatAmount(lang, item.PurchaseQuantity), i18n.Translate(item.Unit, lang))
	if !item.PurchaseQuantity.Equal(item.TotalQuantityNeeded) {
		fmt.Fprintf(w, " / %s", i18n.FormatAmount(lang, item.TotalQuantityNeeded))
	}
	if item.PriceReference != nil {
		fmt.Fprintf(w, "  ~%s", i18n.FormatAmount(lang, *item.PriceReference))
	}
	if item.PurchasePrice != nil {
		fmt.Fprintf(w, "  %s: %s", i18n.UI(lang, i18n.KeyTotalCost), i18n.FormatAmount(lang, *item.PurchasePrice))
	}
	fmt.Fprintln(w)
	for _, row := range item.Breakdown {
		fmt.Fprintf(w, "      %s: %s\n", row.StoreName, i18n.FormatAmount(lang, row.Quantity))
	}
}

func renderDistribution(w io.Writer, sections []marketrun.StoreSection, lang i18n.Language) {
	if len(sections) == 0 {
		fmt.Fprintln(w, i18n.UI(lang, i18n.KeyNoItemsFound))
		return
	}
	for _, section := range sections {
		fmt.Fprintf(w, "== %s ==\n", section.StoreName)
		for _, line := range section.Lines {
			fmt.Fprintf(w, "  %s  %s %s\n", i18n.Translate(line.Item.ProductName, lang),
				i18n.FormatAmount(lang, line.Quantity), i18n.Translate(line.Item.Unit, lang))
		}
	}
}

func renderProgress(w io.Writer, p marketrun.Progress, lang i18n.Language) {
	fmt.Fprintf(w, "%s: %d/%d", i18n.UI(lang, i18n.KeyProgress), p.Bought, p.Total)
	if p.SpentUZS.GreaterThan(decimal.Zero) {
		fmt.Fprintf(w, "  %s: %s UZS", i18n.UI(lang, i18n.KeyTotalCost), i18n.FormatAmount(lang, p.SpentUZS))
	}
	fmt.Fprintln(w)
}
