package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/libraryhub/library-server/internal/dto"
	"github.com/libraryhub/library-server/internal/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newInspectCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the contents of a store",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "books",
			Short: "List the catalog",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				st, err := opts.openStore(cmd.Context(), true)
				if err != nil {
					return err
				}
				defer st.Close()

				books, err := service.NewBookService(st, nil, nil).ListBooks(cmd.Context())
				if err != nil {
					return err
				}
				if opts.asJSON {
					return writeJSON(cmd.OutOrStdout(), dto.NewBooks(books))
				}

				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tISBN\tSTOCK\tTOTAL\tBORROWED")
				for _, b := range books {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
						b.ID, b.Title, b.Author, b.ISBN, b.Stock, b.TotalCopies, b.ActiveBorrowCount())
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "users",
			Short: "List registered borrowers",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				st, err := opts.openStore(cmd.Context(), true)
				if err != nil {
					return err
				}
				defer st.Close()

				users, err := service.NewAdminService(st, nil).ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				if opts.asJSON {
					return writeJSON(cmd.OutOrStdout(), users)
				}

				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "ID\tNAME\tBORROWED\tREGISTERED")
				for _, u := range users {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
						u.ID, u.Name, len(u.BorrowedBooks), u.RegisteredAt.Format(time.RFC3339))
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "history",
			Short: "Print the borrow ledger, most recent first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				st, err := opts.openStore(cmd.Context(), true)
				if err != nil {
					return err
				}
				defer st.Close()

				entries, err := service.NewAdminService(st, nil).History(cmd.Context())
				if err != nil {
					return err
				}
				if opts.asJSON {
					return writeJSON(cmd.OutOrStdout(), entries)
				}

				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "SEQ\tACTION\tUSER\tBOOK\tBORROWED\tRETURNED")
				for _, e := range entries {
					returned := "-"
					if e.ReturnDate != nil {
						returned = e.ReturnDate.Format(time.RFC3339)
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
						e.Seq, e.Action, e.UserName, e.BookTitle, e.BorrowedDate.Format(time.RFC3339), returned)
				}
				return tw.Flush()
			},
		},
	)
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print library statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := opts.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := service.NewAdminService(st, nil).Statistics(cmd.Context())
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "Total copies\t%d\n", stats.TotalBooks)
			fmt.Fprintf(tw, "Unique titles\t%d\n", stats.UniqueTitles)
			fmt.Fprintf(tw, "Borrowed copies\t%d\n", stats.BorrowedBooks)
			fmt.Fprintf(tw, "Utilization\t%.1f%%\n", stats.UtilizationRate)
			fmt.Fprintf(tw, "Low stock titles\t%d\n", stats.LowStockTitles)
			fmt.Fprintf(tw, "Out of stock titles\t%d\n", stats.OutOfStockTitles)
			fmt.Fprintf(tw, "Active borrowers\t%d\n", stats.ActiveBorrowers)
			return tw.Flush()
		},
	}
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the starter catalog into an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := opts.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer st.Close()

			seeded, err := service.NewBookService(st, nil, nil).Seed(cmd.Context())
			if err != nil {
				return err
			}
			if !seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "Store already has a catalog; nothing to do.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d books.\n", st.CountBooks())
			return nil
		},
	}
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
