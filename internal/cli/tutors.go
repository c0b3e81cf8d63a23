package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	tutorsPage int
	tutorsSize int
)

var tutorsCmd = &cobra.Command{
	Use:   "tutors",
	Short: "Browse the tutors catalog",
}

var tutorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tutors, one page at a time",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if code := runTutorsList(ctx, os.Stdout, ""); code != 0 {
			os.Exit(code)
		}
	},
}

var tutorsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search tutors by name",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if code := runTutorsList(ctx, os.Stdout, strings.Join(args, " ")); code != 0 {
			os.Exit(code)
		}
	},
}

var tutorsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one tutor",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if code := runTutorsGet(ctx, os.Stdout, args[0]); code != 0 {
			os.Exit(code)
		}
	},
}

func init() {
	tutorsCmd.PersistentFlags().IntVar(&tutorsPage, "page", 0, "Page number (0-based)")
	tutorsCmd.PersistentFlags().IntVar(&tutorsSize, "size", 0, "Page size (0 = configured default)")

	tutorsCmd.AddCommand(tutorsListCmd)
	tutorsCmd.AddCommand(tutorsSearchCmd)
	tutorsCmd.AddCommand(tutorsGetCmd)
	rootCmd.AddCommand(tutorsCmd)
}

func runTutorsList(ctx context.Context, w io.Writer, query string) int {
	a := newApp()
	facade := a.tutorFacade(tutorsSize)

	if query != "" {
		facade.SetQuery(ctx, query)
	}
	facade.LoadPage(ctx, tutorsPage)

	state := facade.Snapshot()
	if state.Err != "" {
		fmt.Fprintf(w, "Error: %s\n", state.Err)
		return 2
	}

	if jsonOutput {
		printJSON(w, state)
		return 0
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPHONE\tEMAIL")
	for _, t := range state.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Phone, t.Email)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nPage %d: %d of %d tutors\n", state.Page, len(state.Items), state.Total)
	return 0
}

func runTutorsGet(ctx context.Context, w io.Writer, id string) int {
	a := newApp()

	tutor, err := a.tutors.Get(ctx, id)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if jsonOutput {
		printJSON(w, tutor)
		return 0
	}

	fmt.Fprintf(w, "ID:      %s\nName:    %s\nPhone:   %s\n", tutor.ID, tutor.Name, tutor.Phone)
	if tutor.Email != "" {
		fmt.Fprintf(w, "Email:   %s\n", tutor.Email)
	}
	if tutor.Address != "" {
		fmt.Fprintf(w, "Address: %s\n", tutor.Address)
	}
	if tutor.CPF != "" {
		fmt.Fprintf(w, "CPF:     %s\n", tutor.CPF)
	}
	return 0
}
