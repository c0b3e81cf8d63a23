package cli

import (
	"context"
	"encoding/json"
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
	petsPage int
	petsSize int
)

var petsCmd = &cobra.Command{
	Use:   "pets",
	Short: "Browse the pets catalog",
}

var petsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pets, one page at a time",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if code := runPetsList(ctx, os.Stdout, ""); code != 0 {
			os.Exit(code)
		}
	},
}

var petsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search pets by name",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if code := runPetsList(ctx, os.Stdout, strings.Join(args, " ")); code != 0 {
			os.Exit(code)
		}
	},
}

var petsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one pet",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if code := runPetsGet(ctx, os.Stdout, args[0]); code != 0 {
			os.Exit(code)
		}
	},
}

func init() {
	petsCmd.PersistentFlags().IntVar(&petsPage, "page", 0, "Page number (0-based)")
	petsCmd.PersistentFlags().IntVar(&petsSize, "size", 0, "Page size (0 = configured default)")

	petsCmd.AddCommand(petsListCmd)
	petsCmd.AddCommand(petsSearchCmd)
	petsCmd.AddCommand(petsGetCmd)
	rootCmd.AddCommand(petsCmd)
}

func runPetsList(ctx context.Context, w io.Writer, query string) int {
	a := newApp()
	facade := a.petFacade(petsSize)

	if query != "" {
		facade.SetQuery(ctx, query)
	}
	facade.LoadPage(ctx, petsPage)

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
	fmt.Fprintln(tw, "ID\tNAME\tSPECIES\tAGE\tBREED\tTUTOR")
	for _, p := range state.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", p.ID, p.Name, p.Species, p.Age, p.Breed, p.TutorID)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nPage %d: %d of %d pets\n", state.Page, len(state.Items), state.Total)
	return 0
}

func runPetsGet(ctx context.Context, w io.Writer, id string) int {
	a := newApp()

	pet, err := a.pets.Get(ctx, id)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if jsonOutput {
		printJSON(w, pet)
		return 0
	}

	fmt.Fprintf(w, "ID:      %s\nName:    %s\nSpecies: %s\nAge:     %d\n", pet.ID, pet.Name, pet.Species, pet.Age)
	if pet.Breed != "" {
		fmt.Fprintf(w, "Breed:   %s\n", pet.Breed)
	}
	if pet.TutorID != "" {
		fmt.Fprintf(w, "Tutor:   %s\n", pet.TutorID)
	}
	if pet.Photo != nil {
		fmt.Fprintf(w, "Photo:   %s\n", pet.Photo.URL)
	}
	return 0
}

func printJSON(w io.Writer, v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(data))
}
