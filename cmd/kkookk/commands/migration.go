package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kkookk/kkookk/internal/flows"
)

func NewMigrationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migration",
		Short: "Convert a paper stamp card into digital stamps",
	}
	cmd.AddCommand(newMigrationSubmitCmd(), newMigrationWatchCmd(), newMigrationListCmd())
	return cmd
}

func newMigrationSubmitCmd() *cobra.Command {
	var storeID string
	var photo string
	var wait bool
	var plain bool

	cmd := &cobra.Command{
		Use:         "submit",
		Short:       "Submit a photo of a paper card for review",
		Annotations: map[string]string{annotationTUI: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := loadClient()
			if err != nil {
				return err
			}
			sid, err := parsePositiveID("--store", resolveStoreID(cfg, storeID))
			if err != nil {
				return err
			}
			if strings.TrimSpace(photo) == "" {
				return fmt.Errorf("--photo is required")
			}

			svc := flows.NewMigration(client)
			req, err := svc.Submit(cmd.Context(), sid, photo)
			if err != nil {
				return fmt.Errorf("submit migration: %w", err)
			}
			fmt.Printf("Migration request #%s submitted to %s.\n", req.ID, req.StoreName)
			if !wait {
				return nil
			}
			return watchRequest(cmd.Context(), cfg, svc.Flow(), svc, req, plain)
		},
	}

	cmd.Flags().StringVarP(&storeID, "store", "s", "", "Store id (defaults to workflow.store_id)")
	cmd.Flags().StringVar(&photo, "photo", "", "Photo file name of the paper card")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the store's decision")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print progress lines instead of the full-screen view")
	return cmd
}

func newMigrationWatchCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:         "watch <request-id>",
		Short:       "Wait for a migration decision",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationTUI: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := loadClient()
			if err != nil {
				return err
			}
			svc := flows.NewMigration(client)
			req, err := svc.Fetch(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load request %s: %w", args[0], err)
			}
			return watchRequest(cmd.Context(), cfg, svc.Flow(), svc, req, plain)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Print progress lines instead of the full-screen view")
	return cmd
}

func newMigrationListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List my migration requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := loadClient()
			if err != nil {
				return err
			}
			reqs, err := flows.NewMigration(client).Mine(cmd.Context())
			if err != nil {
				return err
			}
			if len(reqs) == 0 {
				fmt.Println("No migration requests.")
				return nil
			}
			rows := make([][]string, 0, len(reqs))
			for _, r := range reqs {
				result := string(r.Status)
				switch {
				case r.Resolution.ApprovedCount != nil:
					result = fmt.Sprintf("%s (+%d)", r.Status, *r.Resolution.ApprovedCount)
				case r.Resolution.Reason != "":
					result = fmt.Sprintf("%s: %s", r.Status, r.Resolution.Reason)
				}
				rows = append(rows, []string{r.ID, r.StoreName, result, formatTime(r.CreatedAt)})
			}
			printTable([]string{"ID", "Store", "Status", "Submitted"}, rows)
			return nil
		},
	}
}
