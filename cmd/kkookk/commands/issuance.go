package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kkookk/kkookk/internal/flows"
)

func NewIssuanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issuance",
		Short: "Ask a store for a stamp and wait for its decision",
	}
	cmd.AddCommand(newIssuanceRequestCmd(), newIssuanceWatchCmd())
	return cmd
}

func newIssuanceRequestCmd() *cobra.Command {
	var storeID string
	var plain bool

	cmd := &cobra.Command{
		Use:         "request",
		Short:       "Request a stamp and wait up to 90 seconds for approval",
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

			svc := flows.NewIssuance(client)
			req, err := svc.Create(cmd.Context(), sid)
			if err != nil {
				return fmt.Errorf("request stamp: %w", err)
			}
			fmt.Printf("Stamp request #%s sent to %s. Show this screen to the staff.\n", req.ID, req.StoreName)
			return watchRequest(cmd.Context(), cfg, svc.Flow(), svc, req, plain)
		},
	}

	cmd.Flags().StringVarP(&storeID, "store", "s", "", "Store id (defaults to workflow.store_id)")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print progress lines instead of the full-screen view")
	return cmd
}

func newIssuanceWatchCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:         "watch <request-id>",
		Short:       "Wait for an existing stamp request",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationTUI: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := loadClient()
			if err != nil {
				return err
			}
			svc := flows.NewIssuance(client)
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
