package cli

import (
	"github.com/spf13/cobra"

	"adoptify-web/internal/model"
)

func newApplyCmd(opts *rootOptions) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "apply PET_ID",
		Short: "Apply to adopt a pet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			petID, err := parseID(args[0])
			if err != nil {
				return err
			}

			app, err := opts.env.adoptions.Apply(cmd.Context(), opts.env.store, model.ApplicationRequest{
				PetID:   petID,
				Message: message,
			})
			if err != nil {
				return explain(err)
			}

			printf(cmd.OutOrStdout(), "Application %d for %s submitted (%s).\n", app.ID, app.PetName, app.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Message for the shelter")
	return cmd
}

func newDonateCmd(opts *rootOptions) *cobra.Command {
	var req model.DonationRequest

	cmd := &cobra.Command{
		Use:   "donate",
		Short: "Donate to a shelter",
		Long:  "Donate to a shelter. The payment method id comes from the payment processor; card details are never sent.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			donation, err := opts.env.donations.Donate(cmd.Context(), opts.env.store, req)
			if err != nil {
				return explain(err)
			}

			printf(cmd.OutOrStdout(), "Donated %s to shelter %d. Thank you!\n", donation.Amount, donation.ShelterID)
			return nil
		},
	}

	cmd.Flags().IntVar(&req.ShelterID, "shelter", 0, "Shelter id")
	cmd.Flags().Float64Var(&req.Amount, "amount", 0, "Amount to donate")
	cmd.Flags().StringVar(&req.PaymentMethodID, "payment-method", "", "Tokenized payment method id")
	return cmd
}
