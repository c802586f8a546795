package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"adoptify-web/internal/model"
)

const petRowFormat = "%-6s  %-16s  %-8s  %-8s  %-10s  %s\n"

func newPetsCmd(opts *rootOptions) *cobra.Command {
	var filter model.PetFilter

	cmd := &cobra.Command{
		Use:   "pets",
		Short: "List pets up for adoption",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pets, err := opts.env.pets.List(cmd.Context(), filter)
			if err != nil {
				return explain(err)
			}

			out := cmd.OutOrStdout()
			if len(pets) == 0 {
				printf(out, "No pets found.\n")
				return nil
			}

			printf(out, petRowFormat, "ID", "NAME", "TYPE", "GENDER", "STATUS", "SHELTER")
			for _, pet := range pets {
				printf(out, petRowFormat, strconv.Itoa(pet.ID), pet.Name, pet.PetType, pet.Gender, pet.AdoptionStatus, pet.ShelterName)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.PetType, "type", "", "Only this pet type")
	cmd.Flags().StringVar(&filter.Gender, "gender", "", "Only this gender")
	cmd.Flags().StringVar(&filter.AdoptionStatus, "status", "", "Only this adoption status")
	return cmd
}

func newFavouritesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favourites",
		Aliases: []string{"favorites", "fav"},
		Short:   "List favourite pets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			favourites, err := opts.env.adoptions.Favourites(cmd.Context(), opts.env.store)
			if err != nil {
				return explain(err)
			}

			out := cmd.OutOrStdout()
			if len(favourites) == 0 {
				printf(out, "No favourites yet.\n")
				return nil
			}

			printf(out, petRowFormat, "ID", "NAME", "TYPE", "GENDER", "STATUS", "SHELTER")
			for _, fav := range favourites {
				pet := fav.Pet
				printf(out, petRowFormat, strconv.Itoa(pet.ID), pet.Name, pet.PetType, pet.Gender, pet.AdoptionStatus, pet.ShelterName)
			}
			return nil
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add PET_ID",
			Short: "Add a pet to favourites",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				petID, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := opts.env.adoptions.AddFavourite(cmd.Context(), opts.env.store, petID); err != nil {
					return explain(err)
				}
				printf(cmd.OutOrStdout(), "Pet %d added to favourites.\n", petID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove PET_ID",
			Short: "Remove a pet from favourites",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				petID, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := opts.env.adoptions.RemoveFavourite(cmd.Context(), opts.env.store, petID); err != nil {
					return explain(err)
				}
				printf(cmd.OutOrStdout(), "Pet %d removed from favourites.\n", petID)
				return nil
			},
		},
	)

	return cmd
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
