package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Apply an operation to several images at once",
	}
	cmd.AddCommand(
		batchTagsCmd("add-tags", "Add tags to the given images", true),
		batchTagsCmd("remove-tags", "Remove tags from the given images", false),
		batchDeleteCmd(),
		copyNamesCmd(),
	)
	return cmd
}

// selectIDs resolves id prefixes and makes them the selection.
func (a *app) selectIDs(prefixes []string) error {
	if len(prefixes) == 0 {
		return fmt.Errorf("--ids is required")
	}
	ids := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		id, err := a.resolveImage(p)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	a.cat.Select(ids)
	return nil
}

func batchTagsCmd(use, short string, add bool) *cobra.Command {
	var ids []string

	cmd := &cobra.Command{
		Use:   use + " [tags...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				if err := a.selectIDs(ids); err != nil {
					return err
				}
				tagIDs, err := a.resolveTags(args, add)
				if err != nil {
					return err
				}

				var n int
				if add {
					n = a.cat.BatchAddTags(tagIDs)
				} else {
					n = a.cat.BatchRemoveTags(tagIDs)
				}
				fmt.Printf("Updated %d image(s)\n", n)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&ids, "ids", nil, "image ids or prefixes")
	return cmd
}

func batchDeleteCmd() *cobra.Command {
	var (
		ids []string
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the given images (admin mode)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				if err := a.requireAdmin(); err != nil {
					return err
				}
				if err := a.selectIDs(ids); err != nil {
					return err
				}
				selected := a.cat.Selection()

				if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete %d image(s)?", len(selected))) {
					fmt.Println("Cancelled")
					return nil
				}
				fmt.Printf("Deleted %d image(s)\n", a.cat.BatchDeleteImages(selected))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&ids, "ids", nil, "image ids or prefixes")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func copyNamesCmd() *cobra.Command {
	var ids []string

	cmd := &cobra.Command{
		Use:   "copy-names",
		Short: "Print the given images' names without extension, comma separated",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				if err := a.selectIDs(ids); err != nil {
					return err
				}
				fmt.Println(a.cat.CopyNames())
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&ids, "ids", nil, "image ids or prefixes")
	return cmd
}
