package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pbaille/gallery/internal/export"
)

func tagsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List, create, rename and delete tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(output)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				tags := a.cat.Tags()
				return export.Write(os.Stdout, format, tags,
					export.TagTable(tags, export.TagCounts(a.cat.Images())))
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	cmd.AddCommand(tagAddCmd(), tagRenameCmd(), tagDeleteCmd())
	return cmd
}

func tagAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [name]",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				tag, ok := a.cat.AddTag(args[0])
				if !ok {
					return fmt.Errorf("tag name is blank or already used: %q", args[0])
				}
				fmt.Printf("Added tag %s (%s)\n", tag.Name, tag.ID)
				return nil
			})
		},
	}
}

// tagRef resolves one tag given by id or name.
func (a *app) tagRef(ref string) (string, error) {
	ids, err := a.resolveTags([]string{ref}, false)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("tag is required")
	}
	return ids[0], nil
}

func tagRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename [tag] [new-name]",
		Short: "Rename a tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				id, err := a.tagRef(args[0])
				if err != nil {
					return err
				}
				if !a.cat.RenameTag(id, args[1]) {
					return fmt.Errorf("tag name is blank or already used: %q", args[1])
				}
				fmt.Printf("Renamed to %s\n", a.cat.TagName(id))
				return nil
			})
		},
	}
}

func tagDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [tag]",
		Short: "Delete a tag (admin mode); images keep the dangling reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				if err := a.requireAdmin(); err != nil {
					return err
				}
				id, err := a.tagRef(args[0])
				if err != nil {
					return err
				}
				name := a.cat.TagName(id)
				if !a.cat.DeleteTag(id) {
					return fmt.Errorf("built-in tag %q cannot be deleted", name)
				}
				fmt.Printf("Deleted tag %s\n", name)
				return nil
			})
		},
	}
}
