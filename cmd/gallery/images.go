package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbaille/gallery/internal/catalog"
	"github.com/pbaille/gallery/internal/export"
	"github.com/pbaille/gallery/internal/upload"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [paths...]",
		Short: "Import PNG and JPEG files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				im := upload.NewImporter(a.cat, a.log, a.cfg.ImportWorkers)
				report, err := im.Import(cmd.Context(), args)
				if err != nil {
					return err
				}

				for _, img := range report.Added {
					fmt.Printf("  + %s  %s\n", shortID(img.ID), img.Name)
				}
				for _, rej := range report.Rejected {
					fmt.Printf("  ! %s: %s\n", rej.Path, rej.Reason)
				}
				fmt.Printf("Imported %d image(s), rejected %d\n", len(report.Added), len(report.Rejected))
				return nil
			})
		},
	}
}

func fetchCmd() *cobra.Command {
	var (
		link    bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "fetch [url]",
		Short: "Import an image from a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				cand, err := upload.NewFetcher(timeout).Fetch(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				url := cand.DataURI()
				if link {
					url = args[0]
				}
				img := a.cat.AddImage(cand.Name, url)
				fmt.Printf("Added image: %s  %s\n", shortID(img.ID), img.Name)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&link, "link", false, "store the remote URL instead of the image bytes")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "download timeout")
	return cmd
}

func watchCmd() *cobra.Command {
	var settle time.Duration

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Import images dropped into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				fmt.Printf("Watching %s (Ctrl-C to stop)\n", args[0])
				im := upload.NewImporter(a.cat, a.log, a.cfg.ImportWorkers)
				return im.Watch(cmd.Context(), args[0], settle)
			})
		},
	}

	cmd.Flags().DurationVar(&settle, "settle", upload.DefaultSettle, "quiet time before a new file is imported")
	return cmd
}

func listCmd() *cobra.Command {
	var (
		query  string
		tags   []string
		limit  int
		offset int
		output string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List images in display order",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(output)
			if err != nil {
				return err
			}

			return withApp(cmd, func(a *app) error {
				filter, err := a.resolveTags(tags, false)
				if err != nil {
					return err
				}
				a.cat.SetQuery(query)
				a.cat.SetTagFilter(filter)

				page := a.cat.Page(offset, limit)
				if page.Total == 0 && format == export.FormatTable {
					fmt.Println("No images. Use 'gallery import' to add some.")
					return nil
				}

				if err := export.Write(os.Stdout, format,
					export.Records(page.Images, a.cat),
					export.ImageTable(page.Images, a.cat),
				); err != nil {
					return err
				}
				if format == export.FormatTable && page.HasMore {
					fmt.Printf("%d of %d shown, use --offset %d for more\n",
						len(page.Images), page.Total, page.Offset+len(page.Images))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by name or tag name")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "show images with any of these tags")
	cmd.Flags().IntVarP(&limit, "limit", "n", catalog.DefaultPageSize, "number of images to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many images")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show image details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				id, err := a.resolveImage(args[0])
				if err != nil {
					return err
				}
				img, _ := a.cat.Image(id)

				fmt.Printf("ID:       %s\n", img.ID)
				fmt.Printf("Name:     %s\n", img.Name)
				fmt.Printf("Uploaded: %s\n", img.UploadDate.Format("2006-01-02 15:04:05"))
				fmt.Printf("Starred:  %t\n", img.IsStarred)
				fmt.Printf("URL:      %s\n", truncate(img.URL, 80))
				fmt.Printf("Tags:     %s\n", export.TagNames(img, a.cat))

				if len(img.Annotations) > 0 {
					fmt.Printf("\nAnnotations:\n")
					for _, n := range img.Annotations {
						fmt.Printf("  %s  %s  %s\n", shortID(n.ID), n.CreatedAt.Format("2006-01-02 15:04"), n.Content)
					}
				}
				return nil
			})
		},
	}
}

func starCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "star [id]",
		Short: "Toggle the star on an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				id, err := a.resolveImage(args[0])
				if err != nil {
					return err
				}
				a.cat.ToggleStar(id)
				img, _ := a.cat.Image(id)
				if img.IsStarred {
					fmt.Printf("Starred %s\n", img.Name)
				} else {
					fmt.Printf("Unstarred %s\n", img.Name)
				}
				return nil
			})
		},
	}
}

func tagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag [id] [tags...]",
		Short: "Replace an image's tags; no tags marks it unclassified",
		Long: "Replace an image's tags. Tags are given by id or name; unknown " +
			"names are created. Without tags the image becomes unclassified.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				id, err := a.resolveImage(args[0])
				if err != nil {
					return err
				}
				tagIDs, err := a.resolveTags(args[1:], true)
				if err != nil {
					return err
				}
				a.cat.UpdateImageTags(id, tagIDs)

				img, _ := a.cat.Image(id)
				fmt.Printf("%s: %s\n", img.Name, export.TagNames(img, a.cat))
				return nil
			})
		},
	}
}

func annotateCmd() *cobra.Command {
	var remove string

	cmd := &cobra.Command{
		Use:   "annotate [id] [text...]",
		Short: "Add a note to an image, or remove one with --delete",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				id, err := a.resolveImage(args[0])
				if err != nil {
					return err
				}

				if remove != "" {
					img, _ := a.cat.Image(id)
					for _, n := range img.Annotations {
						if strings.HasPrefix(n.ID, remove) && a.cat.DeleteAnnotation(id, n.ID) {
							fmt.Printf("Deleted annotation %s\n", shortID(n.ID))
							return nil
						}
					}
					return fmt.Errorf("annotation not found: %s", remove)
				}

				n, ok := a.cat.AddAnnotation(id, strings.Join(args[1:], " "))
				if !ok {
					return fmt.Errorf("annotation text is required")
				}
				fmt.Printf("Added annotation %s\n", shortID(n.ID))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&remove, "delete", "", "annotation id (or prefix) to delete")
	return cmd
}

func deleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an image (admin mode)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				if err := a.requireAdmin(); err != nil {
					return err
				}
				id, err := a.resolveImage(args[0])
				if err != nil {
					return err
				}
				img, _ := a.cat.Image(id)

				if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete %s?", img.Name)) {
					fmt.Println("Cancelled")
					return nil
				}
				a.cat.DeleteImage(id)
				fmt.Printf("Deleted %s\n", img.Name)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}
