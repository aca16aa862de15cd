package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbaille/gallery/internal/api"
	"github.com/pbaille/gallery/internal/catalog"
	"github.com/pbaille/gallery/internal/dataset"
	"github.com/pbaille/gallery/internal/export"
	"github.com/pbaille/gallery/internal/upload"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				if addr == "" {
					addr = a.cfg.Addr
				}
				pages := dataset.New(a.kv, a.cat, a.log)
				server := api.New(a.cat, pages, upload.NewFetcher(30*time.Second), a.log, addr)
				return server.Run(cmd.Context())
			})
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (default from config, :8080)")
	return cmd
}

func exportCmd() *cobra.Command {
	var (
		query string
		tags  []string
	)

	cmd := &cobra.Command{
		Use:   "export [file.xlsx]",
		Short: "Write the filtered images to a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				filter, err := a.resolveTags(tags, false)
				if err != nil {
					return err
				}
				a.cat.SetQuery(query)
				a.cat.SetTagFilter(filter)

				images := a.cat.FilteredView()
				data, err := export.XLSX(images, a.cat)
				if err != nil {
					return err
				}
				if err := os.WriteFile(args[0], data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", args[0], err)
				}
				fmt.Printf("Exported %d image(s) to %s\n", len(images), args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by name or tag name")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "export images with any of these tags")
	return cmd
}

func configCmd() *cobra.Command {
	var itemsPerRow int

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change display settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				if cmd.Flags().Changed("items-per-row") && !a.cat.SetItemsPerRow(itemsPerRow) {
					return fmt.Errorf("items per row must be between %d and %d", catalog.MinItemsPerRow, catalog.MaxItemsPerRow)
				}

				s := a.cat.Settings()
				fmt.Printf("Backend:       %s\n", a.cfg.Backend)
				if a.cfg.ConfigFile != "" {
					fmt.Printf("Config file:   %s\n", a.cfg.ConfigFile)
				}
				fmt.Printf("Items per row: %d\n", s.ItemsPerRow)
				fmt.Printf("Admin mode:    %t\n", s.IsAdmin)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&itemsPerRow, "items-per-row", catalog.DefaultItemsPerRow, "grid width (2-4)")
	return cmd
}

func adminCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "admin [on|off]",
		Short:     "Turn admin mode on or off",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				a.cat.SetAdmin(args[0] == "on")
				fmt.Printf("Admin mode %s\n", args[0])
				return nil
			})
		},
	}
}

func datasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Show or edit the dataset documentation page",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the page as plain text",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				page, err := dataset.New(a.kv, a.cat, a.log).Page(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Println(page.Title)
				fmt.Println(strings.Repeat("=", len([]rune(page.Title))))
				fmt.Println(page.Description)
				for _, sec := range page.Sections {
					fmt.Println()
					switch sec.Kind {
					case dataset.KindImage:
						fmt.Printf("[image %s] %s\n  %s\n", shortID(sec.ID), sec.Caption, truncate(sec.URL, 70))
					default:
						fmt.Printf("[%s] %s\n", shortID(sec.ID), dataset.PlainText(sec.HTML))
					}
				}
				return nil
			})
		},
	}

	var description string
	setTitle := &cobra.Command{
		Use:   "set-title [title]",
		Short: "Change the page title (admin mode)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				_, err := dataset.New(a.kv, a.cat, a.log).SetTitle(cmd.Context(), args[0], description)
				return err
			})
		},
	}
	setTitle.Flags().StringVar(&description, "description", "", "also change the description")

	addSection := &cobra.Command{
		Use:   "add-section [html]",
		Short: "Append a rich text section (admin mode)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				sec, err := dataset.New(a.kv, a.cat, a.log).AddText(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Printf("Added section %s\n", shortID(sec.ID))
				return nil
			})
		},
	}

	var caption string
	addImage := &cobra.Command{
		Use:   "add-image [url]",
		Short: "Append an image section (admin mode)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				sec, err := dataset.New(a.kv, a.cat, a.log).AddImage(cmd.Context(), args[0], caption)
				if err != nil {
					return err
				}
				fmt.Printf("Added section %s\n", shortID(sec.ID))
				return nil
			})
		},
	}
	addImage.Flags().StringVar(&caption, "caption", "", "image caption")

	deleteSection := &cobra.Command{
		Use:   "delete-section [id]",
		Short: "Remove a section (admin mode)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				pages := dataset.New(a.kv, a.cat, a.log)
				page, err := pages.Page(cmd.Context())
				if err != nil {
					return err
				}
				for _, sec := range page.Sections {
					if strings.HasPrefix(sec.ID, args[0]) {
						return pages.DeleteSection(cmd.Context(), sec.ID)
					}
				}
				return dataset.ErrSectionNotFound
			})
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore the default page (admin mode)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				if err := dataset.New(a.kv, a.cat, a.log).Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Println("Dataset page reset")
				return nil
			})
		},
	}

	cmd.AddCommand(show, setTitle, addSection, addImage, deleteSection, reset)
	return cmd
}
