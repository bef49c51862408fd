package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ochronus/gotelegraph/internal/app"
	"github.com/ochronus/gotelegraph/internal/config"
	"github.com/ochronus/gotelegraph/internal/utils"
	"github.com/ochronus/gotelegraph/pkg/telegraph"
	"github.com/ochronus/gotelegraph/pkg/telegraph/content"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli holds the global flags shared by every subcommand.
type cli struct {
	configPath string
	output     string
	stdin      io.Reader
	stdout     io.Writer
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	c := &cli{stdin: stdin, stdout: stdout}

	// Get default config path
	defaultConfigPath, err := config.DefaultConfigPath()
	if err != nil {
		defaultConfigPath = "./config.toml"
	}

	rootCmd := &cobra.Command{
		Use:           "gotelegraph",
		Short:         "telegra.ph command-line client",
		Long:          "Create and edit telegra.ph accounts and pages, read view counts and upload files.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", defaultConfigPath, "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&c.output, "output", "o", utils.FormatJSON, "Output format: json or yaml")

	rootCmd.AddCommand(
		c.createAccountCmd(),
		c.accountCmd(),
		c.editAccountCmd(),
		c.revokeTokenCmd(),
		c.createPageCmd(),
		c.editPageCmd(),
		c.pageCmd(),
		c.pagesCmd(),
		c.viewsCmd(),
		c.uploadCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(c.stdout, "gotelegraph version %s\n", version)
			},
		},
	)

	return rootCmd
}

// container loads and validates the config and builds the dependencies.
func (c *cli) container(ctx context.Context, requireToken bool) (*app.Container, error) {
	cfg, err := config.LoadOrDefault(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if requireToken {
		if err := cfg.RequireToken(); err != nil {
			return nil, err
		}
	}

	container, err := app.NewContainer(ctx, cfg, app.WithOutput(c.stdout))
	if err != nil {
		return nil, fmt.Errorf("failed to build container: %w", err)
	}
	return container, nil
}

func (c *cli) write(container *app.Container, v interface{}) error {
	return utils.WriteResult(container.Out, c.output, v)
}

func (c *cli) createAccountCmd() *cobra.Command {
	var req telegraph.CreateAccountRequest

	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "Create an account and store its access token in the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c.container(cmd.Context(), false)
			if err != nil {
				return err
			}
			if req.ShortName == "" {
				req.ShortName = container.Config.ShortName
			}

			account, err := utils.GenerateConfig(cmd.Context(), container.Client, container.Config, c.configPath, req)
			if err != nil {
				return err
			}
			container.Logger.Infof("Created account %s", account.ShortName)
			return c.write(container, account)
		},
	}
	cmd.Flags().StringVar(&req.ShortName, "short-name", "", "Account name, 1-32 characters")
	cmd.Flags().StringVar(&req.AuthorName, "author-name", "", "Default author name")
	cmd.Flags().StringVar(&req.AuthorURL, "author-url", "", "Default author profile link")

	return cmd
}

func (c *cli) accountCmd() *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "account",
		Short: "Show account information",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c.container(cmd.Context(), true)
			if err != nil {
				return err
			}

			account, err := container.Client.GetAccountInfo(cmd.Context(), telegraph.GetAccountInfoRequest{
				AccessToken: container.Config.AccessToken,
				Fields:      fields,
			})
			if err != nil {
				return err
			}
			return c.write(container, account)
		},
	}
	cmd.Flags().StringSliceVar(&fields, "fields", nil,
		"Fields to return: short_name, author_name, author_url, auth_url, page_count")

	return cmd
}

func (c *cli) editAccountCmd() *cobra.Command {
	var shortName, authorName, authorURL string

	cmd := &cobra.Command{
		Use:   "edit-account",
		Short: "Update account information; pass an empty value to clear the author name or link",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c.container(cmd.Context(), true)
			if err != nil {
				return err
			}

			req := telegraph.EditAccountInfoRequest{AccessToken: container.Config.AccessToken}
			if cmd.Flags().Changed("short-name") {
				req.ShortName = telegraph.String(shortName)
			}
			if cmd.Flags().Changed("author-name") {
				req.AuthorName = telegraph.String(authorName)
				container.Config.AuthorName = authorName
			}
			if cmd.Flags().Changed("author-url") {
				req.AuthorURL = telegraph.String(authorURL)
				container.Config.AuthorURL = authorURL
			}

			account, err := container.Client.EditAccountInfo(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := utils.SaveAccount(container.Config, c.configPath, account); err != nil {
				return err
			}
			return c.write(container, account)
		},
	}
	cmd.Flags().StringVar(&shortName, "short-name", "", "New account name")
	cmd.Flags().StringVar(&authorName, "author-name", "", "New default author name")
	cmd.Flags().StringVar(&authorURL, "author-url", "", "New default author profile link")

	return cmd
}

func (c *cli) revokeTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke-token",
		Short: "Revoke the access token and store the new one in the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c.container(cmd.Context(), true)
			if err != nil {
				return err
			}

			account, err := container.Client.RevokeAccessToken(cmd.Context(), telegraph.RevokeAccessTokenRequest{
				AccessToken: container.Config.AccessToken,
			})
			if err != nil {
				return err
			}
			if err := utils.SaveAccount(container.Config, c.configPath, account); err != nil {
				return err
			}
			container.Logger.Info("Access token revoked")
			return c.write(container, account)
		},
	}
}

// pageFlags are shared by create-page and edit-page.
type pageFlags struct {
	title         string
	contentPath   string
	authorName    string
	authorURL     string
	returnContent bool
}

func (f *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Page title")
	cmd.Flags().StringVar(&f.contentPath, "content", "", "Content file: HTML, or JSON nodes if it ends in .json; - for stdin")
	cmd.Flags().StringVar(&f.authorName, "author-name", "", "Author name (default: from config)")
	cmd.Flags().StringVar(&f.authorURL, "author-url", "", "Author profile link (default: from config)")
	cmd.Flags().BoolVar(&f.returnContent, "return-content", false, "Include the content in the result")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("content")
}

func (f *pageFlags) resolve(c *cli, cfg *config.Config) ([]telegraph.Node, error) {
	if f.authorName == "" {
		f.authorName = cfg.AuthorName
	}
	if f.authorURL == "" {
		f.authorURL = cfg.AuthorURL
	}
	return utils.LoadContent(f.contentPath, c.stdin)
}

func (c *cli) createPageCmd() *cobra.Command {
	var f pageFlags

	cmd := &cobra.Command{
		Use:   "create-page",
		Short: "Create a page",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c.container(cmd.Context(), true)
			if err != nil {
				return err
			}
			nodes, err := f.resolve(c, container.Config)
			if err != nil {
				return err
			}

			page, err := container.Client.CreatePage(cmd.Context(), telegraph.CreatePageRequest{
				AccessToken:   container.Config.AccessToken,
				Title:         f.title,
				AuthorName:    f.authorName,
				AuthorURL:     f.authorURL,
				Content:       nodes,
				ReturnContent: telegraph.Bool(f.returnContent),
			})
			if err != nil {
				return err
			}
			container.Logger.Infof("Created page %s", page.URL)
			return c.write(container, page)
		},
	}
	f.register(cmd)

	return cmd
}

func (c *cli) editPageCmd() *cobra.Command {
	var f pageFlags

	cmd := &cobra.Command{
		Use:   "edit-page <path>",
		Short: "Edit an existing page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c.container(cmd.Context(), true)
			if err != nil {
				return err
			}
			nodes, err := f.resolve(c, container.Config)
			if err != nil {
				return err
			}

			page, err := container.Client.EditPage(cmd.Context(), telegraph.EditPageRequest{
				AccessToken:   container.Config.AccessToken,
				Path:          args[0],
				Title:         f.title,
				AuthorName:    f.authorName,
				AuthorURL:     f.authorURL,
				Content:       nodes,
				ReturnContent: telegraph.Bool(f.returnContent),
			})
			if err != nil {
				return err
			}
			return c.write(container, page)
		},
	}
	f.register(cmd)

	return cmd
}

func (c *cli) pageCmd() *cobra.Command {
	var (
		returnContent bool
		asHTML        bool
		asText        bool
	)

	cmd := &cobra.Command{
		Use:   "page <path>",
		Short: "Show a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c.container(cmd.Context(), false)
			if err != nil {
				return err
			}

			page, err := container.Client.GetPage(cmd.Context(), telegraph.GetPageRequest{
				Path:          args[0],
				ReturnContent: telegraph.Bool(returnContent || asHTML || asText),
			})
			if err != nil {
				return err
			}

			switch {
			case asHTML:
				_, err := fmt.Fprintln(container.Out, content.ToHTML(page.Content))
				return err
			case asText:
				_, err := fmt.Fprintln(container.Out, content.PlainText(page.Content))
				return err
			}
			return c.write(container, page)
		},
	}
	cmd.Flags().BoolVar(&returnContent, "return-content", false, "Include the content in the result")
	cmd.Flags().BoolVar(&asHTML, "html", false, "Print only the content, rendered as HTML")
	cmd.Flags().BoolVar(&asText, "text", false, "Print only the text of the content")
	cmd.MarkFlagsMutuallyExclusive("html", "text")

	return cmd
}

func (c *cli) pagesCmd() *cobra.Command {
	var offset, limit int

	cmd := &cobra.Command{
		Use:   "pages",
		Short: "List the account's pages, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c.container(cmd.Context(), true)
			if err != nil {
				return err
			}

			req := telegraph.GetPageListRequest{AccessToken: container.Config.AccessToken}
			if cmd.Flags().Changed("offset") {
				req.Offset = telegraph.Int(offset)
			}
			if cmd.Flags().Changed("limit") {
				req.Limit = telegraph.Int(limit)
			}

			list, err := container.Client.GetPageList(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.write(container, list)
		},
	}
	cmd.Flags().IntVar(&offset, "offset", telegraph.DefaultPageListOffset, "Sequential number of the first page")
	cmd.Flags().IntVar(&limit, "limit", telegraph.DefaultPageListLimit, "Number of pages, 0-200")

	return cmd
}

func (c *cli) viewsCmd() *cobra.Command {
	var year, month, day, hour int

	cmd := &cobra.Command{
		Use:   "views <path>",
		Short: "Show the number of views of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c.container(cmd.Context(), false)
			if err != nil {
				return err
			}

			req := telegraph.GetViewsRequest{Path: args[0]}
			for name, dst := range map[string]**int{"year": &req.Year, "month": &req.Month, "day": &req.Day, "hour": &req.Hour} {
				if !cmd.Flags().Changed(name) {
					continue
				}
				v, _ := cmd.Flags().GetInt(name)
				*dst = telegraph.Int(v)
			}

			views, err := container.Client.GetViews(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.write(container, views)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Views for this year, 2000-2100")
	cmd.Flags().IntVar(&month, "month", 0, "Views for this month, 1-12 (requires --year)")
	cmd.Flags().IntVar(&day, "day", 0, "Views for this day, 1-31 (requires --month)")
	cmd.Flags().IntVar(&hour, "hour", 0, "Views for this hour, 0-24 (requires --day)")

	return cmd
}

func (c *cli) uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file-or-url>...",
		Short: "Upload local files or remote URLs (not both) to telegra.ph",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c.container(cmd.Context(), false)
			if err != nil {
				return err
			}

			container.Logger.Debugf("Uploading %s", strings.Join(args, ", "))
			result, err := container.Client.Upload(cmd.Context(), args...)
			if err != nil {
				return err
			}
			if err := c.write(container, result); err != nil {
				return err
			}
			return result.Err()
		},
	}
}
