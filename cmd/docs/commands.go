package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tendant/simple-docs/pkg/simpledocs"
	"github.com/tendant/simple-docs/pkg/simpledocs/config"
)

// NewUploadCommand creates upload-pdf or upload-excel
func NewUploadCommand(load appLoader, category simpledocs.Category) *cobra.Command {
	var sourceLink string

	cmd := &cobra.Command{
		Use:   fmt.Sprintf("upload-%s <file>", category),
		Short: fmt.Sprintf("Upload a %s file", category),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath := args[0]

			stat, err := os.Stat(filePath)
			if err != nil {
				return fmt.Errorf("file does not exist: %s", filePath)
			}

			a, err := load(cmd)
			if err != nil {
				return err
			}

			name := filepath.Base(filePath)
			if err := simpledocs.Validate(simpledocs.FileInfo{Name: name, Size: stat.Size()}, a.dropzone(category)); err != nil {
				return err
			}

			data, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}

			key, err := a.gateway.Put(cmd.Context(), simpledocs.UploadRequest{
				Data:             data,
				OriginalName:     name,
				DeclaredMimeType: simpledocs.DetectMimeType(name, "", data),
				Category:         category,
				Provenance:       sourceLink,
			})
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Key: %s\n", key)
			fmt.Fprintf(out, "URL: %s\n", a.gateway.AccessURL(key))
			return nil
		},
	}

	if category == simpledocs.CategoryPDF {
		cmd.Flags().StringVar(&sourceLink, "source", "", "source link embedded into the PDF")
	}

	return cmd
}

// NewListCommand creates the list command
func NewListCommand(load appLoader) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}

			files, err := a.gateway.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if files == nil {
					files = []simpledocs.StoredFile{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(files)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tSIZE\tUPLOADED\tKEY")
			for _, f := range files {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", f.Category, f.SizeBytes, f.UploadedAt.Format(time.RFC3339), f.ID)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	return cmd
}

// NewRemoveCommand creates the rm command
func NewRemoveCommand(load appLoader) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "rm <key>",
		Short: "Delete a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			// Require confirmation unless --confirm flag is set
			if !confirm {
				fmt.Fprintf(cmd.OutOrStdout(), "Delete %s? (y/N): ", key)
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				answer = strings.TrimSpace(answer)
				if answer != "y" && answer != "Y" {
					fmt.Fprintln(cmd.OutOrStdout(), "Delete cancelled.")
					return nil
				}
			}

			a, err := load(cmd)
			if err != nil {
				return err
			}

			if err := a.gateway.Remove(cmd.Context(), key); err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", key)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&confirm, "confirm", "y", false, "skip confirmation prompt")

	return cmd
}

// NewHeadCommand creates the head command
func NewHeadCommand(load appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "head <key>",
		Short: "Show the stored metadata of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}

			meta, err := a.gateway.HeadMetadata(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get metadata: %w", err)
			}

			keys := make([]string, 0, len(meta))
			for k := range meta {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			out := cmd.OutOrStdout()
			for _, k := range keys {
				fmt.Fprintf(out, "%s: %s\n", k, meta[k])
			}
			return nil
		},
	}

	return cmd
}

// NewPresignCommand creates the presign command
func NewPresignCommand(load appLoader) *cobra.Command {
	var expires time.Duration

	cmd := &cobra.Command{
		Use:   "presign <key>",
		Short: "Print a download link for a document",
		Long: `Print a time-limited download link. When the store cannot presign,
the public URL is printed instead and marked as not access-controlled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}

			link, err := a.gateway.Presign(cmd.Context(), args[0], expires)
			if err != nil {
				return fmt.Errorf("presign failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, link.URL)
			if link.Presigned {
				fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", link.ExpiresAt.Format(time.RFC3339))
			} else {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: presigning unavailable, this is the public URL")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&expires, "expires", simpledocs.DefaultPresignExpiry, "link lifetime")

	return cmd
}

// NewEnvCommand prints the configuration reference
func NewEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Describe the environment variables read by the CLI and server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Usage(cmd.OutOrStdout())
		},
	}
}
