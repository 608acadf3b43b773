package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"expansioncore/internal/core"
	"expansioncore/pkg/domain"
)

func newFileCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Manage store files",
	}
	cmd.AddCommand(newFileCreateCmd(opts))
	cmd.AddCommand(newFileGetCmd(opts))
	cmd.AddCommand(newFileStatusCmd(opts))
	cmd.AddCommand(newFileTagsCmd(opts))
	cmd.AddCommand(newFileAttachCmd(opts))
	cmd.AddCommand(newFileURLCmd(opts))
	cmd.AddCommand(newFilePaymentCmd(opts))
	cmd.AddCommand(newFileAssetCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts, domain.EntityStoreFile))
	return cmd
}

func newFileCreateCmd(opts *rootOptions) *cobra.Command {
	var file domain.StoreFile
	var locationID string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a store file for a contracted location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file.LocationID = optionalID(locationID)
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				created, err := rt.svc.CreateStoreFile(ctx, file, rt.operator)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), created)
			})
		},
	}
	cmd.Flags().StringVar(&file.Code, "code", "", "Store file code (generated when empty)")
	cmd.Flags().StringVar(&file.Name, "name", "", "Store name")
	cmd.Flags().StringVar(&file.StoreType, "store-type", "", "Store type")
	cmd.Flags().StringVar(&file.RegionID, "region", "", "Region id")
	cmd.Flags().StringVar(&file.EntityID, "entity", "", "Business entity id")
	cmd.Flags().StringVar(&locationID, "location", "", "Contracted candidate location id")
	cmd.Flags().StringSliceVar(&file.Tags, "tags", nil, "Comma-separated tags")
	_ = cmd.MarkFlagRequired("region")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}

func newFileGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a store file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				file, err := rt.store.GetStoreFile(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), file)
			})
		},
	}
}

func newFileStatusCmd(opts *rootOptions) *cobra.Command {
	var flags statusFlags

	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a store file to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			change, err := flags.change(args[1])
			if err != nil {
				return err
			}
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				file, err := rt.svc.ChangeStoreFileStatus(ctx, args[0], change, rt.operator)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), file)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newFileTagsCmd(opts *rootOptions) *cobra.Command {
	var expected string

	cmd := &cobra.Command{
		Use:   "tags <id> [tag...]",
		Short: "Replace the tags of a store file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := parseExpected(expected)
			if err != nil {
				return err
			}
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				file, err := rt.svc.ReplaceStoreFileTags(ctx, args[0], args[1:], exp, rt.operator)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), file)
			})
		},
	}
	cmd.Flags().StringVar(&expected, "expected", "", "Last-modified stamp (RFC3339) the caller observed")
	return cmd
}

type attachOutput struct {
	File       domain.StoreFile  `json:"file"`
	Attachment domain.Attachment `json:"attachment"`
}

func newFileAttachCmd(opts *rootOptions) *cobra.Command {
	var name, contentType string

	cmd := &cobra.Command{
		Use:   "attach <id> <path>",
		Short: "Upload a document and attach it to a store file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open document: %w", err)
			}
			defer func() { _ = f.Close() }()

			upload := core.AttachmentUpload{Name: name, ContentType: contentType, Body: f}
			if upload.Name == "" {
				upload.Name = filepath.Base(args[1])
			}
			if upload.ContentType == "" {
				upload.ContentType = mime.TypeByExtension(filepath.Ext(upload.Name))
			}
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				file, attachment, err := rt.svc.AttachStoreFileDocument(ctx, args[0], upload, rt.operator)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), attachOutput{File: file, Attachment: attachment})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Attachment name (defaults to the file name)")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Content type (guessed from the extension when empty)")
	return cmd
}

type urlOutput struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newFileURLCmd(opts *rootOptions) *cobra.Command {
	var expiry time.Duration

	cmd := &cobra.Command{
		Use:   "url <id> <attachment-id>",
		Short: "Print a time-limited download URL for an attachment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				url, err := rt.svc.AttachmentURL(ctx, args[0], args[1], expiry)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), urlOutput{URL: url, ExpiresAt: time.Now().UTC().Add(expiry)})
			})
		},
	}
	cmd.Flags().DurationVar(&expiry, "expiry", 15*time.Minute, "URL lifetime")
	return cmd
}

func newFilePaymentCmd(opts *rootOptions) *cobra.Command {
	var item domain.PaymentItem

	cmd := &cobra.Command{
		Use:   "payment <id>",
		Short: "Record a payment item against a store file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item.StoreFileID = args[0]
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				created, err := rt.svc.AddPaymentItem(ctx, item, rt.operator)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), created)
			})
		},
	}
	cmd.Flags().StringVar(&item.Description, "description", "", "Payment description")
	cmd.Flags().Float64Var(&item.Amount, "amount", 0, "Payment amount")
	return cmd
}

func newFileAssetCmd(opts *rootOptions) *cobra.Command {
	var asset domain.Asset

	cmd := &cobra.Command{
		Use:   "asset <id>",
		Short: "Record an asset against a store file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset.StoreFileID = args[0]
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				created, err := rt.svc.AddAsset(ctx, asset, rt.operator)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), created)
			})
		},
	}
	cmd.Flags().StringVar(&asset.Name, "name", "", "Asset name")
	cmd.Flags().Float64Var(&asset.Value, "value", 0, "Asset value")
	return cmd
}
