package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"drive-go/internal/app"
	"drive-go/internal/importer"
	"drive-go/internal/model"

	"github.com/spf13/cobra"
)

func printFile(f *model.File) {
	tags := ""
	if len(f.Tags) > 0 {
		tags = "  [" + strings.Join(f.Tags, ", ") + "]"
	}
	degraded := ""
	if f.Embedding == nil {
		degraded = "  (name search only)"
	}
	fmt.Printf("%s  %s  %10d  %-24s  %s%s%s\n",
		f.ID,
		f.CreatedAt.Format("2006-01-02 15:04:05"),
		f.Size,
		f.MimeType,
		f.Name,
		tags,
		degraded,
	)
}

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Manage files",
}

var fileUploadCmd = &cobra.Command{
	Use:   "upload PATH",
	Short: "Upload a local file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = filepath.Base(args[0])
		}

		return withUser(cmd, "upload", func(ctx context.Context, a *app.DriveApp, owner string) error {
			res, err := a.Service().Upload(ctx, owner, optionalFlag(cmd, "folder"), name, content)
			if err != nil {
				return err
			}
			fmt.Printf("Uploaded %s (%s, %s, %d bytes)\n", res.FileName, res.FileID, res.MimeType, res.Size)
			if len(res.Tags) > 0 {
				fmt.Printf("Tags: %s\n", strings.Join(res.Tags, ", "))
			}
			if res.Degraded {
				fmt.Println("Warning: embedding unavailable, the file only matches name searches.")
			}
			return nil
		})
	},
}

var fileImportCmd = &cobra.Command{
	Use:   "import DIR",
	Short: "Upload a local directory tree, mirroring its folders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ignore, _ := cmd.Flags().GetStringSlice("ignore")
		return withUser(cmd, "import", func(ctx context.Context, a *app.DriveApp, owner string) error {
			im := importer.New(a.Service(), a.Logger(), importer.Options{
				MaxSize: a.Service().Options().MaxUploadSize,
				Ignore:  ignore,
			})
			report, err := im.Import(ctx, owner, args[0], optionalFlag(cmd, "folder"))
			if report != nil {
				for _, f := range report.Failed {
					fmt.Printf("failed  %s: %v\n", f.Path, f.Err)
				}
				fmt.Printf("Imported %d file(s) into %d new folder(s), %d skipped, %d failed\n",
					report.Files, report.Folders, len(report.Skipped), len(report.Failed))
				if report.Degraded > 0 {
					fmt.Printf("Warning: %d file(s) were stored without embeddings.\n", report.Degraded)
				}
			}
			return err
		})
	},
}

var fileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List files in a folder (root by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, "file-list", func(ctx context.Context, a *app.DriveApp, owner string) error {
			files, err := a.Service().ListFiles(ctx, owner, optionalFlag(cmd, "folder"))
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Println("No files.")
				return nil
			}
			for _, f := range files {
				printFile(f)
			}
			return nil
		})
	},
}

var fileGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show file metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, "file-get", func(ctx context.Context, a *app.DriveApp, owner string) error {
			f, err := a.Service().GetFile(ctx, owner, args[0])
			if err != nil {
				return err
			}
			printFile(f)
			return nil
		})
	},
}

var fileDownloadCmd = &cobra.Command{
	Use:   "download ID [DEST]",
	Short: "Download file content (to the file's name by default)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, "download", func(ctx context.Context, a *app.DriveApp, owner string) error {
			f, err := a.Service().GetFile(ctx, owner, args[0])
			if err != nil {
				return err
			}
			dest := f.Name
			if len(args) == 2 {
				dest = args[1]
			}

			out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("creating %s: %w", dest, err)
			}
			if _, err := a.Service().DownloadFile(ctx, owner, f.ID, out); err != nil {
				out.Close()
				os.Remove(dest)
				return err
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", dest, err)
			}
			fmt.Printf("Wrote %s (%d bytes)\n", dest, f.Size)
			return nil
		})
	},
}

var fileLinkCmd = &cobra.Command{
	Use:   "link ID",
	Short: "Print a time-limited download URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, "file-link", func(ctx context.Context, a *app.DriveApp, owner string) error {
			link, err := a.Service().DownloadLink(ctx, owner, args[0])
			if err != nil {
				return err
			}
			fmt.Println(link.URL)
			fmt.Printf("Expires in %s\n", link.ExpiresIn)
			return nil
		})
	},
}

var fileRenameCmd = &cobra.Command{
	Use:   "rename ID NAME",
	Short: "Rename a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, "file-rename", func(ctx context.Context, a *app.DriveApp, owner string) error {
			f, err := a.Service().RenameFile(ctx, owner, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Renamed file %s to %s\n", f.ID, f.Name)
			return nil
		})
	},
}

var fileRetagCmd = &cobra.Command{
	Use:   "retag ID",
	Short: "Recompute a file's tags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, "file-retag", func(ctx context.Context, a *app.DriveApp, owner string) error {
			f, err := a.Service().RetagFile(ctx, owner, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Tags for %s: %s\n", f.Name, strings.Join(f.Tags, ", "))
			return nil
		})
	},
}

var fileDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a file and its content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, "file-delete", func(ctx context.Context, a *app.DriveApp, owner string) error {
			if err := a.Service().DeleteFile(ctx, owner, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted file %s\n", args[0])
			return nil
		})
	},
}

// search command
var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Search files by name and meaning",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withUser(cmd, "search", func(ctx context.Context, a *app.DriveApp, owner string) error {
			results, err := a.Service().Search(ctx, owner, query)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("No matches.")
				return nil
			}
			for _, r := range results {
				fmt.Printf("%.3f  (name %.2f, similarity %.2f)  %s  %s\n", r.Score, r.NameMatch, r.Similarity, r.File.ID, r.File.Name)
			}
			return nil
		})
	},
}

func init() {
	fileCmd.AddCommand(fileUploadCmd)
	fileUploadCmd.Flags().StringP("folder", "f", "", "Destination folder id")
	fileUploadCmd.Flags().String("name", "", "Name to store the file under (default: base name of PATH)")
	fileCmd.AddCommand(fileImportCmd)
	fileImportCmd.Flags().StringP("folder", "f", "", "Destination folder id")
	fileImportCmd.Flags().StringSlice("ignore", nil, "Extra ignore patterns")
	fileCmd.AddCommand(fileListCmd)
	fileListCmd.Flags().StringP("folder", "f", "", "Folder id")
	fileCmd.AddCommand(fileGetCmd)
	fileCmd.AddCommand(fileDownloadCmd)
	fileCmd.AddCommand(fileLinkCmd)
	fileCmd.AddCommand(fileRenameCmd)
	fileCmd.AddCommand(fileRetagCmd)
	fileCmd.AddCommand(fileDeleteCmd)
}
