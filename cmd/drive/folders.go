package main

import (
	"context"
	"fmt"
	"strings"

	"drive-go/internal/app"
	"drive-go/internal/model"

	"github.com/spf13/cobra"
)

func printFolder(f *model.Folder) {
	parent := "-"
	if f.ParentID != nil {
		parent = *f.ParentID
	}
	fmt.Printf("%s  %s  %-36s  %s/\n", f.ID, f.CreatedAt.Format("2006-01-02 15:04:05"), parent, f.Name)
}

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage folders",
}

var folderCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, "folder-create", func(ctx context.Context, a *app.DriveApp, owner string) error {
			f, err := a.Service().CreateFolder(ctx, owner, optionalFlag(cmd, "parent"), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Created folder %s (%s)\n", f.Name, f.ID)
			return nil
		})
	},
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List folders under a parent (root by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, "folder-list", func(ctx context.Context, a *app.DriveApp, owner string) error {
			folders, err := a.Service().ListFolders(ctx, owner, optionalFlag(cmd, "parent"))
			if err != nil {
				return err
			}
			if len(folders) == 0 {
				fmt.Println("No folders.")
				return nil
			}
			for _, f := range folders {
				printFolder(f)
			}
			return nil
		})
	},
}

var folderGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show a folder and its path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, "folder-get", func(ctx context.Context, a *app.DriveApp, owner string) error {
			chain, err := a.Service().ResolvePath(ctx, owner, args[0])
			if err != nil {
				return err
			}
			names := make([]string, len(chain))
			for i, f := range chain {
				names[i] = f.Name
			}
			printFolder(chain[len(chain)-1])
			fmt.Printf("Path: /%s\n", strings.Join(names, "/"))
			return nil
		})
	},
}

var folderChildrenCmd = &cobra.Command{
	Use:   "children [ID]",
	Short: "List the folders and files inside a folder (root by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var parent *string
		if len(args) == 1 {
			parent = &args[0]
		}
		return withUser(cmd, "folder-children", func(ctx context.Context, a *app.DriveApp, owner string) error {
			folders, files, err := a.Service().ListChildren(ctx, owner, parent)
			if err != nil {
				return err
			}
			if len(folders) == 0 && len(files) == 0 {
				fmt.Println("Empty.")
				return nil
			}
			for _, f := range folders {
				printFolder(f)
			}
			for _, f := range files {
				printFile(f)
			}
			return nil
		})
	},
}

var folderRenameCmd = &cobra.Command{
	Use:   "rename ID NAME",
	Short: "Rename a folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, "folder-rename", func(ctx context.Context, a *app.DriveApp, owner string) error {
			f, err := a.Service().RenameFolder(ctx, owner, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Renamed folder %s to %s\n", f.ID, f.Name)
			return nil
		})
	},
}

var folderMoveCmd = &cobra.Command{
	Use:   "move ID",
	Short: "Move a folder under --parent (root if omitted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, "folder-move", func(ctx context.Context, a *app.DriveApp, owner string) error {
			f, err := a.Service().MoveFolder(ctx, owner, args[0], optionalFlag(cmd, "parent"))
			if err != nil {
				return err
			}
			dest := "root"
			if f.ParentID != nil {
				dest = *f.ParentID
			}
			fmt.Printf("Moved folder %s to %s\n", f.Name, dest)
			return nil
		})
	},
}

var folderDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an empty folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, "folder-delete", func(ctx context.Context, a *app.DriveApp, owner string) error {
			if err := a.Service().DeleteFolder(ctx, owner, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted folder %s\n", args[0])
			return nil
		})
	},
}

func init() {
	folderCmd.AddCommand(folderCreateCmd)
	folderCreateCmd.Flags().StringP("parent", "p", "", "Parent folder id")
	folderCmd.AddCommand(folderListCmd)
	folderListCmd.Flags().StringP("parent", "p", "", "Parent folder id")
	folderCmd.AddCommand(folderGetCmd)
	folderCmd.AddCommand(folderChildrenCmd)
	folderCmd.AddCommand(folderRenameCmd)
	folderCmd.AddCommand(folderMoveCmd)
	folderMoveCmd.Flags().StringP("parent", "p", "", "Destination folder id")
	folderCmd.AddCommand(folderDeleteCmd)
}
