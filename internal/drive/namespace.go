package drive

import (
	"context"
	"errors"
	"fmt"

	"drive-go/internal/model"
)

// CreateFolder creates a folder named name under parentID (nil = root).
// Sibling uniqueness is enforced by the database, so concurrent creates of the
// same name resolve to exactly one winner and NameConflict for the rest.
func (s *DriveService) CreateFolder(ctx context.Context, owner string, parentID *string, name string) (*model.Folder, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	if err := s.CheckUser(ctx, owner); err != nil {
		return nil, err
	}

	parentID = normalizeID(parentID)
	if parentID != nil {
		chain, err := s.ResolvePath(ctx, owner, *parentID)
		if errors.Is(err, ErrNotFound) {
			return nil, newError(KindInvalidParent, "parent folder does not exist", nil)
		}
		if err != nil {
			return nil, err
		}
		if len(chain) >= s.opts.MaxDepth {
			return nil, newError(KindInvalidParent, "folders are nested too deeply", nil)
		}
	}

	folder := &model.Folder{
		ID:        s.idgen.New(),
		Name:      name,
		OwnerID:   owner,
		ParentID:  parentID,
		CreatedAt: s.clock.Now(),
	}
	if err := s.database.InsertFolder(ctx, folder); err != nil {
		if errors.Is(err, ErrUniqueViolation) {
			return nil, newError(KindNameConflict, "a folder with this name already exists in this location", nil)
		}
		return nil, fmt.Errorf("creating folder: %w", err)
	}

	s.logger.Info("folder created", "owner", owner, "folder", folder.ID)
	return folder, nil
}

// GetFolder returns a single folder owned by owner.
func (s *DriveService) GetFolder(ctx context.Context, owner, folderID string) (*model.Folder, error) {
	folder, err := s.database.FindFolder(ctx, owner, folderID)
	if err != nil {
		return nil, fmt.Errorf("finding folder: %w", err)
	}
	if folder == nil {
		return nil, newError(KindNotFound, "folder not found", nil)
	}
	return folder, nil
}

// ListFolders returns the direct child folders of parentID (nil = root), name ascending.
func (s *DriveService) ListFolders(ctx context.Context, owner string, parentID *string) ([]*model.Folder, error) {
	parentID = normalizeID(parentID)
	if err := s.requireFolder(ctx, owner, parentID); err != nil {
		return nil, err
	}
	folders, err := s.database.ListFolders(ctx, owner, parentID)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	return folders, nil
}

// ListChildren returns the direct child folders and files of parentID
// (nil = root), each ordered by name ascending.
func (s *DriveService) ListChildren(ctx context.Context, owner string, parentID *string) ([]*model.Folder, []*model.File, error) {
	parentID = normalizeID(parentID)
	if err := s.requireFolder(ctx, owner, parentID); err != nil {
		return nil, nil, err
	}
	folders, err := s.database.ListFolders(ctx, owner, parentID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing folders: %w", err)
	}
	files, err := s.database.ListFiles(ctx, owner, parentID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing files: %w", err)
	}
	return folders, files, nil
}

// RenameFolder renames a folder in place. The new name must be unique among
// its siblings under the same parent.
func (s *DriveService) RenameFolder(ctx context.Context, owner, folderID, newName string) (*model.Folder, error) {
	name, err := cleanName(newName)
	if err != nil {
		return nil, err
	}

	folder, err := s.GetFolder(ctx, owner, folderID)
	if err != nil {
		return nil, err
	}
	if folder.Name == name {
		return folder, nil
	}

	if err := s.database.RenameFolder(ctx, owner, folderID, name); err != nil {
		switch {
		case errors.Is(err, ErrRecordNotFound):
			return nil, newError(KindNotFound, "folder not found", nil)
		case errors.Is(err, ErrUniqueViolation):
			return nil, newError(KindNameConflict, "a folder with this name already exists in this location", nil)
		}
		return nil, fmt.Errorf("renaming folder: %w", err)
	}

	s.logger.Info("folder renamed", "owner", owner, "folder", folderID)
	folder.Name = name
	return folder, nil
}

// MoveFolder reparents a folder under newParentID (nil = root). The move is
// rejected with CycleDetected if the folder would become its own ancestor.
func (s *DriveService) MoveFolder(ctx context.Context, owner, folderID string, newParentID *string) (*model.Folder, error) {
	folder, err := s.GetFolder(ctx, owner, folderID)
	if err != nil {
		return nil, err
	}

	newParentID = normalizeID(newParentID)
	if model.SameParent(folder.ParentID, newParentID) {
		return folder, nil
	}
	if newParentID != nil {
		if *newParentID == folderID {
			return nil, newError(KindCycleDetected, "a folder cannot be moved into itself", nil)
		}
		parent, err := s.database.FindFolder(ctx, owner, *newParentID)
		if err != nil {
			return nil, fmt.Errorf("finding parent folder: %w", err)
		}
		if parent == nil {
			return nil, newError(KindInvalidParent, "parent folder does not exist", nil)
		}
	}

	if err := s.database.MoveFolder(ctx, owner, folderID, newParentID, s.opts.MaxDepth); err != nil {
		switch {
		case errors.Is(err, ErrRecordNotFound):
			return nil, newError(KindNotFound, "folder not found", nil)
		case errors.Is(err, ErrUniqueViolation):
			return nil, newError(KindNameConflict, "a folder with this name already exists in this location", nil)
		case errors.Is(err, ErrHierarchyCycle):
			return nil, newError(KindCycleDetected, "a folder cannot be moved into its own subtree", nil)
		}
		return nil, fmt.Errorf("moving folder: %w", err)
	}

	s.logger.Info("folder moved", "owner", owner, "folder", folderID)
	folder.ParentID = newParentID
	return folder, nil
}

// DeleteFolder removes an empty folder. Deletion never cascades: a folder
// with any child folder or file is rejected with NotEmpty.
func (s *DriveService) DeleteFolder(ctx context.Context, owner, folderID string) error {
	if _, err := s.GetFolder(ctx, owner, folderID); err != nil {
		return err
	}

	if err := s.database.DeleteEmptyFolder(ctx, owner, folderID); err != nil {
		switch {
		case errors.Is(err, ErrRecordNotFound):
			return newError(KindNotFound, "folder not found", nil)
		case errors.Is(err, ErrFolderHasChildren):
			return newError(KindNotEmpty, "cannot delete non-empty folder", nil)
		}
		return fmt.Errorf("deleting folder: %w", err)
	}

	s.logger.Info("folder deleted", "owner", owner, "folder", folderID)
	return nil
}

// ResolvePath returns the ancestors of folderID ordered from the root down,
// ending with the folder itself. A walk longer than MaxDepth means the parent
// chain is corrupted and fails with CycleDetected instead of looping.
func (s *DriveService) ResolvePath(ctx context.Context, owner, folderID string) ([]*model.Folder, error) {
	var chain []*model.Folder
	id := folderID
	for {
		if len(chain) == s.opts.MaxDepth {
			s.logger.Error("folder hierarchy exceeds depth bound", "owner", owner, "folder", folderID, "max_depth", s.opts.MaxDepth)
			return nil, newError(KindCycleDetected, "folder hierarchy is corrupted", nil)
		}

		folder, err := s.database.FindFolder(ctx, owner, id)
		if err != nil {
			return nil, fmt.Errorf("finding folder: %w", err)
		}
		if folder == nil {
			if len(chain) == 0 {
				return nil, newError(KindNotFound, "folder not found", nil)
			}
			s.logger.Error("folder has dangling parent", "owner", owner, "folder", id)
			return nil, newError(KindCycleDetected, "folder hierarchy is corrupted", nil)
		}

		chain = append(chain, folder)
		if folder.ParentID == nil {
			break
		}
		id = *folder.ParentID
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// requireFolder verifies that a non-nil folder id resolves to a folder owned by owner.
func (s *DriveService) requireFolder(ctx context.Context, owner string, folderID *string) error {
	if folderID == nil {
		return nil
	}
	_, err := s.GetFolder(ctx, owner, *folderID)
	return err
}
