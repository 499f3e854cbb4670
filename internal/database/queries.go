package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"drive-go/internal/model"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL for every metadata operation. Methods return
// sql.ErrNoRows unchanged; SQLiteDatabase maps it to the drive conventions.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Users

const insertUser = `INSERT INTO users (id, email, credential_hash, display_name, created_at) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) InsertUser(ctx context.Context, u *model.User) error {
	_, err := q.db.ExecContext(ctx, insertUser, u.ID, u.Email, u.CredentialHash, u.DisplayName, u.CreatedAt)
	return err
}

const userColumns = `id, email, credential_hash, display_name, created_at`

func (q *Queries) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.CredentialHash, &u.DisplayName, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Folders

const folderColumns = `id, name, owner_id, parent_id, created_at`

const insertFolder = `INSERT INTO folders (id, name, owner_id, parent_id, created_at) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) InsertFolder(ctx context.Context, f *model.Folder) error {
	_, err := q.db.ExecContext(ctx, insertFolder, f.ID, f.Name, f.OwnerID, nullString(f.ParentID), f.CreatedAt)
	return err
}

func (q *Queries) GetFolder(ctx context.Context, owner, id string) (*model.Folder, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+folderColumns+` FROM folders WHERE owner_id = ? AND id = ?`, owner, id)
	return scanFolder(row)
}

func (q *Queries) ListFoldersByParent(ctx context.Context, owner string, parentID *string) ([]*model.Folder, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+folderColumns+` FROM folders WHERE owner_id = ? AND parent_id IS ? ORDER BY name, id`,
		owner, nullString(parentID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*model.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

func (q *Queries) UpdateFolderName(ctx context.Context, owner, id, name string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE folders SET name = ? WHERE owner_id = ? AND id = ?`, name, owner, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) UpdateFolderParent(ctx context.Context, owner, id string, parentID *string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE folders SET parent_id = ? WHERE owner_id = ? AND id = ?`, nullString(parentID), owner, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) CountFolderChildren(ctx context.Context, owner, id string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM folders WHERE owner_id = ? AND parent_id = ?)
		     + (SELECT COUNT(*) FROM files WHERE owner_id = ? AND folder_id = ?)`,
		owner, id, owner, id).Scan(&n)
	return n, err
}

func (q *Queries) DeleteFolder(ctx context.Context, owner, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM folders WHERE owner_id = ? AND id = ?`, owner, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanFolder(row rowScanner) (*model.Folder, error) {
	var (
		f      model.Folder
		parent sql.NullString
	)
	if err := row.Scan(&f.ID, &f.Name, &f.OwnerID, &parent, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.ParentID = stringPtr(parent)
	return &f, nil
}

// Files

const fileColumns = `id, name, storage_path, mime_type, size, owner_id, folder_id, created_at, updated_at, tags, embedding`

const insertFile = `INSERT INTO files (` + fileColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertFile(ctx context.Context, f *model.File) error {
	tags, err := encodeTags(f.Tags)
	if err != nil {
		return err
	}
	embedding, err := encodeEmbedding(f.Embedding)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, insertFile,
		f.ID, f.Name, f.StoragePath, f.MimeType, f.Size, f.OwnerID, nullString(f.FolderID),
		f.CreatedAt, f.UpdatedAt, tags, embedding)
	return err
}

func (q *Queries) GetFile(ctx context.Context, owner, id string) (*model.File, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE owner_id = ? AND id = ?`, owner, id)
	return scanFile(row)
}

func (q *Queries) GetFileByName(ctx context.Context, owner string, folderID *string, name string) (*model.File, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE owner_id = ? AND folder_id IS ? AND name = ?`,
		owner, nullString(folderID), name)
	return scanFile(row)
}

func (q *Queries) ListFilesByFolder(ctx context.Context, owner string, folderID *string) ([]*model.File, error) {
	return q.listFiles(ctx,
		`SELECT `+fileColumns+` FROM files WHERE owner_id = ? AND folder_id IS ? ORDER BY name, id`,
		owner, nullString(folderID))
}

func (q *Queries) ListFilesByOwner(ctx context.Context, owner string) ([]*model.File, error) {
	return q.listFiles(ctx,
		`SELECT `+fileColumns+` FROM files WHERE owner_id = ? ORDER BY created_at DESC, id`,
		owner)
}

func (q *Queries) listFiles(ctx context.Context, query string, args ...any) ([]*model.File, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*model.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (q *Queries) UpdateFileName(ctx context.Context, owner, id, name string, updatedAt time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE files SET name = ?, updated_at = ? WHERE owner_id = ? AND id = ?`,
		name, updatedAt, owner, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) UpdateFileTags(ctx context.Context, owner, id string, tags []string, updatedAt time.Time) (int64, error) {
	encoded, err := encodeTags(tags)
	if err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE files SET tags = ?, updated_at = ? WHERE owner_id = ? AND id = ?`,
		encoded, updatedAt, owner, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteFile(ctx context.Context, owner, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM files WHERE owner_id = ? AND id = ?`, owner, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanFile(row rowScanner) (*model.File, error) {
	var (
		f         model.File
		folder    sql.NullString
		tags      string
		embedding sql.NullString
	)
	err := row.Scan(&f.ID, &f.Name, &f.StoragePath, &f.MimeType, &f.Size, &f.OwnerID, &folder,
		&f.CreatedAt, &f.UpdatedAt, &tags, &embedding)
	if err != nil {
		return nil, err
	}
	f.FolderID = stringPtr(folder)
	if err := json.Unmarshal([]byte(tags), &f.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags of file %s: %w", f.ID, err)
	}
	if embedding.Valid {
		if err := json.Unmarshal([]byte(embedding.String), &f.Embedding); err != nil {
			return nil, fmt.Errorf("decoding embedding of file %s: %w", f.ID, err)
		}
	}
	return &f, nil
}

// Column codecs

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(b), nil
}

func encodeEmbedding(vec []float32) (sql.NullString, error) {
	if len(vec) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(vec)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding embedding: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
