package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"drive-go/internal/model"
)

type folderResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
	ParentFolderID *string   `json:"parent_folder_id"`
}

func toFolderResponse(f *model.Folder) folderResponse {
	return folderResponse{ID: f.ID, Name: f.Name, CreatedAt: f.CreatedAt, ParentFolderID: f.ParentID}
}

func toFolderResponses(folders []*model.Folder) []folderResponse {
	out := make([]folderResponse, len(folders))
	for i, f := range folders {
		out[i] = toFolderResponse(f)
	}
	return out
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	f, err := s.svc.CreateFolder(r.Context(), ownerFrom(r), optionalQuery(r, "parent_id"), r.URL.Query().Get("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFolderResponse(f))
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.svc.ListFolders(r.Context(), ownerFrom(r), optionalQuery(r, "parent_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFolderResponses(folders))
}

func (s *Server) handleGetFolder(w http.ResponseWriter, r *http.Request) {
	f, err := s.svc.GetFolder(r.Context(), ownerFrom(r), chi.URLParam(r, "folderID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFolderResponse(f))
}

type childrenResponse struct {
	Folders []folderResponse `json:"folders"`
	Files   []fileResponse   `json:"files"`
}

func (s *Server) handleListChildren(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "folderID")
	folders, files, err := s.svc.ListChildren(r.Context(), ownerFrom(r), &id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := childrenResponse{Folders: toFolderResponses(folders), Files: make([]fileResponse, len(files))}
	for i, f := range files {
		resp.Files[i] = toFileResponse(f)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResolvePath(w http.ResponseWriter, r *http.Request) {
	chain, err := s.svc.ResolvePath(r.Context(), ownerFrom(r), chi.URLParam(r, "folderID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFolderResponses(chain))
}

func (s *Server) handleRenameFolder(w http.ResponseWriter, r *http.Request) {
	f, err := s.svc.RenameFolder(r.Context(), ownerFrom(r), chi.URLParam(r, "folderID"), r.URL.Query().Get("new_name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFolderResponse(f))
}

func (s *Server) handleMoveFolder(w http.ResponseWriter, r *http.Request) {
	f, err := s.svc.MoveFolder(r.Context(), ownerFrom(r), chi.URLParam(r, "folderID"), optionalQuery(r, "parent_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFolderResponse(f))
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteFolder(r.Context(), ownerFrom(r), chi.URLParam(r, "folderID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Folder deleted successfully"})
}
