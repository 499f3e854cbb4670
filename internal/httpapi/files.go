package httpapi

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"drive-go/internal/drive"
	"drive-go/internal/model"
)

type fileResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	FolderID  *string   `json:"folder_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Tags      []string  `json:"ai_tags"`
}

func toFileResponse(f *model.File) fileResponse {
	tags := f.Tags
	if tags == nil {
		tags = []string{}
	}
	return fileResponse{
		ID:        f.ID,
		Name:      f.Name,
		MimeType:  f.MimeType,
		Size:      f.Size,
		FolderID:  f.FolderID,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
		Tags:      tags,
	}
}

type uploadResponse struct {
	Message  string   `json:"message"`
	FileID   string   `json:"file_id"`
	FileName string   `json:"file_name"`
	MimeType string   `json:"mime_type"`
	Size     int64    `json:"size"`
	Tags     []string `json:"ai_tags"`
	Degraded bool     `json:"embedding_degraded"`
}

// optionalQuery returns a pointer to a non-empty query parameter.
func optionalQuery(r *http.Request, key string) *string {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	return &v
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Multipart framing adds a little on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody+1<<20)

	part, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: string(drive.KindInvalidArgument), Message: "file exceeds the maximum upload size"})
			return
		}
		writeBadRequest(w, `multipart form field "file" is required`)
		return
	}
	defer part.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(part, s.maxBody+1)); err != nil {
		writeBadRequest(w, "could not read uploaded file")
		return
	}

	res, err := s.svc.Upload(r.Context(), ownerFrom(r), optionalQuery(r, "folder_id"), header.Filename, buf.Bytes())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{
		Message:  "File uploaded successfully",
		FileID:   res.FileID,
		FileName: res.FileName,
		MimeType: res.MimeType,
		Size:     res.Size,
		Tags:     res.Tags,
		Degraded: res.Degraded,
	})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.svc.ListFiles(r.Context(), ownerFrom(r), optionalQuery(r, "folder_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]fileResponse, len(files))
	for i, f := range files {
		out[i] = toFileResponse(f)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.svc.GetFile(r.Context(), ownerFrom(r), chi.URLParam(r, "fileID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(f))
}

type downloadResponse struct {
	DownloadURL string `json:"download_url"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (s *Server) handleDownloadLink(w http.ResponseWriter, r *http.Request) {
	link, err := s.svc.DownloadLink(r.Context(), ownerFrom(r), chi.URLParam(r, "fileID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, downloadResponse{DownloadURL: link.URL, ExpiresIn: int64(link.ExpiresIn.Seconds())})
}

// handleFileContent streams the file through the server. The content is
// buffered so a blob store failure can still be reported as an error status.
func (s *Server) handleFileContent(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	f, err := s.svc.DownloadFile(r.Context(), ownerFrom(r), chi.URLParam(r, "fileID"), &buf)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", f.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleRenameFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.svc.RenameFile(r.Context(), ownerFrom(r), chi.URLParam(r, "fileID"), r.URL.Query().Get("new_name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(f))
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteFile(r.Context(), ownerFrom(r), chi.URLParam(r, "fileID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "File deleted successfully"})
}

type searchResponse struct {
	fileResponse
	Score float64 `json:"score"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := s.svc.Search(r.Context(), ownerFrom(r), r.URL.Query().Get("query"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]searchResponse, len(results))
	for i, res := range results {
		out[i] = searchResponse{fileResponse: toFileResponse(res.File), Score: res.Score}
	}
	writeJSON(w, http.StatusOK, out)
}
