package handlers

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/mutasim99/note-hive-server/internal/store"
)

// DownloadHandler streams file content back to the caller
type DownloadHandler struct {
	files *store.FileStore
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(files *store.FileStore) *DownloadHandler {
	return &DownloadHandler{files: files}
}

// ServeHTTP handles GET /pdfs/file/{file_id}. Chunks are written to the
// response strictly in index order, each flushed before the next is
// fetched, so a whole file is never held in memory.
func (dh *DownloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["file_id"]

	download, err := dh.files.Download(r.Context(), fileID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	meta := download.Metadata
	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", meta.Filename))
	w.Header().Set("Content-Length", strconv.FormatInt(meta.Length, 10))
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for {
		chunk, err := download.NextChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Headers are already committed; all we can do is stop.
			log.Printf("ERROR: aborting download of %s mid-stream: %v", meta.ID, err)
			return
		}
		if _, err := w.Write(chunk); err != nil {
			// Caller went away. Downloads never mutate state, so there
			// is nothing to clean up.
			log.Printf("Download of %s interrupted: %v", meta.ID, err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	log.Printf("File download completed: %s (ID: %s)", meta.Filename, meta.ID)
}

// DeleteHandler removes a file. The route is admin-gated.
type DeleteHandler struct {
	files *store.FileStore
}

// NewDeleteHandler creates a new delete handler
func NewDeleteHandler(files *store.FileStore) *DeleteHandler {
	return &DeleteHandler{files: files}
}

// ServeHTTP handles DELETE /pdfs/file/{file_id}
func (dh *DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["file_id"]

	if err := dh.files.Delete(r.Context(), fileID); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
