package analysis

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"mime"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ayush/text-analysis/web/internal/models"
	"github.com/ayush/text-analysis/web/internal/store"
	"github.com/ayush/text-analysis/web/internal/web/flash"
	"github.com/ayush/text-analysis/web/internal/workflow"
)

var (
	errUploadType = errors.New("only .csv and .xlsx files are accepted")
	errNoFile     = errors.New("no file uploaded")
	errTooLarge   = errors.New("upload too large")
)

const (
	mimeCSV  = "text/csv"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// acceptedUpload reports the content type to store for a spreadsheet, or
// false when neither the extension nor the declared MIME type is CSV/XLSX.
func acceptedUpload(filename, declared string) (string, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return mimeCSV, true
	case ".xlsx":
		return mimeXLSX, true
	}
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return "", false
	}
	switch mt {
	case mimeCSV, "application/csv":
		return mimeCSV, true
	case mimeXLSX:
		return mimeXLSX, true
	}
	return "", false
}

// UploadPage renders the file picker.
func (h *Handler) UploadPage(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	view := uploadView{MaxMB: formatMB(h.opts.MaxUploadBytes), Dataset: st.Dataset}
	if h.datasets != nil {
		recent, err := h.datasets.ListDatasets(r.Context(), st.ID)
		if err != nil {
			log.Printf("list datasets: %v", err)
		}
		view.Recent = recent
	}
	h.page(w, r, http.StatusOK, "upload", st, workflow.StepUpload, "nav.upload", view)
}

// Upload sends the spreadsheet to the analysis service, archives it and
// records it, then moves on to column selection.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	back := workflow.StepUpload.Path()

	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, r, errTooLarge, back)
			return
		}
		h.fail(w, r, errNoFile, back)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, errNoFile, back)
		return
	}
	defer file.Close()

	contentType, ok := acceptedUpload(header.Filename, header.Header.Get("Content-Type"))
	if !ok {
		h.fail(w, r, errUploadType, back)
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(w, r, err, back)
		return
	}
	if len(data) == 0 {
		h.fail(w, r, errNoFile, back)
		return
	}

	sess := st.Session()
	resp, err := h.api.Upload(r.Context(), sess, header.Filename, bytes.NewReader(data))
	if err != nil {
		h.fail(w, r, err, back)
		return
	}
	st.AdoptSession(sess)

	filename := resp.Filename
	if filename == "" {
		filename = filepath.Base(header.Filename)
	}
	rec := &models.DatasetRecord{
		ID:          store.NewID(),
		SessionID:   st.ID,
		Filename:    filename,
		Columns:     resp.Columns,
		Size:        int64(len(data)),
		ContentHash: store.ContentHash(data),
	}
	rec.ObjectKey = h.archive(r.Context(), rec, data, contentType)
	if h.datasets != nil {
		if err := h.datasets.InsertDataset(r.Context(), rec); err != nil {
			log.Printf("dataset insert: %v", err)
		}
	}

	st.SetDataset(workflow.Dataset{
		ID:        rec.ID,
		Filename:  filename,
		Columns:   resp.Columns,
		Size:      rec.Size,
		ObjectKey: rec.ObjectKey,
	})
	if len(resp.Columns) == 0 {
		h.commit(w, r, st, flash.Warning("flash.no_columns", filename), workflow.StepColumns.Path())
		return
	}
	h.commit(w, r, st, flash.Success("flash.uploaded", filename), workflow.StepColumns.Path())
}

// archive stores the original upload once per content hash and returns its
// object key, or "" when storage failed.
func (h *Handler) archive(ctx context.Context, rec *models.DatasetRecord, data []byte, contentType string) string {
	if h.files == nil {
		return ""
	}
	key := store.UploadKey(rec.ContentHash)
	if h.datasets != nil {
		if n, err := h.datasets.CountByHash(ctx, rec.ContentHash); err == nil && n > 0 {
			return key
		}
	}
	if err := h.files.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		log.Printf("archive upload %s: %v", key, err)
		return ""
	}
	return key
}

func formatMB(n int64) string {
	mb := float64(n) / (1 << 20)
	if mb == float64(int64(mb)) {
		return strconv.FormatInt(int64(mb), 10)
	}
	return strconv.FormatFloat(mb, 'f', 1, 64)
}

func isTransport(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}
