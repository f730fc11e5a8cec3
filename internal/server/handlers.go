package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"etiquetas/internal"
	"etiquetas/internal/artifacts"
	"etiquetas/internal/pipeline"
)

const (
	msgNoFile       = "No se envió ningún archivo."
	msgEmptyName    = "No se seleccionó ningún archivo."
	msgBadFormat    = "Formato de archivo no válido. Sube un .txt, .pdf, .html o .eml"
	msgTooLarge     = "El archivo supera el tamaño máximo permitido."
	msgUnreadable   = "No se pudo procesar el archivo de 3uTools."
	msgRender       = "Error al generar la etiqueta."
	msgInternal     = "Error interno del servidor."
	msgBadJSON      = "Datos de entrada no válidos."
	msgNotFound     = "Archivo no encontrado."
	msgInvalidName  = "Nombre de archivo no válido."
	generatedPrefix = "/generated/"
)

type labelResponse struct {
	PreviewURL string                `json:"preview_url"`
	PDFURL     string                `json:"pdf_url"`
	Record     internal.DeviceRecord `json:"record"`
}

type recordResponse struct {
	Record internal.DeviceRecord `json:"record"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "etiquetas"})
}

// upload handles POST /upload: a report file plus an optional imei field.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	filename, blob, ok := s.readReport(w, r)
	if !ok {
		return
	}

	res, err := s.svc.FromReport(r.Context(), filename, blob, r.FormValue("imei"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, labelResponse{
		PreviewURL: generatedPrefix + res.PreviewName,
		PDFURL:     generatedPrefix + res.PDFName,
		Record:     res.Record,
	})
}

// manual handles POST /manual with the record fields as JSON.
func (s *Server) manual(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	var entry pipeline.ManualEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, msgBadJSON)
		return
	}

	res, err := s.svc.FromManual(r.Context(), entry)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, labelResponse{
		PreviewURL: generatedPrefix + res.PreviewName,
		PDFURL:     generatedPrefix + res.PDFName,
		Record:     res.Record,
	})
}

// parse handles POST /parse: extraction only, nothing is rendered or kept.
func (s *Server) parse(w http.ResponseWriter, r *http.Request) {
	filename, blob, ok := s.readReport(w, r)
	if !ok {
		return
	}

	res, _, err := s.svc.ParseReport(filename, blob)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{Record: res.Record})
}

func (s *Server) generated(w http.ResponseWriter, r *http.Request) {
	path, err := s.store.Resolve(chi.URLParam(r, "filename"))
	switch {
	case errors.Is(err, artifacts.ErrInvalidName):
		writeError(w, http.StatusBadRequest, msgInvalidName)
		return
	case errors.Is(err, os.ErrNotExist):
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	case err != nil:
		s.log.Error().Err(err).Msg("resolve artifact")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	http.ServeFile(w, r, path)
}

// readReport pulls the "file" part out of a multipart request, writing the
// error response itself when the upload is missing, too large or of the
// wrong kind.
func (s *Server) readReport(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return "", nil, false
		}
		writeError(w, http.StatusBadRequest, msgNoFile)
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, msgNoFile)
		return "", nil, false
	}
	defer file.Close()

	if strings.TrimSpace(header.Filename) == "" {
		writeError(w, http.StatusBadRequest, msgEmptyName)
		return "", nil, false
	}
	if !pipeline.AcceptedExtension(header.Filename) {
		writeError(w, http.StatusBadRequest, msgBadFormat)
		return "", nil, false
	}

	blob, err := readPart(file, s.opts.MaxUploadBytes)
	if err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return "", nil, false
		}
		writeError(w, http.StatusBadRequest, msgNoFile)
		return "", nil, false
	}
	return header.Filename, blob, true
}

func readPart(file multipart.File, limit int64) ([]byte, error) {
	blob, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(blob)) > limit {
		return nil, &http.MaxBytesError{Limit: limit}
	}
	return blob, nil
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, pipeline.ErrUnreadableInput):
		writeError(w, http.StatusUnprocessableEntity, msgUnreadable)
	case errors.Is(err, pipeline.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, msgBadFormat)
	case errors.Is(err, pipeline.ErrRender):
		writeError(w, http.StatusInternalServerError, msgRender)
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
