// Package devserver implements the demo REST backend the client core talks
// to: token-pair authentication plus the pets and tutors catalog. Pets are
// served in an object envelope and tutors as a bare array with a total
// header, so both decoding paths stay exercised end to end.
package devserver

import (
	"crypto/subtle"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"patas/internal/platform/config"
	"patas/internal/platform/metrics"
	"patas/pkg/platform/httputil"
)

const maxPhotoBytes = 10 << 20

// Handler is the HTTP layer over the in-memory catalog.
type Handler struct {
	logger   *slog.Logger
	store    *Store
	tokens   *TokenService
	sessions *SessionLog
	metrics  *metrics.Metrics

	demoUser     string
	passwordHash []byte
}

func NewHandler(cfg config.Server, store *Store, tokens *TokenService, logger *slog.Logger, m *metrics.Metrics) (*Handler, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Handler{
		logger:       logger,
		store:        store,
		tokens:       tokens,
		sessions:     NewSessionLog(),
		metrics:      m,
		demoUser:     cfg.DemoUser,
		passwordHash: hash,
	}, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	h.metrics.LoginAttempts.Inc()

	req, ok := httputil.DecodeJSON[loginRequest](w, r, h.logger)
	if !ok {
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.demoUser)) == 1
	passOK := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)) == nil
	if !userOK || !passOK {
		h.metrics.LoginFailures.Inc()
		h.logger.Warn("login rejected", "username", req.Username)
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{
			Error:   "invalid_credentials",
			Message: "usuário ou senha inválidos",
		})
		return
	}

	pair, err := h.tokens.Issue(req.Username)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	session := h.sessions.Record(req.Username, r.UserAgent())
	h.metrics.TokensIssued.Inc()
	h.logger.Info("login succeeded",
		"username", req.Username,
		"session_id", session.ID,
		"browser", session.Browser,
		"os", session.OS,
	)

	httputil.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		ExpiresIn:        pair.ExpiresIn,
		RefreshExpiresIn: pair.RefreshExpiresIn,
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.VerifyRefresh(bearerToken(r))
	if err != nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{
			Error:   "invalid_token",
			Message: "refresh token inválido ou expirado",
		})
		return
	}

	pair, err := h.tokens.Issue(claims.Username)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.metrics.TokensRefreshed.Inc()

	httputil.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		ExpiresIn:        pair.ExpiresIn,
		RefreshExpiresIn: pair.RefreshExpiresIn,
	})
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	username := usernameFrom(r.Context())
	httputil.WriteJSON(w, http.StatusOK, h.sessions.ForUser(username))
}

// requireAuth guards the catalog endpoints behind a valid access token.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.tokens.VerifyAccess(bearerToken(r))
		if err != nil {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{
				Error:   "invalid_token",
				Message: "token de acesso inválido ou expirado",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(withUsername(r.Context(), claims.Username)))
	})
}

// pagedResponse is the object envelope the pets listing answers with.
type pagedResponse struct {
	Items     []*petRecord `json:"items"`
	Total     int          `json:"total"`
	Page      int          `json:"page"`
	Size      int          `json:"size"`
	PageCount int          `json:"pageCount"`
}

func (h *Handler) handleListPets(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	items, total := h.store.ListPets(r.URL.Query().Get("nome"), page, size)

	pageCount := (total + size - 1) / size
	if pageCount < 1 {
		pageCount = 1
	}
	httputil.WriteJSON(w, http.StatusOK, pagedResponse{
		Items:     items,
		Total:     total,
		Page:      page,
		Size:      size,
		PageCount: pageCount,
	})
}

func (h *Handler) handleGetPet(w http.ResponseWriter, r *http.Request) {
	p, ok := h.store.GetPet(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w, "pet não encontrado")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleCreatePet(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[petRecord](w, r, h.logger)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Nome) == "" {
		writeBadRequest(w, "nome é obrigatório")
		return
	}
	created := h.store.CreatePet(&petRecord{
		Nome:    req.Nome,
		Especie: req.Especie,
		Idade:   req.Idade,
		Raca:    req.Raca,
	})
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdatePet(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[petRecord](w, r, h.logger)
	if !ok {
		return
	}
	updated, found := h.store.UpdatePet(chi.URLParam(r, "id"), *req)
	if !found {
		writeNotFound(w, "pet não encontrado")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeletePet(w http.ResponseWriter, r *http.Request) {
	if !h.store.DeletePet(chi.URLParam(r, "id")) {
		writeNotFound(w, "pet não encontrado")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListTutors(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	items, total := h.store.ListTutors(r.URL.Query().Get("nome"), page, size)

	// Tutors answer in the bare-array shape: the page slice as the body and
	// the filtered total in a header.
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGetTutor(w http.ResponseWriter, r *http.Request) {
	t, ok := h.store.GetTutor(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w, "tutor não encontrado")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleCreateTutor(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[tutorRecord](w, r, h.logger)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Nome) == "" || strings.TrimSpace(req.Telefone) == "" {
		writeBadRequest(w, "nome e telefone são obrigatórios")
		return
	}
	created := h.store.CreateTutor(&tutorRecord{
		Nome:     req.Nome,
		Telefone: req.Telefone,
		Email:    req.Email,
		Endereco: req.Endereco,
		CPF:      req.CPF,
	})
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateTutor(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[tutorRecord](w, r, h.logger)
	if !ok {
		return
	}
	updated, found := h.store.UpdateTutor(chi.URLParam(r, "id"), *req)
	if !found {
		writeNotFound(w, "tutor não encontrado")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteTutor(w http.ResponseWriter, r *http.Request) {
	if !h.store.DeleteTutor(chi.URLParam(r, "id")) {
		writeNotFound(w, "tutor não encontrado")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLinkPet(w http.ResponseWriter, r *http.Request) {
	if !h.store.LinkPet(chi.URLParam(r, "id"), chi.URLParam(r, "petId")) {
		writeNotFound(w, "tutor ou pet não encontrado")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnlinkPet(w http.ResponseWriter, r *http.Request) {
	if !h.store.UnlinkPet(chi.URLParam(r, "id"), chi.URLParam(r, "petId")) {
		writeNotFound(w, "vínculo não encontrado")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUploadPetPhoto(w http.ResponseWriter, r *http.Request) {
	filename, contentType, data, ok := readPhotoForm(w, r, h.logger)
	if !ok {
		return
	}
	f, found := h.store.AttachPetPhoto(chi.URLParam(r, "id"), filename, contentType, data)
	if !found {
		writeNotFound(w, "pet não encontrado")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, f)
}

func (h *Handler) handleGetPetPhoto(w http.ResponseWriter, r *http.Request) {
	p, ok := h.store.GetPet(chi.URLParam(r, "id"))
	if !ok || p.Foto == nil || p.Foto.ID != chi.URLParam(r, "fotoId") {
		writeNotFound(w, "foto não encontrada")
		return
	}
	w.Header().Set("Content-Type", p.Foto.ContentType)
	_, _ = w.Write(p.Foto.data)
}

func (h *Handler) handleDeletePetPhoto(w http.ResponseWriter, r *http.Request) {
	if !h.store.RemovePetPhoto(chi.URLParam(r, "id"), chi.URLParam(r, "fotoId")) {
		writeNotFound(w, "foto não encontrada")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUploadTutorPhoto(w http.ResponseWriter, r *http.Request) {
	filename, contentType, data, ok := readPhotoForm(w, r, h.logger)
	if !ok {
		return
	}
	f, found := h.store.AttachTutorPhoto(chi.URLParam(r, "id"), filename, contentType, data)
	if !found {
		writeNotFound(w, "tutor não encontrado")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, f)
}

func (h *Handler) handleDeleteTutorPhoto(w http.ResponseWriter, r *http.Request) {
	if !h.store.RemoveTutorPhoto(chi.URLParam(r, "id"), chi.URLParam(r, "fotoId")) {
		writeNotFound(w, "foto não encontrada")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func readPhotoForm(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (filename, contentType string, data []byte, ok bool) {
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		logger.Warn("invalid multipart form", "error", err)
		writeBadRequest(w, "upload inválido")
		return "", "", nil, false
	}
	file, header, err := r.FormFile("foto")
	if err != nil {
		writeBadRequest(w, "campo foto ausente")
		return "", "", nil, false
	}
	defer file.Close()

	data, err = io.ReadAll(io.LimitReader(file, maxPhotoBytes))
	if err != nil {
		writeBadRequest(w, "upload inválido")
		return "", "", nil, false
	}
	return header.Filename, header.Header.Get("Content-Type"), data, true
}

func pageParams(r *http.Request) (page, size int) {
	page = 0
	size = config.DefaultPageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v >= 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && v > 0 {
		size = v
	}
	return page, size
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}

func writeNotFound(w http.ResponseWriter, msg string) {
	httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "not_found", Message: msg})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "bad_request", Message: msg})
}
