package feed

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"xdao.co/tokengate/bearer"
	"xdao.co/tokengate/entitle"
	"xdao.co/tokengate/storage"
)

// TokenVerifier authenticates an Authorization header value.
type TokenVerifier interface {
	Verify(authorization string) (bearer.Identity, error)
}

// Handler exposes the feed over HTTP.
type Handler struct {
	svc      *Service
	verifier TokenVerifier
	logger   *slog.Logger
}

func NewHandler(svc *Service, verifier TokenVerifier, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, verifier: verifier, logger: logger}
}

// Register installs the feed routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /posts", h.handleLatestPosts)
	mux.HandleFunc("GET /posts/{community}", h.handleCommunityPosts)
	mux.HandleFunc("PUT /posts/{community}", h.handleCreatePost)
	mux.HandleFunc("GET /creators", h.handleListCreators)
	mux.HandleFunc("GET /creators/{address}", h.handleGetCreator)
	mux.HandleFunc("PUT /creators/{address}", h.handlePutCreator)
}

// WithCORS wraps next with the permissive CORS policy the web client
// expects, answering preflight requests directly.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "DELETE, GET, HEAD, OPTIONS, PATCH, POST, PUT")
		header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		header.Set("Access-Control-Max-Age", "7200")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleLatestPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.LatestPosts(r.Context())
	if err != nil {
		h.fail(w, "feed_latest_posts_failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) handleCommunityPosts(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	posts, err := h.svc.CommunityPosts(r.Context(), identity, r.PathValue("community"))
	if err != nil {
		h.fail(w, "feed_community_posts_failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.svc.CreatePost(r.Context(), identity, r.PathValue("community"), req); err != nil {
		h.fail(w, "feed_create_post_failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleListCreators(w http.ResponseWriter, r *http.Request) {
	creators, err := h.svc.Creators(r.Context())
	if err != nil {
		h.fail(w, "feed_list_creators_failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, creators)
}

func (h *Handler) handleGetCreator(w http.ResponseWriter, r *http.Request) {
	creator, err := h.svc.Creator(r.Context(), r.PathValue("address"))
	if err != nil {
		if storage.IsNotFound(err) {
			h.writeJSON(w, http.StatusOK, map[string]string{})
			return
		}
		h.fail(w, "feed_get_creator_failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, creator)
}

func (h *Handler) handlePutCreator(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	var c storage.Creator
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.svc.PutCreator(r.Context(), identity, r.PathValue("address"), c); err != nil {
		h.fail(w, "feed_put_creator_failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity, err := h.verifier.Verify(r.Header.Get("Authorization"))
	if err != nil {
		h.logger.Info("feed_token_rejected", "reason", string(bearer.ReasonOf(err)))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return identity.Address, true
}

func (h *Handler) fail(w http.ResponseWriter, event string, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized), entitle.IsNotFound(err):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, ErrInvalidPost):
		http.Error(w, "invalid body", http.StatusBadRequest)
	default:
		h.logger.Error(event, "error", err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("feed_write_response_failed", "error", err.Error())
	}
}
