package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tolarian/deckforge/internal/generator"
	"github.com/tolarian/deckforge/internal/model"
	"github.com/tolarian/deckforge/internal/store"
	"github.com/tolarian/deckforge/internal/wizard"
	"github.com/tolarian/deckforge/pkg/brewer"
)

var servePort int

const shutdownGrace = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the consultation and generation HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		hub := newSessionHub(ctx, st, newBrewerClient(), generatorConfig())

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: buildRouter(hub, cfg.Server.AllowedOrigins),
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})

		return g.Wait()
	},
}

// buildRouter wires the chi routes over the session hub. Split out so the
// API surface is testable without binding a port.
func buildRouter(hub *sessionHub, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/sessions", hub.handleCreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", hub.handleGetSession)
		r.Patch("/", hub.handleUpdateSession)
		r.Post("/next", hub.handleNext)
		r.Post("/prev", hub.handlePrev)
		r.Post("/step", hub.handleSetStep)
		r.Post("/generate", hub.handleGenerate)
		r.Delete("/generate", hub.handleCancelGeneration)
	})

	r.Get("/decks", hub.handleListDecks)
	r.Get("/decks/{id}", hub.handleGetDeck)

	return r
}

// sessionHub owns the live wizard sessions and their generation attempts.
// Machines are not safe for concurrent use, so every access to a session
// goes through its own lock.
type sessionHub struct {
	baseCtx context.Context
	store   store.Store
	client  brewer.Client
	gencfg  generator.Config

	mu       sync.Mutex
	sessions map[string]*liveSession
}

type liveSession struct {
	mu      sync.Mutex
	machine *wizard.Machine
	orch    *generator.Orchestrator
	deckID  string
	genErr  error
}

func newSessionHub(ctx context.Context, st store.Store, client brewer.Client, gencfg generator.Config) *sessionHub {
	return &sessionHub{
		baseCtx:  ctx,
		store:    st,
		client:   client,
		gencfg:   gencfg,
		sessions: make(map[string]*liveSession),
	}
}

// sessionResponse is the wire representation of one wizard session.
type sessionResponse struct {
	SessionID        string                    `json:"session_id"`
	CurrentStepIndex int                       `json:"current_step_index"`
	StepTitle        string                    `json:"step_title"`
	IsComplete       bool                      `json:"is_complete"`
	Record           model.ConsultationRecord  `json:"record"`
	Verdict          wizard.Verdict            `json:"verdict"`
	Generation       *generationStatusResponse `json:"generation,omitempty"`
}

type generationStatusResponse struct {
	Status     string `json:"status"`
	PhaseIndex int    `json:"phase_index"`
	RetryCount int    `json:"retry_count"`
	DeckID     string `json:"deck_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (h *sessionHub) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()
	ls := &liveSession{
		machine: wizard.NewMachine(r.Context(), h.store, "http."+id),
	}

	h.mu.Lock()
	h.sessions[id] = ls
	h.mu.Unlock()

	zap.L().Info("session created", zap.String("session_id", id))
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":      id,
		"session": snapshotLocked(ls),
	})
}

func (h *sessionHub) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ls, ok := h.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	writeJSON(w, http.StatusOK, snapshot(ls))
}

func (h *sessionHub) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	ls, ok := h.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var patch model.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.machine.UpdateData(r.Context(), patch)
	writeJSON(w, http.StatusOK, snapshot(ls))
}

func (h *sessionHub) handleNext(w http.ResponseWriter, r *http.Request) {
	ls, ok := h.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	if !ls.machine.NextStep(r.Context()) {
		resp := snapshot(ls)
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	writeJSON(w, http.StatusOK, snapshot(ls))
}

func (h *sessionHub) handlePrev(w http.ResponseWriter, r *http.Request) {
	ls, ok := h.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.machine.PreviousStep(r.Context())
	writeJSON(w, http.StatusOK, snapshot(ls))
}

func (h *sessionHub) handleSetStep(w http.ResponseWriter, r *http.Request) {
	ls, ok := h.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.machine.SetStep(r.Context(), req.Index)
	writeJSON(w, http.StatusOK, snapshot(ls))
}

// handleGenerate finalizes the consultation and kicks off an asynchronous
// generation attempt. The deck becomes retrievable through GET /decks/{id}
// once the attempt completes; the session's generation block reports
// progress in the meantime.
func (h *sessionHub) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	ls, ok := h.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.orch != nil && ls.orch.Attempt().Status == generator.StatusRunning {
		writeError(w, http.StatusConflict, "generation already in flight")
		return
	}

	record, err := ls.machine.Complete(r.Context())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	constraints := model.GenerationConstraints{
		Budget:     record.Budget,
		PowerLevel: record.PowerLevel,
	}

	orch := generator.New(h.client, generator.WithConfig(h.gencfg))
	ls.orch = orch
	ls.deckID = ""
	ls.genErr = nil

	// The request context dies when this handler returns; the attempt
	// runs under the server's lifetime instead.
	go func() {
		deck, err := orch.Generate(h.baseCtx, record, record.Commander, constraints, sessionID)
		ls.mu.Lock()
		defer ls.mu.Unlock()
		if err != nil {
			ls.genErr = err
			zap.L().Error("generation failed",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
			return
		}
		if err := h.store.SaveDeck(h.baseCtx, deck); err != nil {
			ls.genErr = err
			zap.L().Error("deck save failed",
				zap.String("session_id", sessionID),
				zap.String("deck_id", deck.ID),
				zap.Error(err),
			)
			return
		}
		ls.deckID = deck.ID
		zap.L().Info("generation complete",
			zap.String("session_id", sessionID),
			zap.String("deck_id", deck.ID),
		)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":     "accepted",
		"session_id": sessionID,
	})
}

func (h *sessionHub) handleCancelGeneration(w http.ResponseWriter, r *http.Request) {
	ls, ok := h.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.orch == nil {
		writeError(w, http.StatusConflict, "no generation attempt to cancel")
		return
	}
	ls.orch.Cancel()
	writeJSON(w, http.StatusOK, snapshot(ls))
}

func (h *sessionHub) handleListDecks(w http.ResponseWriter, r *http.Request) {
	filter := store.DeckFilter{Commander: r.URL.Query().Get("commander")}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		fmt.Sscanf(limit, "%d", &filter.Limit)
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		fmt.Sscanf(offset, "%d", &filter.Offset)
	}

	decks, err := h.store.ListDecks(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list decks failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decks": decks})
}

func (h *sessionHub) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	deck, err := h.store.GetDeck(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrDeckNotFound) {
			writeError(w, http.StatusNotFound, "deck not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get deck failed")
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

func (h *sessionHub) lookup(r *http.Request) (*liveSession, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ls, ok := h.sessions[chi.URLParam(r, "id")]
	return ls, ok
}

// snapshot renders the session's current state. Callers must hold ls.mu.
func snapshot(ls *liveSession) sessionResponse {
	sess := ls.machine.Session()
	resp := sessionResponse{
		SessionID:        sess.SessionID,
		CurrentStepIndex: sess.CurrentStepIndex,
		StepTitle:        ls.machine.CurrentStep().Title,
		IsComplete:       sess.IsComplete,
		Record:           sess.Record,
		Verdict:          ls.machine.Verdict(),
	}
	if ls.orch != nil {
		att := ls.orch.Attempt()
		gs := &generationStatusResponse{
			Status:     att.Status.String(),
			PhaseIndex: att.PhaseIndex,
			RetryCount: att.RetryCount,
			DeckID:     ls.deckID,
		}
		if ls.genErr != nil {
			gs.Error = ls.genErr.Error()
		}
		resp.Generation = gs
	}
	return resp
}

// snapshotLocked is snapshot for a session nothing else can reach yet.
func snapshotLocked(ls *liveSession) sessionResponse {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return snapshot(ls)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
