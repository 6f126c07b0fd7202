package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/sqlscribe/sqlscribe/internal/nl2sql"
	"github.com/sqlscribe/sqlscribe/internal/observability"
	"github.com/sqlscribe/sqlscribe/internal/sqlcheck"
	"github.com/sqlscribe/sqlscribe/internal/workbench"
)

type sessionInput struct {
	Query  *string `json:"query"`
	Schema *string `json:"schema"`
}

type sessionView struct {
	workbench.Snapshot
	Highlighted  *highlightedSQL  `json:"highlighted,omitempty"`
	Verification *sqlcheck.Report `json:"verification,omitempty"`
}

func handleCreateSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "sessions are not configured", false, nil)
		return
	}

	var input sessionInput
	if err := decodeJSON(w, r, &input); err != nil && !errors.Is(err, io.EOF) {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid session request body", false, map[string]any{"details": err.Error()})
		return
	}

	var query, schema string
	if input.Query != nil {
		query = *input.Query
	}
	if input.Schema != nil {
		schema = *input.Schema
	} else if deps.SchemaSource != nil {
		loaded, err := deps.SchemaSource.Load(r.Context())
		if err != nil {
			if deps.Logger != nil {
				observability.WithTrace(r.Context(), deps.Logger).WarnContext(r.Context(), "schema source unavailable for new session",
					"source", deps.SchemaSource.Name(),
					"error", err,
				)
			}
		} else {
			schema = loaded
		}
	}

	session := deps.Sessions.Create(query, schema)
	writeJSON(w, http.StatusCreated, sessionView{Snapshot: session.Snapshot()})
}

func handleGetSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	session, ok := lookupSession(deps, w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(deps, session.Snapshot()))
}

func handleUpdateSessionInput(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	session, ok := lookupSession(deps, w, r)
	if !ok {
		return
	}
	var input sessionInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid session input body", false, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, viewOf(deps, session.SetInput(input.Query, input.Schema)))
}

// Failed attempts still answer 200; the failure is part of the session state.
func handleCompileSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	session, ok := lookupSession(deps, w, r)
	if !ok {
		return
	}

	snapshot, err := session.Compile(r.Context())
	switch {
	case errors.Is(err, workbench.ErrCompileInFlight):
		writeError(r.Context(), w, http.StatusConflict, "COMPILE_IN_FLIGHT", "a compile is already running for this session", true, map[string]any{"session_id": snapshot.ID})
		return
	case errors.Is(err, workbench.ErrInputRequired):
		writeError(r.Context(), w, http.StatusBadRequest, "INPUT_REQUIRED", nl2sql.MessageInput, false, map[string]any{"session_id": snapshot.ID})
		return
	}

	view := viewOf(deps, snapshot)
	if snapshot.Result != nil && deps.Verifier != nil {
		_, view.Verification = presentResult(r.Context(), deps, snapshot.Schema, *snapshot.Result)
	}
	writeJSON(w, http.StatusOK, view)
}

func handleDeleteSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "sessions are not configured", false, nil)
		return
	}
	if err := deps.Sessions.Delete(r.PathValue("id")); err != nil {
		writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error(), false, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func lookupSession(deps Dependencies, w http.ResponseWriter, r *http.Request) (*workbench.Session, bool) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "sessions are not configured", false, nil)
		return nil, false
	}
	session, err := deps.Sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error(), false, nil)
		return nil, false
	}
	return session, true
}

func viewOf(deps Dependencies, snapshot workbench.Snapshot) sessionView {
	view := sessionView{Snapshot: snapshot}
	if snapshot.Result != nil {
		highlighted := highlightedSQL{
			GeneratedSQL: renderSQL(deps, snapshot.Result.GeneratedSQL),
			OptimizedSQL: renderSQL(deps, snapshot.Result.OptimizedSQL),
		}
		view.Highlighted = &highlighted
	}
	return view
}
