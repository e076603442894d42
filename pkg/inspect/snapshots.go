package inspect

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	rerrors "github.com/vango-dev/reactobj/internal/errors"
	"github.com/vango-dev/reactobj/pkg/keypath"
	"github.com/vango-dev/reactobj/pkg/snapshot"
)

type restoreResponse struct {
	Name    string `json:"name"`
	Changed bool   `json:"changed"`
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	infos, err := s.config.Snapshots.List(r.Context())
	if err != nil {
		s.writeSnapshotError(w, err)
		return
	}
	if infos == nil {
		infos = []snapshot.Info{}
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleSaveSnapshot stores the current root. The root is read on the hub
// goroutine and encoded outside it; stored values are never mutated.
func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	root, _, err := s.hub.Get(r.Context(), keypath.Root)
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	info, err := s.config.Snapshots.Save(r.Context(), name, root)
	if err != nil {
		s.writeSnapshotError(w, err)
		return
	}
	s.logger.Info("snapshot saved", "name", name, "size", info.Size)
	writeJSON(w, http.StatusOK, info)
}

// handleRestoreSnapshot replaces the root with a stored snapshot. Watches
// affected by the replacement have re-run when the response is written.
func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	doc, err := s.config.Snapshots.Load(r.Context(), name)
	if err != nil {
		s.writeSnapshotError(w, err)
		return
	}
	changed, err := s.hub.Set(r.Context(), keypath.Root, doc)
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	s.logger.Info("snapshot restored", "name", name, "changed", changed)
	writeJSON(w, http.StatusOK, restoreResponse{Name: name, Changed: changed})
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.config.Snapshots.Delete(r.Context(), name); err != nil {
		s.writeSnapshotError(w, err)
		return
	}
	s.logger.Info("snapshot deleted", "name", name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeSnapshotError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		writeError(w, http.StatusNotFound, rerrors.New("R051").Wrap(err))
	case errors.Is(err, snapshot.ErrInvalidName), errors.Is(err, snapshot.ErrNotContainer):
		writeError(w, http.StatusBadRequest, rerrors.New("R050").Wrap(err))
	case errors.Is(err, snapshot.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, rerrors.New("R050").Wrap(err))
	default:
		s.logger.Error("snapshot failed", "error", err)
		writeError(w, http.StatusInternalServerError, rerrors.New("R050").Wrap(err))
	}
}
