package regras

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"ComissoesCorpApp/api"
	"ComissoesCorpApp/api/constants"
	"ComissoesCorpApp/internal/config"
	"ComissoesCorpApp/internal/escopo"
	"ComissoesCorpApp/internal/lote"
)

type criarLoteRequest struct {
	Aba string `json:"aba"`
}

// CriarLoteHandler opens a batch-edit session.
func CriarLoteHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req criarLoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSONShort)
			return
		}
		if req.Aba == "" {
			req.Aba = config.AbaConfigComissao
		}
		sess := d.Sessions.Create(req.Aba)
		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"session_id": sess.ID,
			"estado":     sess.State(),
		})
	}
}

// ListarLotesHandler lists live sessions, most recently touched first.
func ListarLotesHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.RespondWithPayload(w, true, "", d.Sessions.List())
	}
}

func loteSession(d *Deps, w http.ResponseWriter, r *http.Request) (*lote.Session, bool) {
	id := mux.Vars(r)["id"]
	sess, ok := d.Sessions.Get(id)
	if !ok {
		api.RespondWithError(w, http.StatusNotFound, constants.ErrSessionNotFound)
		return nil, false
	}
	return sess, true
}

// EstadoLoteHandler reports the session state and any computed preview.
func EstadoLoteHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loteSession(d, w, r)
		if !ok {
			return
		}
		scope, _, preview := sess.Snapshot()
		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"session_id": sess.ID,
			"aba":        sess.Aba,
			"estado":     sess.State(),
			"escopo":     scope,
			"preview":    preview,
		})
	}
}

type configurarLoteRequest struct {
	Escopo escopo.Scope `json:"escopo"`
	Acao   struct {
		Tipo   string            `json:"tipo"`
		Valor  string            `json:"valor"`
		Fatias map[string]string `json:"fatias"`
	} `json:"acao"`
}

// batchScopeField reports whether a field may constrain a batch action's
// scope. The role field is addressed per share, never by the scope.
func batchScopeField(field string) bool {
	for _, f := range config.ScopeFields {
		if f == field {
			return true
		}
	}
	return false
}

func parseAction(req configurarLoteRequest) (lote.BatchAction, error) {
	switch lote.ActionKind(req.Acao.Tipo) {
	case lote.AcaoTaxaUniforme:
		valor, err := decimal.NewFromString(req.Acao.Valor)
		if err != nil {
			return lote.BatchAction{}, errors.New("valor must be a decimal percentage")
		}
		return lote.NewTaxaAction(valor), nil
	case lote.AcaoFatiasPorCargo:
		fatias, err := lote.ParseFatias(req.Acao.Fatias)
		if err != nil {
			return lote.BatchAction{}, err
		}
		return lote.NewFatiasAction(fatias), nil
	}
	return lote.BatchAction{}, lote.ErrAcaoInvalida
}

// ConfigurarLoteHandler binds the scope and action of a session. The action
// is validated here so an impossible share sum is rejected before any dry
// run, but validation runs again right before apply regardless.
func ConfigurarLoteHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loteSession(d, w, r)
		if !ok {
			return
		}
		var req configurarLoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSONShort)
			return
		}
		for field := range req.Escopo {
			if !batchScopeField(field) {
				api.RespondWithError(w, http.StatusUnprocessableEntity, constants.ErrEscopoInvalido+": "+field)
				return
			}
		}
		action, err := parseAction(req)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := action.Validate(); err != nil {
			api.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err := sess.Configure(req.Escopo, action); err != nil {
			api.RespondWithError(w, http.StatusConflict, err.Error())
			return
		}
		api.RespondWithResult(w, true, "")
	}
}

// SimularLoteHandler runs the dry run for the configured action.
func SimularLoteHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loteSession(d, w, r)
		if !ok {
			return
		}
		result, err := d.Engine.DryRun(r.Context(), sess)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, lote.ErrSomaFatias) || errors.Is(err, lote.ErrSemFatias) {
				status = http.StatusUnprocessableEntity
			} else if errors.Is(err, lote.ErrTransicaoInvalida) {
				status = http.StatusConflict
			}
			api.RespondWithError(w, status, api.FriendlyDBError(err))
			return
		}
		api.RespondWithPayload(w, true, "", result)
	}
}

// AplicarLoteHandler executes the previewed action. Share applies stop on the
// first failed role; the response then reports which roles were written.
func AplicarLoteHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loteSession(d, w, r)
		if !ok {
			return
		}
		result, err := d.Engine.Apply(r.Context(), sess)
		d.Cache.DropSheet(sess.Aba)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, lote.ErrSomaFatias), errors.Is(err, lote.ErrSemFatias):
				status = http.StatusUnprocessableEntity
			case errors.Is(err, lote.ErrSemPreview), errors.Is(err, lote.ErrSessaoEncerrada):
				status = http.StatusConflict
			}
			w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   api.FriendlyDBError(err),
				"rows":    result,
			})
			return
		}
		api.RespondWithPayload(w, true, "", result)
	}
}

// CancelarLoteHandler resets a session to idle.
func CancelarLoteHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loteSession(d, w, r)
		if !ok {
			return
		}
		if err := sess.Cancel(); err != nil {
			api.RespondWithError(w, http.StatusConflict, err.Error())
			return
		}
		api.RespondWithResult(w, true, "")
	}
}
