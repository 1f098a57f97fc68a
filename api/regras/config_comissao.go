package regras

import (
	"encoding/json"
	"net/http"

	"ComissoesCorpApp/api"
	"ComissoesCorpApp/api/constants"
	"ComissoesCorpApp/internal/config"
	"ComissoesCorpApp/internal/escopo"
)

type consultarRequest struct {
	Contexto map[string]string `json:"contexto"`
}

// ConsultarConfigHandler returns the commission rule rows matching a context
// tuple (partial tuples widen the match).
func ConsultarConfigHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req consultarRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSONShort)
			return
		}
		rows, err := d.Store.QueryRows(r.Context(), config.AbaConfigComissao, req.Contexto)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, api.FriendlyDBError(err))
			return
		}
		api.RespondWithPayload(w, true, "", rows)
	}
}

type atualizarLinhaRequest struct {
	Contexto map[string]string `json:"contexto"`
	Campo    string            `json:"campo"`
	Valor    interface{}       `json:"valor"`
}

// AtualizarLinhaHandler upserts one field of one rule row. Inline edits skip
// the batch machinery entirely.
func AtualizarLinhaHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req atualizarLinhaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSONShort)
			return
		}
		if req.Campo == "" || len(req.Contexto) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, "campo and contexto are required")
			return
		}
		if err := d.Engine.UpdateInline(r.Context(), req.Contexto, req.Campo, req.Valor); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, api.FriendlyDBError(err))
			return
		}
		d.Cache.DropSheet(config.AbaConfigComissao)
		api.RespondWithResult(w, true, "")
	}
}

// ValidarPEHandler checks whether the role shares of a rule context sum to
// exactly 100.00.
func ValidarPEHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req consultarRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSONShort)
			return
		}
		res, err := d.Engine.ValidatePE(r.Context(), req.Contexto)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, api.FriendlyDBError(err))
			return
		}
		api.RespondWithPayload(w, true, "", res)
	}
}

type opcoesContextoRequest struct {
	Escopo escopo.Scope `json:"escopo"`
}

// OpcoesContextoHandler returns the option lists of every context field of
// the commission rule sheet, each narrowed by the other fields' selections.
func OpcoesContextoHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req opcoesContextoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSONShort)
			return
		}

		opcoes := make(map[string][]string, len(config.ContextFields))
		for _, campo := range config.ContextFields {
			key := escopo.CacheKey(config.AbaConfigComissao, campo, req.Escopo)
			if vals, ok := d.Cache.Get(key); ok {
				opcoes[campo] = vals
				continue
			}
			vals, err := distinctValues(r, d, config.AbaConfigComissao, campo, req.Escopo)
			if err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, api.FriendlyDBError(err))
				return
			}
			d.Cache.Put(key, vals)
			opcoes[campo] = vals
		}
		api.RespondWithPayload(w, true, "", opcoes)
	}
}
