package regras

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"ComissoesCorpApp/api"
	"ComissoesCorpApp/api/constants"
	"ComissoesCorpApp/internal/config"
	"ComissoesCorpApp/internal/escopo"
	"ComissoesCorpApp/internal/lote"
)

type lerAbaRequest struct {
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
	Ordenar  string            `json:"ordenar_por"`
	Direcao  string            `json:"direcao"`
	Filtros  map[string]string `json:"filtros"`
	Completa bool              `json:"completa"`
}

// ListAbasHandler lists the editable rule sheets.
func ListAbasHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.RespondWithPayload(w, true, "", config.AbasRegras)
	}
}

// LerAbaHandler returns one page of a rule sheet with its column set.
func LerAbaHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		aba := mux.Vars(r)["aba"]
		var req lerAbaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSONShort)
			return
		}
		page, err := d.Store.FetchSheetRows(r.Context(), aba, lote.FetchOptions{
			Page:      req.Page,
			PageSize:  req.Limit,
			SortField: req.Ordenar,
			SortDir:   req.Direcao,
			Filters:   req.Filtros,
			AllPages:  req.Completa,
		})
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, api.FriendlyDBError(err))
			return
		}
		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"linhas":  page.Rows,
			"total":   page.Total,
			"colunas": page.Columns,
		})
	}
}

type valoresUnicosRequest struct {
	Coluna string       `json:"coluna"`
	Escopo escopo.Scope `json:"escopo"`
}

// ValoresUnicosHandler lists the distinct values of a column, narrowed by the
// caller's scope selections on the other fields. Results are cached per
// sheet, column and canonical scope; a mutation on the sheet evicts them.
func ValoresUnicosHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		aba := mux.Vars(r)["aba"]
		var req valoresUnicosRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSONShort)
			return
		}
		if req.Coluna == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrColunaRequired)
			return
		}

		key := escopo.CacheKey(aba, req.Coluna, req.Escopo)
		if vals, ok := d.Cache.Get(key); ok {
			api.RespondWithPayload(w, true, "", vals)
			return
		}

		vals, err := distinctValues(r, d, aba, req.Coluna, req.Escopo)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, api.FriendlyDBError(err))
			return
		}
		d.Cache.Put(key, vals)
		api.RespondWithPayload(w, true, "", vals)
	}
}

// distinctValues answers an option lookup. An unconstrained lookup is a
// single distinct query; a narrowed one loads the sheet and filters by every
// field except the requested one.
func distinctValues(r *http.Request, d *Deps, aba, coluna string, scope escopo.Scope) ([]string, error) {
	if !scope.Constrained() {
		vals, err := d.Store.FetchDistinctValues(r.Context(), aba, coluna)
		if err != nil {
			return nil, err
		}
		if vals == nil {
			vals = []string{}
		}
		return vals, nil
	}
	page, err := d.Store.FetchSheetRows(r.Context(), aba, lote.FetchOptions{AllPages: true})
	if err != nil {
		return nil, err
	}
	vals := escopo.UniqueValues(page.Rows, coluna, scope)
	if vals == nil {
		vals = []string{}
	}
	return vals, nil
}
