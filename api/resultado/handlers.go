package resultado

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"ComissoesCorpApp/api"
	"ComissoesCorpApp/api/constants"
	"ComissoesCorpApp/api/utils"
	"ComissoesCorpApp/internal/agrupamento"
	"ComissoesCorpApp/internal/config"
	"ComissoesCorpApp/internal/escopo"
)

// ListAbasHandler lists the visible result sheets. Debug sheets stay
// reachable by direct name but are only listed when ?ocultas=1 is passed.
func ListAbasHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		abas := append([]string(nil), config.AbasResultado...)
		if r.URL.Query().Get("ocultas") == "1" {
			abas = append(abas, config.AbasOcultas...)
		}
		api.RespondWithPayload(w, true, "", abas)
	}
}

// reserved query parameters of the row listing; everything else is treated
// as a column filter.
var reservedParams = map[string]bool{
	"page": true, "limit": true, "ordenar_por": true, "direcao": true,
}

// LerAbaHandler returns one page of a result sheet. Filters come from the
// query string: any non-reserved parameter filters its column, repeated or
// '|'-separated values match as OR.
func LerAbaHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		aba := mux.Vars(r)["aba"]

		params, err := utils.ExtractPagination(r)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		filters := make(map[string][]string)
		for key, vals := range r.URL.Query() {
			if reservedParams[key] {
				continue
			}
			for _, v := range vals {
				for _, part := range strings.Split(v, "|") {
					if part != "" {
						filters[key] = append(filters[key], part)
					}
				}
			}
		}

		records, total, err := d.Store.Read(aba, readOptions{
			Limit:   params.Limit,
			Offset:  params.Offset,
			Sort:    r.URL.Query().Get("ordenar_por"),
			Dir:     r.URL.Query().Get("direcao"),
			Filters: filters,
		})
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrAbaDesconhecida) {
				status = http.StatusNotFound
			}
			api.RespondWithError(w, status, api.FriendlyDBError(err))
			return
		}
		params.SetPaginationStats(total)
		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"linhas":    records,
			"paginacao": params,
		})
	}
}

type valoresUnicosRequest struct {
	Coluna string       `json:"coluna"`
	Escopo escopo.Scope `json:"escopo"`
}

// ValoresUnicosHandler lists the distinct values of a column of a result
// sheet, optionally narrowed by a scope on the other columns.
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

		var vals []string
		var err error
		if req.Escopo.Constrained() {
			records, rerr := d.Store.ReadAll(aba)
			if rerr != nil {
				err = rerr
			} else {
				vals = escopo.UniqueValues(records, req.Coluna, req.Escopo)
			}
		} else {
			vals, err = d.Store.DistinctValues(aba, req.Coluna)
		}
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrAbaDesconhecida) {
				status = http.StatusNotFound
			}
			api.RespondWithError(w, status, api.FriendlyDBError(err))
			return
		}
		if vals == nil {
			vals = []string{}
		}
		d.Cache.Put(key, vals)
		api.RespondWithPayload(w, true, "", vals)
	}
}

// VisaoHandler returns the aggregated tree of a result sheet. The grouping
// strategy is fixed per sheet; rollups are recomputed here, never read from
// the stored rows.
func VisaoHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		aba := mux.Vars(r)["aba"]

		strat, ok := agrupamento.StrategyFor(aba)
		if !ok {
			api.RespondWithError(w, http.StatusBadRequest, "no aggregated view for sheet "+aba)
			return
		}

		rows, err := d.Store.ReadAll(aba)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrAbaDesconhecida) {
				status = http.StatusNotFound
			}
			api.RespondWithError(w, status, api.FriendlyDBError(err))
			return
		}

		var grupos []*agrupamento.GroupNode
		switch strat.Kind {
		case agrupamento.ByReconciliationSummary:
			grupos = agrupamento.AggregateReconciliacao(rows)
		case agrupamento.ByProcessMetrics:
			grupos = agrupamento.FoldMetrics(rows)
		default:
			grupos = agrupamento.Aggregate(rows, strat.Spec)
		}

		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"visao":  strat.Kind,
			"grupos": grupos,
		})
	}
}
