package regras

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"ComissoesCorpApp/api"
	"ComissoesCorpApp/api/constants"
	"ComissoesCorpApp/internal/config"
	"ComissoesCorpApp/internal/lote"
)

type abrirAssistenteRequest struct {
	Aba string `json:"aba"`
}

// AbrirAssistenteHandler opens a bulk-edit wizard over a rule sheet, loading
// the sheet once as the option pool.
func AbrirAssistenteHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req abrirAssistenteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSONShort)
			return
		}
		if req.Aba == "" {
			req.Aba = config.AbaConfigComissao
		}
		wiz, err := d.Wizards.Open(r.Context(), d.Store, req.Aba)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, api.FriendlyDBError(err))
			return
		}
		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"wizard_id": wiz.ID,
			"aba":       wiz.Aba,
			"passo":     wiz.Step().String(),
			"colunas":   wiz.Columns(),
		})
	}
}

func assistente(d *Deps, w http.ResponseWriter, r *http.Request) (*lote.Wizard, bool) {
	id := mux.Vars(r)["id"]
	wiz, ok := d.Wizards.Get(id)
	if !ok {
		api.RespondWithError(w, http.StatusNotFound, constants.ErrWizardNotFound)
		return nil, false
	}
	return wiz, true
}

func wizardStatus(err error) int {
	switch {
	case errors.Is(err, lote.ErrWizardEncerrado):
		return http.StatusGone
	case errors.Is(err, lote.ErrPassoInvalido), errors.Is(err, lote.ErrPreviewPendente):
		return http.StatusConflict
	case errors.Is(err, lote.ErrModoInvalido), errors.Is(err, lote.ErrModoNaoDefinido),
		errors.Is(err, lote.ErrEscopoVazio), errors.Is(err, lote.ErrCamposVazios):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// OpcoesAssistenteHandler lists the selectable values of one scope field,
// narrowed by the other fields' current selections.
func OpcoesAssistenteHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wiz, ok := assistente(d, w, r)
		if !ok {
			return
		}
		campo := mux.Vars(r)["campo"]
		api.RespondWithPayload(w, true, "", wiz.OptionsFor(campo))
	}
}

type escopoAssistenteRequest struct {
	Campo   string   `json:"campo"`
	Valores []string `json:"valores"`
}

func EscopoAssistenteHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wiz, ok := assistente(d, w, r)
		if !ok {
			return
		}
		var req escopoAssistenteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSONShort)
			return
		}
		if err := wiz.SetScope(req.Campo, req.Valores); err != nil {
			api.RespondWithError(w, wizardStatus(err), err.Error())
			return
		}
		api.RespondWithResult(w, true, "")
	}
}

type camposAssistenteRequest struct {
	Campo string      `json:"campo"`
	Valor interface{} `json:"valor"`
}

func CamposAssistenteHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wiz, ok := assistente(d, w, r)
		if !ok {
			return
		}
		var req camposAssistenteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSONShort)
			return
		}
		if err := wiz.SetCampo(req.Campo, req.Valor); err != nil {
			api.RespondWithError(w, wizardStatus(err), err.Error())
			return
		}
		api.RespondWithResult(w, true, "")
	}
}

type modoAssistenteRequest struct {
	Modo string `json:"modo"`
}

func ModoAssistenteHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wiz, ok := assistente(d, w, r)
		if !ok {
			return
		}
		var req modoAssistenteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSONShort)
			return
		}
		if err := wiz.SetModo(lote.Modo(req.Modo)); err != nil {
			api.RespondWithError(w, wizardStatus(err), err.Error())
			return
		}
		api.RespondWithResult(w, true, "")
	}
}

func AvancarAssistenteHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wiz, ok := assistente(d, w, r)
		if !ok {
			return
		}
		passo, err := wiz.Next()
		if err != nil {
			api.RespondWithError(w, wizardStatus(err), err.Error())
			return
		}
		api.RespondWithPayload(w, true, "", map[string]string{"passo": passo.String()})
	}
}

func VoltarAssistenteHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wiz, ok := assistente(d, w, r)
		if !ok {
			return
		}
		passo, err := wiz.Back()
		if err != nil {
			api.RespondWithError(w, wizardStatus(err), err.Error())
			return
		}
		api.RespondWithPayload(w, true, "", map[string]string{"passo": passo.String()})
	}
}

// PreviewAssistenteHandler computes the read-only preview and advances to the
// final step. Nothing is written here.
func PreviewAssistenteHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wiz, ok := assistente(d, w, r)
		if !ok {
			return
		}
		preview, err := wiz.ComputePreview(r.Context())
		if err != nil {
			api.RespondWithError(w, wizardStatus(err), api.FriendlyDBError(err))
			return
		}
		api.RespondWithPayload(w, true, "", preview)
	}
}

// ConfirmarAssistenteHandler executes the previewed edit and evicts the
// sheet's cached option lists.
func ConfirmarAssistenteHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wiz, ok := assistente(d, w, r)
		if !ok {
			return
		}
		result, err := wiz.Confirm(r.Context())
		d.Cache.DropSheet(wiz.Aba)
		if err != nil {
			api.RespondWithError(w, wizardStatus(err), api.FriendlyDBError(err))
			return
		}
		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"linhas_afetadas": result.Affected,
		})
	}
}

func FecharAssistenteHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wiz, ok := assistente(d, w, r)
		if !ok {
			return
		}
		d.Wizards.Close(wiz.ID)
		api.RespondWithResult(w, true, "")
	}
}
