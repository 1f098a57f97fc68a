package regras

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"ComissoesCorpApp/internal/config"
	"ComissoesCorpApp/internal/escopo"
	"ComissoesCorpApp/internal/lote"
)

// Deps carries the shared state of the rule editor endpoints. The batch
// engine is bound to the commission rule sheet; the value cache and both
// registries are swept by the cron service. Store is the Backend interface
// rather than the Postgres type so handler tests can run against a fake.
type Deps struct {
	Store    lote.Backend
	Engine   *lote.Engine
	Sessions *lote.Manager
	Wizards  *lote.WizardManager
	Cache    *escopo.ValueCache
}

var deps *Deps

// SharedDeps exposes the editor state to the cron sweeper.
func SharedDeps() *Deps {
	return deps
}

func StartRegrasService(pool *pgxpool.Pool) {
	store := NewPostgresStore(pool)
	deps = &Deps{
		Store:    store,
		Engine:   lote.NewEngine(store, config.AbaConfigComissao),
		Sessions: lote.NewManager(config.SessionTimeout),
		Wizards:  lote.NewWizardManager(config.SessionTimeout),
		Cache:    escopo.NewValueCache(config.ValoresCacheTTL),
	}

	r := mux.NewRouter()

	r.HandleFunc("/regras/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Regras Service is active"))
	}).Methods("GET")

	r.HandleFunc("/regras/abas", ListAbasHandler(deps)).Methods("GET", "POST")
	r.HandleFunc("/regras/aba/{aba}/linhas", LerAbaHandler(deps)).Methods("POST")
	r.HandleFunc("/regras/aba/{aba}/valores-unicos", ValoresUnicosHandler(deps)).Methods("POST")

	r.HandleFunc("/regras/config-comissao/consultar", ConsultarConfigHandler(deps)).Methods("POST")
	r.HandleFunc("/regras/config-comissao/linha", AtualizarLinhaHandler(deps)).Methods("POST")
	r.HandleFunc("/regras/config-comissao/validar-pe", ValidarPEHandler(deps)).Methods("POST")
	r.HandleFunc("/regras/config-comissao/opcoes-contexto", OpcoesContextoHandler(deps)).Methods("POST")

	r.HandleFunc("/regras/lote", CriarLoteHandler(deps)).Methods("POST")
	r.HandleFunc("/regras/lote", ListarLotesHandler(deps)).Methods("GET")
	r.HandleFunc("/regras/lote/{id}", EstadoLoteHandler(deps)).Methods("GET")
	r.HandleFunc("/regras/lote/{id}/configurar", ConfigurarLoteHandler(deps)).Methods("POST")
	r.HandleFunc("/regras/lote/{id}/simular", SimularLoteHandler(deps)).Methods("POST")
	r.HandleFunc("/regras/lote/{id}/aplicar", AplicarLoteHandler(deps)).Methods("POST")
	r.HandleFunc("/regras/lote/{id}/cancelar", CancelarLoteHandler(deps)).Methods("POST")

	r.HandleFunc("/regras/assistente", AbrirAssistenteHandler(deps)).Methods("POST")
	r.HandleFunc("/regras/assistente/{id}", FecharAssistenteHandler(deps)).Methods("DELETE")
	r.HandleFunc("/regras/assistente/{id}/opcoes/{campo}", OpcoesAssistenteHandler(deps)).Methods("GET")
	r.HandleFunc("/regras/assistente/{id}/escopo", EscopoAssistenteHandler(deps)).Methods("POST")
	r.HandleFunc("/regras/assistente/{id}/campos", CamposAssistenteHandler(deps)).Methods("POST")
	r.HandleFunc("/regras/assistente/{id}/modo", ModoAssistenteHandler(deps)).Methods("POST")
	r.HandleFunc("/regras/assistente/{id}/avancar", AvancarAssistenteHandler(deps)).Methods("POST")
	r.HandleFunc("/regras/assistente/{id}/voltar", VoltarAssistenteHandler(deps)).Methods("POST")
	r.HandleFunc("/regras/assistente/{id}/preview", PreviewAssistenteHandler(deps)).Methods("POST")
	r.HandleFunc("/regras/assistente/{id}/confirmar", ConfirmarAssistenteHandler(deps)).Methods("POST")

	log.Println("Regras Service started on " + config.RegrasPort)
	err := http.ListenAndServe(config.RegrasPort, r)
	if err != nil {
		log.Fatalf("Regras service failed: %v", err)
	}
}
