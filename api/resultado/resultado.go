package resultado

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"ComissoesCorpApp/internal/config"
	"ComissoesCorpApp/internal/escopo"
)

// Deps carries the shared state of the result reader endpoints.
type Deps struct {
	Store *Store
	Cache *escopo.ValueCache
}

var deps *Deps

// SharedDeps exposes the reader state to the cron sweeper.
func SharedDeps() *Deps {
	return deps
}

func StartResultadoService(db *sql.DB) {
	deps = &Deps{
		Store: NewStore(db),
		Cache: escopo.NewValueCache(config.ValoresCacheTTL),
	}

	r := mux.NewRouter()

	r.HandleFunc("/resultado/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Resultado Service is active"))
	}).Methods("GET")

	r.HandleFunc("/resultado/abas", ListAbasHandler(deps)).Methods("GET", "POST")
	r.HandleFunc("/resultado/aba/{aba}/linhas", LerAbaHandler(deps)).Methods("GET", "POST")
	r.HandleFunc("/resultado/aba/{aba}/valores-unicos", ValoresUnicosHandler(deps)).Methods("POST")
	r.HandleFunc("/resultado/aba/{aba}/visao", VisaoHandler(deps)).Methods("GET", "POST")

	log.Println("Resultado Service started on " + config.ResultadoPort)
	err := http.ListenAndServe(config.ResultadoPort, r)
	if err != nil {
		log.Fatalf("Resultado service failed: %v", err)
	}
}
