package resultado

import (
	"database/sql"

	"ComissoesCorpApp/internal/serviceiface"
)

// ResultadoService is a lightweight service wrapper for the result reader endpoints
type ResultadoService struct {
	cfg map[string]interface{}
	db  *sql.DB
}

// NewResultadoService constructs a ResultadoService and accepts a sql.DB instance.
func NewResultadoService(cfg map[string]interface{}, db *sql.DB) serviceiface.Service {
	return &ResultadoService{cfg: cfg, db: db}
}

func (s *ResultadoService) Name() string {
	return "resultado"
}

func (s *ResultadoService) Start() error {
	go StartResultadoService(s.db)
	return nil
}

func (s *ResultadoService) Stop() error {
	// Implement stop logic if needed in the future
	return nil
}
