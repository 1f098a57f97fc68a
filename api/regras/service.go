package regras

import (
	"ComissoesCorpApp/internal/serviceiface"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RegrasService is a lightweight service wrapper for the rule editor endpoints
type RegrasService struct {
	cfg  map[string]interface{}
	pool *pgxpool.Pool
}

// NewRegrasService constructs a RegrasService and accepts a pgx pool instance.
func NewRegrasService(cfg map[string]interface{}, pool *pgxpool.Pool) serviceiface.Service {
	return &RegrasService{cfg: cfg, pool: pool}
}

func (s *RegrasService) Name() string {
	return "regras"
}

func (s *RegrasService) Start() error {
	go StartRegrasService(s.pool)
	return nil
}

func (s *RegrasService) Stop() error {
	// Implement stop logic if needed in the future
	return nil
}
