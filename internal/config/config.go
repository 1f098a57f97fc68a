package config

import "time"

const (
	DefaultTimeZone = "America/Sao_Paulo"

	GatewayPort   = ":8081"
	RegrasPort    = ":7143"
	ResultadoPort = ":8143"

	// Sweep Configuration Constants
	SweepSchedule    = "*/1 * * * *" // Run every minute to expire caches and sessions
	ValoresCacheTTL  = 5 * time.Minute
	SessionTimeout   = 30 * time.Minute
	FetchAllPageSize = 500

	AbaConfigComissao = "CONFIG_COMISSAO"

	FieldTaxaRateio = "taxa_rateio_maximo_pct"
	FieldFatiaCargo = "fatia_cargo_pct"
	FieldCargo      = "cargo"
)

// ContextFields is the full context tuple identifying one commission rule row.
var ContextFields = []string{"linha", "grupo", "subgrupo", "tipo_mercadoria", "cargo"}

// ScopeFields are the fields a batch action may constrain (cargo is addressed
// per-share, not by the scope itself).
var ScopeFields = []string{"linha", "tipo_mercadoria", "grupo", "subgrupo"}

// AbasRegras are the editable rule sheets.
var AbasRegras = []string{"CONFIG_COMISSAO", "PESOS_METAS", "COLABORADORES_CARGOS", "METAS"}

// AbasResultado are the result sheets exposed to readers.
var AbasResultado = []string{
	"COMISSOES_CALCULADAS",
	"COMISSOES_RECEBIMENTO",
	"RECONCILIACAO",
	"RESUMO_COLABORADOR",
	"ESTADO",
	"MÉTRICAS_PROCESSOS",
}

// AbasOcultas are debug sheets kept out of the default listing.
var AbasOcultas = []string{
	"VALIDACAO",
	"DEBUG_RECEBIMENTOS_RAW",
	"DEBUG_ENV",
	"DEBUG_ANALISE_INFO",
	"DEBUG_ANALISE_SAMPLE",
}
