package lote

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"ComissoesCorpApp/internal/config"
)

// ActionKind selects the batch mutation mode.
type ActionKind string

const (
	// AcaoTaxaUniforme writes one uniform maximum split rate to every rule
	// row inside the scope.
	AcaoTaxaUniforme ActionKind = "taxa_uniforme"
	// AcaoFatiasPorCargo distributes per-role commission shares; the shares
	// of the entered roles must sum to exactly 100.00%.
	AcaoFatiasPorCargo ActionKind = "fatias_por_cargo"
)

var (
	ErrSomaFatias   = errors.New("role shares must sum to exactly 100.00")
	ErrSemFatias    = errors.New("at least one role share is required")
	ErrAcaoInvalida = errors.New("unknown batch action kind")
)

// BatchAction is one configured batch mutation. Percentages are carried as
// decimals end to end; float arithmetic never touches the 100.00 check.
type BatchAction struct {
	Kind   ActionKind
	Field  string
	Valor  decimal.Decimal
	Fatias map[string]decimal.Decimal
}

// NewTaxaAction builds a uniform-rate action.
func NewTaxaAction(valor decimal.Decimal) BatchAction {
	return BatchAction{
		Kind:  AcaoTaxaUniforme,
		Field: config.FieldTaxaRateio,
		Valor: valor,
	}
}

// NewFatiasAction builds a per-role share action from already-parsed shares.
func NewFatiasAction(fatias map[string]decimal.Decimal) BatchAction {
	return BatchAction{
		Kind:   AcaoFatiasPorCargo,
		Field:  config.FieldFatiaCargo,
		Fatias: fatias,
	}
}

// ParseFatias converts the raw role->percentage form values into decimal
// shares. A role left empty is excluded from the batch entirely; a role with
// an unparsable value is an input error, not an exclusion.
func ParseFatias(raw map[string]string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(raw))
	for cargo, val := range raw {
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		d, err := decimal.NewFromString(val)
		if err != nil {
			return nil, fmt.Errorf("invalid share for role %q: %w", cargo, err)
		}
		out[cargo] = d
	}
	return out, nil
}

// Cargos returns the roles carrying a share, sorted for deterministic
// per-role request order.
func (a BatchAction) Cargos() []string {
	out := make([]string, 0, len(a.Fatias))
	for c := range a.Fatias {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Validate checks the action before any request is issued. For the per-role
// mode the entered shares must sum, rounded to two places, to exactly 100.00.
func (a BatchAction) Validate() error {
	switch a.Kind {
	case AcaoTaxaUniforme:
		return nil
	case AcaoFatiasPorCargo:
		if len(a.Fatias) == 0 {
			return ErrSemFatias
		}
		sum := decimal.Zero
		for _, d := range a.Fatias {
			sum = sum.Add(d)
		}
		if !sum.Round(2).Equal(decimal.NewFromInt(100)) {
			return fmt.Errorf("%w (got %s)", ErrSomaFatias, sum.Round(2).StringFixed(2))
		}
		return nil
	default:
		return ErrAcaoInvalida
	}
}
