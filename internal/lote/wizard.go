package lote

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ComissoesCorpApp/internal/escopo"
	"ComissoesCorpApp/internal/sheet"
)

// Step is one screen of the bulk-edit wizard. Navigation is strictly linear.
type Step int

const (
	StepEscopo Step = iota
	StepCampos
	StepModo
	StepPreview
)

func (s Step) String() string {
	switch s {
	case StepEscopo:
		return "escopo"
	case StepCampos:
		return "campos"
	case StepModo:
		return "modo"
	case StepPreview:
		return "preview"
	}
	return "desconhecido"
}

// Modo selects what the wizard does on confirm.
type Modo string

const (
	ModoCriar     Modo = "criar"
	ModoAtualizar Modo = "atualizar"
)

var (
	ErrPassoInvalido    = errors.New("operation not allowed on the current wizard step")
	ErrModoInvalido     = errors.New("mode must be criar or atualizar")
	ErrModoNaoDefinido  = errors.New("a mode must be chosen before previewing")
	ErrWizardEncerrado  = errors.New("wizard has been closed")
	ErrPreviewPendente  = errors.New("confirm requires a computed preview")
	ErrEscopoVazio      = errors.New("creating rows requires at least one constrained scope field")
	ErrCamposVazios     = errors.New("at least one field value is required")
)

// WizardPreview is the read-only projection shown on the final step.
type WizardPreview struct {
	Rows  []sheet.Record `json:"linhas"`
	Total int            `json:"total_afetadas"`
	Modo  Modo           `json:"modo"`
}

// Wizard drives one guided bulk edit over a rule sheet. The full sheet is
// loaded once at open so scope options narrow against a stable pool; the
// preview step never mutates, and only an explicit confirm writes.
type Wizard struct {
	ID  string
	Aba string

	backend Backend

	mu        sync.Mutex
	step      Step
	scope     escopo.Scope
	campos    map[string]interface{}
	modo      Modo
	pool      []sheet.Record
	colunas   []string
	preview   *WizardPreview
	gen       int
	closed    bool
	updatedAt time.Time
}

// NewWizard opens a wizard over a sheet, loading the whole sheet as the
// option pool.
func NewWizard(ctx context.Context, backend Backend, aba string) (*Wizard, error) {
	page, err := backend.FetchSheetRows(ctx, aba, FetchOptions{AllPages: true})
	if err != nil {
		return nil, err
	}
	return &Wizard{
		ID:        uuid.NewString(),
		Aba:       aba,
		backend:   backend,
		step:      StepEscopo,
		scope:     escopo.Scope{},
		campos:    make(map[string]interface{}),
		pool:      page.Rows,
		colunas:   page.Columns,
		updatedAt: time.Now(),
	}, nil
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Columns() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.colunas...)
}

// Next advances one step. Entering the preview step goes through
// ComputePreview instead so a preview is always fresh.
func (w *Wizard) Next() (Step, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.step, ErrWizardEncerrado
	}
	if w.step >= StepModo {
		return w.step, ErrPassoInvalido
	}
	w.step++
	w.updatedAt = time.Now()
	return w.step, nil
}

// Back returns one step. Leaving the preview step invalidates the preview.
func (w *Wizard) Back() (Step, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.step, ErrWizardEncerrado
	}
	if w.step <= StepEscopo {
		return w.step, ErrPassoInvalido
	}
	if w.step == StepPreview {
		w.preview = nil
		w.gen++
	}
	w.step--
	w.updatedAt = time.Now()
	return w.step, nil
}

// SetScope binds the selected values of one scope field. An empty selection
// removes the constraint. Any computed preview is invalidated.
func (w *Wizard) SetScope(field string, values []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWizardEncerrado
	}
	if len(values) == 0 {
		delete(w.scope, field)
	} else {
		w.scope[field] = append([]string(nil), values...)
	}
	w.invalidateLocked()
	return nil
}

// SetCampo binds one field value to write. An empty value removes it.
func (w *Wizard) SetCampo(field string, value interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWizardEncerrado
	}
	if value == nil || sheet.Str(value) == "" {
		delete(w.campos, field)
	} else {
		w.campos[field] = value
	}
	w.invalidateLocked()
	return nil
}

func (w *Wizard) SetModo(modo Modo) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWizardEncerrado
	}
	if modo != ModoCriar && modo != ModoAtualizar {
		return ErrModoInvalido
	}
	w.modo = modo
	w.invalidateLocked()
	return nil
}

func (w *Wizard) invalidateLocked() {
	w.preview = nil
	if w.step == StepPreview {
		w.step = StepModo
	}
	w.gen++
	w.updatedAt = time.Now()
}

// OptionsFor lists the selectable values of a scope field, narrowed by every
// other field's current selection. The field's own selection never narrows
// its own options, so a chosen value can always be unchosen.
func (w *Wizard) OptionsFor(field string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return escopo.UniqueValues(w.pool, field, w.scope)
}

// ComputePreview computes the read-only preview and advances to the preview
// step. Update mode asks the backend for a dry run of the scoped write;
// create mode composes the would-be rows locally from the scope selections
// and field values. A preview that finishes after the wizard moved on is
// dropped.
func (w *Wizard) ComputePreview(ctx context.Context) (*WizardPreview, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, ErrWizardEncerrado
	}
	if w.step != StepModo && w.step != StepPreview {
		w.mu.Unlock()
		return nil, ErrPassoInvalido
	}
	if w.modo == "" {
		w.mu.Unlock()
		return nil, ErrModoNaoDefinido
	}
	if len(w.campos) == 0 {
		w.mu.Unlock()
		return nil, ErrCamposVazios
	}
	gen := w.gen
	modo := w.modo
	scope := cloneScope(w.scope)
	campos := cloneCampos(w.campos)
	w.mu.Unlock()

	var preview *WizardPreview
	switch modo {
	case ModoAtualizar:
		res, err := w.backend.MutateScoped(ctx, w.Aba, scope, campos, true)
		if err != nil {
			return nil, err
		}
		preview = &WizardPreview{Rows: res.Preview, Total: res.Affected, Modo: modo}
	case ModoCriar:
		rows, err := composeRows(scope, campos)
		if err != nil {
			return nil, err
		}
		preview = &WizardPreview{Rows: rows, Total: len(rows), Modo: modo}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || gen != w.gen {
		return nil, ErrWizardEncerrado
	}
	w.preview = preview
	w.step = StepPreview
	w.updatedAt = time.Now()
	return preview, nil
}

// Confirm executes the previewed edit. Update mode issues one scoped write;
// create mode upserts each composed row by its context tuple.
func (w *Wizard) Confirm(ctx context.Context) (MutationResult, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return MutationResult{}, ErrWizardEncerrado
	}
	if w.step != StepPreview || w.preview == nil {
		w.mu.Unlock()
		return MutationResult{}, ErrPreviewPendente
	}
	modo := w.modo
	scope := cloneScope(w.scope)
	campos := cloneCampos(w.campos)
	preview := w.preview
	w.mu.Unlock()

	switch modo {
	case ModoAtualizar:
		return w.backend.MutateScoped(ctx, w.Aba, scope, campos, false)
	case ModoCriar:
		applied := 0
		for _, row := range preview.Rows {
			contexto := make(map[string]string)
			for field := range scope {
				contexto[field] = sheet.Str(row[field])
			}
			if err := w.backend.MutateRow(ctx, w.Aba, contexto, campos); err != nil {
				return MutationResult{Affected: applied}, err
			}
			applied++
		}
		return MutationResult{Affected: applied}, nil
	}
	return MutationResult{}, ErrModoInvalido
}

// Close ends the wizard. Any in-flight preview is dropped on arrival.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.preview = nil
	w.gen++
	w.updatedAt = time.Now()
}

// composeRows expands the scope selections into their cartesian product and
// overlays the field values, yielding the rows create mode would insert.
func composeRows(scope escopo.Scope, campos map[string]interface{}) ([]sheet.Record, error) {
	fields := make([]string, 0, len(scope))
	for f, vals := range scope {
		if len(vals) > 0 {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return nil, ErrEscopoVazio
	}
	sort.Strings(fields)

	rows := []sheet.Record{{}}
	for _, field := range fields {
		next := make([]sheet.Record, 0, len(rows)*len(scope[field]))
		for _, base := range rows {
			for _, val := range scope[field] {
				row := sheet.Clone(base)
				row[field] = val
				next = append(next, row)
			}
		}
		rows = next
	}
	for _, row := range rows {
		for field, val := range campos {
			row[field] = val
		}
	}
	return rows, nil
}

func cloneScope(scope escopo.Scope) escopo.Scope {
	out := make(escopo.Scope, len(scope))
	for f, vals := range scope {
		out[f] = append([]string(nil), vals...)
	}
	return out
}

func cloneCampos(campos map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(campos))
	for f, v := range campos {
		out[f] = v
	}
	return out
}

// WizardManager is the in-memory wizard registry, swept on the same schedule
// as batch sessions.
type WizardManager struct {
	mu      sync.Mutex
	wizards map[string]*Wizard
	timeout time.Duration
}

func NewWizardManager(timeout time.Duration) *WizardManager {
	return &WizardManager{
		wizards: make(map[string]*Wizard),
		timeout: timeout,
	}
}

func (m *WizardManager) Open(ctx context.Context, backend Backend, aba string) (*Wizard, error) {
	w, err := NewWizard(ctx, backend, aba)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.wizards[w.ID] = w
	m.mu.Unlock()
	return w, nil
}

func (m *WizardManager) Get(id string) (*Wizard, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wizards[id]
	return w, ok
}

func (m *WizardManager) Close(id string) {
	m.mu.Lock()
	w, ok := m.wizards[id]
	if ok {
		delete(m.wizards, id)
	}
	m.mu.Unlock()
	if ok {
		w.Close()
	}
}

// Sweep closes and drops wizards idle past the timeout.
func (m *WizardManager) Sweep() int {
	m.mu.Lock()
	var stale []*Wizard
	for id, w := range m.wizards {
		w.mu.Lock()
		idle := time.Since(w.updatedAt) > m.timeout
		w.mu.Unlock()
		if idle {
			delete(m.wizards, id)
			stale = append(stale, w)
		}
	}
	m.mu.Unlock()
	for _, w := range stale {
		w.Close()
	}
	return len(stale)
}

func (m *WizardManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.wizards)
}
