package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed draft.cue
var draftSchemaSrc string

// ErrInvalidDraft is wrapped by every draft validation failure.
var ErrInvalidDraft = errors.New("invalid draft")

// Draft is the user input for a new record.
type Draft struct {
	Name        string  `json:"name" yaml:"name"`
	Category    string  `json:"category" yaml:"category"`
	Description string  `json:"description" yaml:"description"`
	Value       float64 `json:"value" yaml:"value"`
}

// Normalize trims surrounding whitespace and converts text to NFC.
func (d Draft) Normalize() Draft {
	clean := func(s string) string { return norm.NFC.String(strings.TrimSpace(s)) }
	return Draft{
		Name:        clean(d.Name),
		Category:    clean(d.Category),
		Description: clean(d.Description),
		Value:       d.Value,
	}
}

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaVal  cue.Value
	schemaErr  error
)

func draftSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(draftSchemaSrc, cue.Filename("draft.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile draft schema: %w", err)
			return
		}
		schemaVal = v.LookupPath(cue.ParsePath("#Draft"))
	})
	return schemaCtx, schemaVal, schemaErr
}

// ValidateDraft checks d against the draft schema.
func ValidateDraft(d Draft) error {
	if math.IsNaN(d.Value) || math.IsInf(d.Value, 0) {
		return fmt.Errorf("%w: value must be a finite number", ErrInvalidDraft)
	}

	ctx, schema, err := draftSchema()
	if err != nil {
		return err
	}
	// cue.Context is not safe for concurrent use.
	schemaMu.Lock()
	defer schemaMu.Unlock()

	v := schema.Unify(ctx.Encode(d))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDraft, strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}

var schemaMu sync.Mutex

// ParseDrafts reads a YAML list of drafts.
func ParseDrafts(r io.Reader) ([]Draft, error) {
	var drafts []Draft
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&drafts); err != nil {
		if errors.Is(err, io.EOF) {
			return []Draft{}, nil
		}
		return nil, fmt.Errorf("parse drafts: %w", err)
	}
	return drafts, nil
}
