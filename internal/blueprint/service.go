package blueprint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/export"
	"github.com/plannr/plannr/blueprint-go/internal/typeid"
)

var ErrInvalid = errors.New("invalid blueprint")

const (
	maxNameLength = 120
	// maxDimension bounds width and height in the blueprint's own unit.
	maxDimension = 10000
)

// Repository stores blueprint records. Both database backends implement it.
type Repository interface {
	Create(ctx context.Context, bp *document.Blueprint) error
	Get(ctx context.Context, id string) (*document.Blueprint, error)
	List(ctx context.Context) ([]document.Blueprint, error)
	SaveCanvas(ctx context.Context, id string, canvas json.RawMessage) (time.Time, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Name   string        `json:"name"`
	Width  float64       `json:"width"`
	Height float64       `json:"height"`
	Unit   document.Unit `json:"unit"`
	// Sample seeds the canvas with a demo layout.
	Sample bool `json:"sample"`
}

func (p *CreateParams) validate() error {
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalid)
	case len(p.Name) > maxNameLength:
		return fmt.Errorf("%w: name is too long", ErrInvalid)
	case p.Unit != "" && !p.Unit.Valid():
		return fmt.Errorf("%w: unit must be feet or inches", ErrInvalid)
	}
	if p.Sample {
		return nil
	}
	if p.Width <= 0 || p.Height <= 0 || p.Width > maxDimension || p.Height > maxDimension {
		return fmt.Errorf("%w: width and height must be between 0 and %d", ErrInvalid, maxDimension)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p CreateParams) (*document.Blueprint, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	id := typeid.NewBlueprintID()
	var bp *document.Blueprint
	if p.Sample {
		sample, err := document.NewSampleBlueprint(id)
		if err != nil {
			return nil, fmt.Errorf("build sample: %w", err)
		}
		sample.Name = p.Name
		bp = sample
	} else {
		bp = document.NewBlueprint(id, p.Name, p.Width, p.Height, p.Unit)
	}

	if err := s.repo.Create(ctx, bp); err != nil {
		return nil, fmt.Errorf("create blueprint: %w", err)
	}
	return bp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*document.Blueprint, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]document.Blueprint, error) {
	bps, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blueprints: %w", err)
	}
	if bps == nil {
		bps = []document.Blueprint{}
	}
	return bps, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// SaveCanvas validates a shape list and stores it in canonical form.
func (s *Service) SaveCanvas(ctx context.Context, id string, canvas json.RawMessage) (time.Time, error) {
	shapes, err := document.UnmarshalShapes(canvas)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	data, err := document.MarshalShapes(shapes)
	if err != nil {
		return time.Time{}, err
	}
	return s.repo.SaveCanvas(ctx, id, data)
}

// Persist matches the autosave hook signature.
func (s *Service) Persist(ctx context.Context, id string, canvas json.RawMessage) error {
	_, err := s.SaveCanvas(ctx, id, canvas)
	return err
}

func (s *Service) Export(ctx context.Context, w io.Writer, id string, format export.Format, opts export.Options) error {
	bp, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	return export.Render(w, bp, format, opts)
}
