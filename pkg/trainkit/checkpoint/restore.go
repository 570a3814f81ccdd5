package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/randalmurphal/trainkit/pkg/trainkit/observability"
)

// Model is a trainable object whose weights can be exported and reloaded.
type Model interface {
	// StateDict returns the serialized weights.
	StateDict() ([]byte, error)

	// LoadStateDict replaces the weights with a previously exported state.
	LoadStateDict(state []byte) error
}

// Optimizer is an optimizer whose internal state (moments, step counts)
// can be exported and reloaded.
type Optimizer interface {
	StateDict() ([]byte, error)
	LoadStateDict(state []byte) error
}

// Architectured is implemented by models that name their architecture.
// Models that don't are named after their Go type.
type Architectured interface {
	Architecture() string
}

// Capture builds a Record from live objects. A nil optimizer yields empty
// optimizer state.
func Capture(model Model, optimizer Optimizer, epoch int) (Record, error) {
	if model == nil {
		return Record{}, errors.New("capture: model is required")
	}

	modelState, err := model.StateDict()
	if err != nil {
		return Record{}, fmt.Errorf("capture model state: %w", err)
	}

	var optimizerState []byte
	if optimizer != nil {
		optimizerState, err = optimizer.StateDict()
		if err != nil {
			return Record{}, fmt.Errorf("capture optimizer state: %w", err)
		}
	}

	return Record{
		Architecture:   architectureOf(model),
		Epoch:          epoch,
		ModelState:     modelState,
		OptimizerState: optimizerState,
	}, nil
}

// architectureOf names a model's architecture.
func architectureOf(model Model) string {
	if a, ok := model.(Architectured); ok {
		return a.Architecture()
	}
	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// SaveModel captures model and optimizer and saves them for epoch.
func (s *Store) SaveModel(ctx context.Context, model Model, optimizer Optimizer, epoch int) error {
	rec, err := Capture(model, optimizer, epoch)
	if err != nil {
		return err
	}
	return s.Save(ctx, rec)
}

// SaveModelOnInterval saves model and optimizer when epoch is a multiple of
// the configured interval and reports whether it did.
func (s *Store) SaveModelOnInterval(ctx context.Context, model Model, optimizer Optimizer, epoch int) (bool, error) {
	if epoch%s.interval != 0 {
		observability.LogCheckpointSkipped(s.logger, epoch, s.interval)
		return false, nil
	}
	rec, err := Capture(model, optimizer, epoch)
	if err != nil {
		return false, err
	}
	return s.SaveOnInterval(ctx, rec)
}

// Restore applies a loaded checkpoint to live objects. optimizer may be nil
// when only the weights are needed, e.g. for evaluation.
func Restore(loaded *Loaded, model Model, optimizer Optimizer) error {
	if loaded == nil {
		return errors.New("restore: nil checkpoint")
	}
	if model == nil {
		return errors.New("restore: model is required")
	}
	if err := model.LoadStateDict(loaded.ModelState); err != nil {
		return fmt.Errorf("restore model state: %w", err)
	}
	if optimizer != nil {
		if err := optimizer.LoadStateDict(loaded.OptimizerState); err != nil {
			return fmt.Errorf("restore optimizer state: %w", err)
		}
	}
	return nil
}
