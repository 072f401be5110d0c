package gnn

import (
	"context"
	"math/rand"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gonum.org/v1/gonum/floats"

	"github.com/attractor-ml/l96tune/internal/checkpoint"
	"github.com/attractor-ml/l96tune/internal/dataset"
)

// Reporter receives the intermediate validation loss after each evaluation.
// Returning prune=true stops training early.
type Reporter interface {
	Report(ctx context.Context, step int64, value float64) (prune bool, err error)
}

// Result summarizes a finished (or pruned) training run.
type Result struct {
	FinalMetrics map[string]float64
	Epochs       int
	Pruned       bool
}

type trainState struct {
	Epoch  int       `json:"epoch"`
	Params []float64 `json:"params"`
}

// TrainAndEvaluate trains a model on the bundle's train split, evaluating and
// checkpointing on the configured cadences. Checkpoints under workdir allow an
// interrupted run to resume from its last saved epoch.
func TrainAndEvaluate(ctx context.Context, cfg *Config, bundle *dataset.Bundle, workdir string, fs afero.Fs, reporter Reporter) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid training config")
	}
	if cfg.OutputHorizon > bundle.Config.OutputSteps {
		return nil, errors.Errorf("output horizon %d exceeds target window %d", cfg.OutputHorizon, bundle.Config.OutputSteps)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	model, err := NewModel(cfg, bundle.Topology, rng)
	if err != nil {
		return nil, err
	}
	opt, err := newOptimizer(cfg, len(model.Params()))
	if err != nil {
		return nil, err
	}
	store, err := checkpoint.NewStore(fs, workdir, cfg.MaxCheckpoints)
	if err != nil {
		return nil, err
	}

	startEpoch := 0
	var restored trainState
	if epoch, ok, err := store.Latest(&restored); err != nil {
		return nil, err
	} else if ok {
		if !model.SetParams(restored.Params) {
			return nil, errors.Errorf("checkpoint at epoch %d does not match model size", epoch)
		}
		startEpoch = epoch
		log.Printf("resuming training from epoch %d", epoch)
	}

	train := bundle.Splits[dataset.SplitTrain].Samples
	accum := make([]float64, len(model.Params()))
	trainLoss := &average{}

	result := &Result{}
	for epoch := startEpoch + 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		trainLoss.reset()
		for _, sample := range train {
			loss := trainStep(model, opt, accum, sample, cfg, rng)
			trainLoss.add(loss)
		}
		result.Epochs = epoch

		if epoch%cfg.LogEvery == 0 {
			log.Printf("epoch %d train loss %.6f", epoch, trainLoss.value())
		}

		if epoch%cfg.EvalEvery == 0 || epoch == cfg.Epochs {
			valLoss := evaluate(model, bundle.Splits[dataset.SplitVal].Samples, cfg.OutputHorizon)
			if reporter != nil {
				prune, err := reporter.Report(ctx, int64(epoch), valLoss)
				if err != nil {
					return nil, errors.Wrap(err, "failed to report intermediate value")
				}
				if prune {
					result.Pruned = true
					break
				}
			}
		}

		if epoch%cfg.CheckpointEvery == 0 || epoch == cfg.Epochs {
			state := &trainState{Epoch: epoch, Params: model.Params()}
			if err := store.Save(epoch, state); err != nil {
				return nil, err
			}
		}
	}

	result.FinalMetrics = map[string]float64{
		"train_mse": evaluate(model, bundle.Splits[dataset.SplitTrain].Samples, cfg.OutputHorizon),
		"val_mse":   evaluate(model, bundle.Splits[dataset.SplitVal].Samples, cfg.OutputHorizon),
		"test_mse":  evaluate(model, bundle.Splits[dataset.SplitTest].Samples, cfg.OutputHorizon),
	}
	return result, nil
}

// trainStep runs a teacher-forced rollout over the output horizon and applies
// one optimizer step with the averaged gradients.
func trainStep(model *Model, opt Optimizer, accum []float64, sample dataset.Sample, cfg *Config, rng *rand.Rand) float64 {
	for i := range accum {
		accum[i] = 0
	}
	var lossSum float64
	for t := 0; t < cfg.OutputHorizon; t++ {
		input := rolloutInput(sample, t)
		cache := model.Forward(input, cfg.DropoutRate, rng)
		lossSum += Loss(cache.outputs, sample.Targets[t].Nodes)
		model.Backward(cache, sample.Targets[t].Nodes)
		floats.Add(accum, model.Grads())
	}
	horizon := float64(cfg.OutputHorizon)
	floats.Scale(1/horizon, accum)
	opt.Step(model.Params(), accum)
	return lossSum / horizon
}

func evaluate(model *Model, samples []dataset.Sample, horizon int) float64 {
	loss := &average{}
	for _, sample := range samples {
		for t := 0; t < horizon; t++ {
			cache := model.Forward(rolloutInput(sample, t), 0, nil)
			loss.add(Loss(cache.outputs, sample.Targets[t].Nodes))
		}
	}
	return loss.value()
}

// rolloutInput feeds the last observed input at the first horizon step and
// the previous target afterwards.
func rolloutInput(sample dataset.Sample, t int) dataset.Graph {
	if t == 0 {
		return sample.Inputs[len(sample.Inputs)-1]
	}
	return sample.Targets[t-1]
}
