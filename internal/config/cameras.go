package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
)

const cameraTypePull = "pull"

type rawCamera struct {
	ID             string           `mapstructure:"id"`
	Type           string           `mapstructure:"type"`
	URL            string           `mapstructure:"url"`
	Kuma           map[string]any   `mapstructure:"kuma"`
	Storage        []map[string]any `mapstructure:"storage"`
	PostProcessors []map[string]any `mapstructure:"postprocessors"`
	Triggers       []map[string]any `mapstructure:"triggers"`
}

func decodeCameras(raw []map[string]any) ([]models.Camera, error) {
	const op = "config.decodeCameras"

	cameras := make([]models.Camera, 0, len(raw))
	for i, r := range raw {
		cam, err := decodeCamera(r)
		if err != nil {
			return nil, fmt.Errorf("%s: camera %d: %w", op, i, err)
		}

		cameras = append(cameras, cam)
	}

	return cameras, nil
}

func decodeCamera(raw map[string]any) (models.Camera, error) {
	var rc rawCamera
	if err := decode(raw, &rc, false); err != nil {
		return models.Camera{}, err
	}

	if rc.Type != "" && rc.Type != cameraTypePull {
		return models.Camera{}, fmt.Errorf("unsupported camera type %q", rc.Type)
	}

	cam := models.Camera{
		ID:  rc.ID,
		URL: rc.URL,
	}

	if rc.Kuma != nil {
		kuma := &models.Kuma{FailureThreshold: 3}
		if err := decode(rc.Kuma, kuma, true); err != nil {
			return models.Camera{}, fmt.Errorf("kuma: %w", err)
		}
		cam.Kuma = kuma
	}

	for i, s := range rc.Storage {
		st, err := decodeStorage(s)
		if err != nil {
			return models.Camera{}, fmt.Errorf("storage %d: %w", i, err)
		}
		cam.Storage = append(cam.Storage, st)
	}

	for i, p := range rc.PostProcessors {
		pp, err := decodePostProcessor(p)
		if err != nil {
			return models.Camera{}, fmt.Errorf("postprocessor %d: %w", i, err)
		}
		cam.PostProcessors = append(cam.PostProcessors, pp)
	}

	for i, t := range rc.Triggers {
		trig, err := decodeTrigger(t)
		if err != nil {
			return models.Camera{}, fmt.Errorf("trigger %d: %w", i, err)
		}
		cam.Triggers = append(cam.Triggers, trig)
	}

	return cam, nil
}

func decodeStorage(raw map[string]any) (models.Storage, error) {
	kind := models.StorageKind(kindOf(raw))

	switch kind {
	case models.StorageSingleImage:
		st := &models.SingleImageStorage{}
		if err := decode(raw, st, true); err != nil {
			return models.Storage{}, err
		}
		return models.Storage{Kind: kind, SingleImage: st}, nil
	case models.StorageVideoSnippet:
		st := &models.VideoSnippetStorage{
			BatchSize: 100,
			FPS:       10,
			CRF:       23,
			Preset:    "medium",
			Container: "mp4",
		}
		if err := decode(raw, st, true); err != nil {
			return models.Storage{}, err
		}
		return models.Storage{Kind: kind, VideoSnippet: st}, nil
	case models.StorageLive:
		st := &models.LiveStorage{Buffer: 4}
		if err := decode(raw, st, true); err != nil {
			return models.Storage{}, err
		}
		return models.Storage{Kind: kind, Live: st}, nil
	}

	return models.Storage{}, fmt.Errorf("%w: %q", errs.ErrUnknownStorage, kind)
}

func decodePostProcessor(raw map[string]any) (models.PostProcessor, error) {
	kind := models.PostProcessorKind(kindOf(raw))

	switch kind {
	case models.ProcessorIdentity:
		return models.PostProcessor{Kind: kind}, nil
	case models.ProcessorRotate:
		pp := &models.Rotate{Expand: true}
		if err := decode(raw, pp, true); err != nil {
			return models.PostProcessor{}, err
		}
		return models.PostProcessor{Kind: kind, Rotate: pp}, nil
	case models.ProcessorDateTimeStamp:
		pp := &models.DateTimeStamp{
			Format:   "2006-01-02 15:04:05",
			Position: []int{10, 10},
			Color:    "#FFFFFF",
			FontSize: 20,
		}
		if err := decode(raw, pp, true); err != nil {
			return models.PostProcessor{}, err
		}
		return models.PostProcessor{Kind: kind, DateTimeStamp: pp}, nil
	}

	return models.PostProcessor{}, fmt.Errorf("%w: %q", errs.ErrUnknownProcessor, kind)
}

func decodeTrigger(raw map[string]any) (models.Trigger, error) {
	kind := models.TriggerKind(kindOf(raw))

	switch kind {
	case models.TriggerInterval:
		t := &models.IntervalTrigger{}
		if err := decode(raw, t, true); err != nil {
			return models.Trigger{}, err
		}
		if (t.StartTime == "") != (t.EndTime == "") {
			return models.Trigger{}, fmt.Errorf("%w: start_time and end_time go together", errs.ErrInvalidTimeWindow)
		}
		return models.Trigger{Kind: kind, Interval: t}, nil
	case models.TriggerCron:
		t := &models.CronTrigger{}
		if err := decode(raw, t, true); err != nil {
			return models.Trigger{}, err
		}
		return models.Trigger{Kind: kind, Cron: t}, nil
	}

	return models.Trigger{}, fmt.Errorf("%w: %q", errs.ErrUnknownTrigger, kind)
}

func kindOf(raw map[string]any) string {
	kind, _ := raw["type"].(string)

	return kind
}

// decode maps raw onto out, leaving fields absent from raw at their current values.
func decode(raw map[string]any, out any, dropType bool) error {
	fields := raw
	if dropType {
		fields = make(map[string]any, len(raw))
		for k, v := range raw {
			if k != "type" {
				fields[k] = v
			}
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}

	return dec.Decode(fields)
}
