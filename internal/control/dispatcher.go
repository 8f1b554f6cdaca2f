package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/e7canasta/orion-playout/modules/channel"
	"github.com/e7canasta/orion-playout/modules/frame"
	"github.com/e7canasta/orion-playout/modules/producer"
	"github.com/e7canasta/orion-playout/modules/stage"
)

var (
	// ErrUnknownCommand is returned for unsupported command names.
	ErrUnknownCommand = errors.New("control: unknown command")

	// ErrChannelNotFound is returned for unknown channel indices.
	ErrChannelNotFound = errors.New("control: channel not found")

	// ErrMissingParam is returned when a required parameter is absent or mistyped.
	ErrMissingParam = errors.New("control: missing or invalid parameter")
)

// DefaultCommandTimeout bounds every stage operation of a command.
const DefaultCommandTimeout = 5 * time.Second

// Dispatcher executes commands against the channels.
type Dispatcher struct {
	channels map[int]*channel.Channel
	sources  *SourceFactory
	timeout  time.Duration
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over channels.
func NewDispatcher(channels []*channel.Channel, bridge BridgeOptions, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		channels: make(map[int]*channel.Channel, len(channels)),
		timeout:  DefaultCommandTimeout,
		logger:   logger.With("component", "dispatcher"),
	}
	for _, c := range channels {
		d.channels[c.Index()] = c
	}
	d.sources = NewSourceFactory(d, bridge)
	return d
}

// Channel returns the channel with the given index.
func (d *Dispatcher) Channel(index int) (*channel.Channel, error) {
	c, ok := d.channels[index]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrChannelNotFound, index)
	}
	return c, nil
}

// Execute runs cmd and returns its response (without timestamp).
func (d *Dispatcher) Execute(ctx context.Context, cmd Command) Response {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	data, err := d.execute(ctx, cmd)
	resp := Response{CommandAck: cmd.Command, Data: data}
	if err != nil {
		d.logger.Warn("command failed", "command", cmd.Command, "channel", cmd.Channel, "layer", cmd.Layer, "error", err)
		resp.Status = "error"
		resp.Error = err.Error()
		return resp
	}
	resp.Status = "success"
	return resp
}

func (d *Dispatcher) execute(ctx context.Context, cmd Command) (map[string]interface{}, error) {
	if cmd.Command == "info" && cmd.Channel == 0 {
		return d.infoAll(ctx)
	}

	c, err := d.Channel(cmd.Channel)
	if err != nil {
		return nil, err
	}
	st := c.Stage()

	switch cmd.Command {
	case "load":
		p, err := d.sources.Create(ctx, stringParam(cmd.Params, "source", ""), c)
		if err != nil {
			return nil, err
		}
		return nil, d.load(ctx, st, cmd.Layer, p, true, -1)

	case "loadbg":
		return nil, d.loadBackground(ctx, c, cmd)

	case "play":
		if _, ok := cmd.Params["source"]; ok {
			if err := d.loadBackground(ctx, c, cmd); err != nil {
				return nil, err
			}
		}
		_, err := st.Play(cmd.Layer).Wait(ctx)
		return nil, err

	case "pause":
		_, err := st.Pause(cmd.Layer).Wait(ctx)
		return nil, err

	case "resume":
		_, err := st.Resume(cmd.Layer).Wait(ctx)
		return nil, err

	case "stop":
		_, err := st.Stop(cmd.Layer).Wait(ctx)
		return nil, err

	case "clear":
		if boolParam(cmd.Params, "all", false) {
			_, err := st.ClearAll().Wait(ctx)
			return nil, err
		}
		_, err := st.Clear(cmd.Layer).Wait(ctx)
		return nil, err

	case "mixer":
		return d.mixer(ctx, st, cmd)

	case "swap":
		return nil, d.swap(ctx, st, cmd)

	case "call":
		param, ok := cmd.Params["param"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: 'param' (expected string)", ErrMissingParam)
		}
		foreground := !boolParam(cmd.Params, "background", false)
		result, err := st.Call(cmd.Layer, foreground, param).Wait(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"result": result}, nil

	case "set_format":
		name := stringParam(cmd.Params, "format", "")
		format, ok := frame.FormatByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown format %q", ErrMissingParam, name)
		}
		return nil, c.SetFormat(ctx, format)

	case "info":
		return d.info(ctx, c, cmd)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Command)
	}
}

func (d *Dispatcher) loadBackground(ctx context.Context, c *channel.Channel, cmd Command) error {
	p, err := d.sources.Create(ctx, stringParam(cmd.Params, "source", ""), c)
	if err != nil {
		return err
	}

	delta := -1
	if boolParam(cmd.Params, "auto", false) {
		delta = intParam(cmd.Params, "auto_play_delta", 0)
	}
	return d.load(ctx, c.Stage(), cmd.Layer, p, false, delta)
}

// load puts p on a layer. A producer the stage refused is closed, so routes
// do not stay subscribed to their source channel.
func (d *Dispatcher) load(ctx context.Context, st *stage.Stage, index int, p producer.Producer, preview bool, autoPlayDelta int) error {
	fut := st.Load(index, p, preview, autoPlayDelta)
	_, err := fut.Wait(ctx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		// still queued; the stage may accept it later
		go func() {
			if fut.Err() != nil {
				discard(p)
			}
		}()
		return err
	}
	discard(p)
	return err
}

func discard(p producer.Producer) {
	if c, ok := p.(io.Closer); ok {
		_ = c.Close()
	}
}

func (d *Dispatcher) mixer(ctx context.Context, st *stage.Stage, cmd Command) (map[string]interface{}, error) {
	if boolParam(cmd.Params, "clear", false) {
		_, err := st.ClearTransforms(cmd.Layer).Wait(ctx)
		return nil, err
	}

	fn, err := transformFunc(cmd.Params)
	if err != nil {
		return nil, err
	}
	duration := intParam(cmd.Params, "duration", 0)
	tweenName := stringParam(cmd.Params, "tween", "linear")

	if _, err := st.ApplyTransform(cmd.Layer, fn, duration, tweenName).Wait(ctx); err != nil {
		return nil, err
	}
	return map[string]interface{}{"duration": duration, "tween": tweenName}, nil
}

// transformFunc builds a TransformFunc touching only the given fields.
func transformFunc(params map[string]interface{}) (stage.TransformFunc, error) {
	var edits []func(*frame.Transform)

	scalars := map[string]func(*frame.Transform, float64){
		"opacity":    func(t *frame.Transform, v float64) { t.Opacity = v },
		"brightness": func(t *frame.Transform, v float64) { t.Brightness = v },
		"contrast":   func(t *frame.Transform, v float64) { t.Contrast = v },
		"saturation": func(t *frame.Transform, v float64) { t.Saturation = v },
		"volume":     func(t *frame.Transform, v float64) { t.Volume = v },
	}
	for key, set := range scalars {
		if raw, ok := params[key]; ok {
			v, ok := raw.(float64)
			if !ok {
				return nil, fmt.Errorf("%w: %q (expected number)", ErrMissingParam, key)
			}
			edits = append(edits, func(t *frame.Transform) { set(t, v) })
		}
	}

	for _, key := range []string{"fill", "clip"} {
		raw, ok := params[key]
		if !ok {
			continue
		}
		v, err := rect(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q %v", ErrMissingParam, key, err)
		}
		if key == "fill" {
			edits = append(edits, func(t *frame.Transform) {
				t.FillTranslation = [2]float64{v[0], v[1]}
				t.FillScale = [2]float64{v[2], v[3]}
			})
		} else {
			edits = append(edits, func(t *frame.Transform) {
				t.ClipTranslation = [2]float64{v[0], v[1]}
				t.ClipScale = [2]float64{v[2], v[3]}
			})
		}
	}

	if raw, ok := params["key"]; ok {
		v, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: \"key\" (expected bool)", ErrMissingParam)
		}
		edits = append(edits, func(t *frame.Transform) { t.IsKey = v })
	}

	if len(edits) == 0 {
		return nil, fmt.Errorf("%w: no transform field given", ErrMissingParam)
	}

	return func(t frame.Transform) frame.Transform {
		for _, edit := range edits {
			edit(&t)
		}
		return t
	}, nil
}

func rect(raw interface{}) ([4]float64, error) {
	var out [4]float64
	list, ok := raw.([]interface{})
	if !ok || len(list) != 4 {
		return out, fmt.Errorf("expected [x, y, scale_x, scale_y]")
	}
	for i, item := range list {
		v, ok := item.(float64)
		if !ok {
			return out, fmt.Errorf("element %d is not a number", i)
		}
		out[i] = v
	}
	return out, nil
}

func (d *Dispatcher) swap(ctx context.Context, st *stage.Stage, cmd Command) error {
	otherIndex, ok := cmd.Params["other_channel"].(float64)
	if !ok {
		return fmt.Errorf("%w: 'other_channel' (expected number)", ErrMissingParam)
	}
	other, err := d.Channel(int(otherIndex))
	if err != nil {
		return err
	}

	if _, ok := cmd.Params["other_layer"]; !ok {
		_, err := st.SwapLayers(other.Stage()).Wait(ctx)
		return err
	}
	otherLayer := intParam(cmd.Params, "other_layer", 0)
	_, err = st.SwapLayer(cmd.Layer, otherLayer, other.Stage()).Wait(ctx)
	return err
}

func (d *Dispatcher) info(ctx context.Context, c *channel.Channel, cmd Command) (map[string]interface{}, error) {
	if boolParam(cmd.Params, "delay", false) {
		return c.Stage().DelayInfo().Wait(ctx)
	}
	if boolParam(cmd.Params, "layer_only", false) {
		return c.Stage().LayerInfo(cmd.Layer).Wait(ctx)
	}
	return c.Info(ctx)
}

func (d *Dispatcher) infoAll(ctx context.Context) (map[string]interface{}, error) {
	indices := make([]int, 0, len(d.channels))
	for i := range d.channels {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	channels := make([]producer.Info, 0, len(indices))
	for _, i := range indices {
		info, err := d.channels[i].Info(ctx)
		if err != nil {
			return nil, err
		}
		channels = append(channels, info)
	}
	return map[string]interface{}{"channels": channels}, nil
}

func stringParam(params map[string]interface{}, key, def string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return def
}

func intParam(params map[string]interface{}, key string, def int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func boolParam(params map[string]interface{}, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}
