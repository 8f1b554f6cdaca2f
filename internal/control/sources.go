package control

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/e7canasta/orion-playout/modules/channel"
	"github.com/e7canasta/orion-playout/modules/framebridge"
	"github.com/e7canasta/orion-playout/modules/producer"
)

const routePrefix = "route://"

// BridgeOptions sizes the bridges created for routes.
type BridgeOptions struct {
	LayerCapacity     int
	ChannelCapacity   int
	FirstFrameTimeout time.Duration
}

// ChannelLookup resolves channel indices.
type ChannelLookup interface {
	Channel(index int) (*channel.Channel, error)
}

// SourceFactory creates producers from source strings:
//
//	route://N     the composited output of channel N
//	route://N-L   layer L of channel N
//	#AARRGGBB     a solid colour (also #RRGGBB and names such as RED)
type SourceFactory struct {
	channels ChannelLookup
	opts     BridgeOptions
}

// NewSourceFactory creates a factory resolving routes through channels.
func NewSourceFactory(channels ChannelLookup, opts BridgeOptions) *SourceFactory {
	return &SourceFactory{channels: channels, opts: opts}
}

// Create builds the producer for source, to be played on dst.
func (f *SourceFactory) Create(ctx context.Context, source string, dst *channel.Channel) (producer.Producer, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("%w: 'source'", ErrMissingParam)
	}

	if strings.HasPrefix(strings.ToLower(source), routePrefix) {
		return f.route(ctx, source[len(routePrefix):], dst)
	}

	c, err := producer.ParseColor(source)
	if err != nil {
		return nil, fmt.Errorf("unsupported source %q: %w", source, err)
	}
	return producer.NewColor(dst.Format(), c), nil
}

func (f *SourceFactory) route(ctx context.Context, target string, dst *channel.Channel) (producer.Producer, error) {
	channelPart, layerPart, hasLayer := strings.Cut(target, "-")

	index, err := strconv.Atoi(channelPart)
	if err != nil {
		return nil, fmt.Errorf("invalid route %q: %w", target, err)
	}
	src, err := f.channels.Channel(index)
	if err != nil {
		return nil, err
	}

	if !hasLayer {
		p, err := framebridge.NewChannelProducer(src.Output(), dst, f.bridgeOptions(f.opts.ChannelCapacity)...)
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	layer, err := strconv.Atoi(layerPart)
	if err != nil {
		return nil, fmt.Errorf("invalid route layer %q: %w", target, err)
	}
	p, err := framebridge.NewLayerProducer(ctx, src.Stage(), layer, f.bridgeOptions(f.opts.LayerCapacity)...)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (f *SourceFactory) bridgeOptions(capacity int) []framebridge.Option {
	var opts []framebridge.Option
	if capacity > 0 {
		opts = append(opts, framebridge.WithCapacity(capacity))
	}
	if f.opts.FirstFrameTimeout > 0 {
		opts = append(opts, framebridge.WithFirstFrameTimeout(f.opts.FirstFrameTimeout))
	}
	return opts
}
