// Package framebridge hands frames between independently clocked pipelines.
//
// Core Philosophy: "The consumer's tick never waits on the producer's."
//
// A Bridge is a small bounded queue plus a one-shot "first frame available"
// barrier:
//   - Send is non-blocking; a full bridge drops the new frame
//   - Receive is non-blocking; an empty bridge yields frame.Late()
//   - BlockUntilFirstFrame waits (bounded) for the first accepted Send so a
//     consumer does not start on an artificially empty stream
//   - Stop closes the bridge; Receive then yields frame.EOF()
//
// Two producers are built on it:
//
//	LayerProducer    re-consumes one layer of a stage (capacity 2)
//	ChannelProducer  re-consumes a channel's composited output (capacity 3),
//	                 duplicating or skipping frames when the two channel
//	                 rates differ by exactly 2x
//
// Usage:
//
//	p, err := framebridge.NewChannelProducer(channel1.Output(), channel2)
//	if err != nil {
//	    return err
//	}
//	channel2.Stage().Load(10, p, false, 0)
package framebridge
