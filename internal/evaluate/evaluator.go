package evaluate

import (
	"fmt"
	"log/slog"

	"github.com/ux3d/ANARI-SDK/internal/scene"
	"github.com/ux3d/ANARI-SDK/internal/value"
)

// Evaluator evaluates every channel of a test instance.
type Evaluator struct {
	Methods    []string
	Thresholds map[string]float64
	Logger     *slog.Logger
}

// Outcome is the evaluation of one instance.
type Outcome struct {
	// Channels maps a channel name to its result. Skipped channels are
	// absent.
	Channels map[string]ChannelResult

	// Skipped holds one message per skipped channel.
	Skipped []string
}

// Failed reports whether any channel failed a threshold.
func (o Outcome) Failed() bool {
	for _, r := range o.Channels {
		if r.Failed() {
			return true
		}
	}
	return false
}

// ToValue encodes the outcome as channel → evaluation node.
func (o Outcome) ToValue() value.Object {
	out := value.Object{}
	for channel, r := range o.Channels {
		out[channel] = r.ToValue()
	}
	return out
}

// Evaluate scores the instance's candidates found in candidates against
// the references found in references. Missing files and unreadable
// images skip the channel.
func (e *Evaluator) Evaluate(in scene.Instance, references, candidates []string) Outcome {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	out := Outcome{Channels: map[string]ChannelResult{}}
	skip := func(channel, reason string) {
		msg := fmt.Sprintf("%s: skipping %s channel: %s", in.Stem(), channel, reason)
		logger.Warn("channel skipped", "instance", in.Stem(), "channel", channel, "reason", reason)
		out.Skipped = append(out.Skipped, msg)
	}

	stem := in.Stem()
	for _, channel := range scene.Channels {
		refName := scene.ReferenceName(stem, channel)
		refPath, ok := Find(references, refName)
		if !ok {
			skip(channel, "reference image "+refName+" not found")
			continue
		}
		candName := scene.ImageName(stem, channel)
		candPath, ok := Find(candidates, candName)
		if !ok {
			skip(channel, "candidate image "+candName+" not found")
			continue
		}

		res, err := EvaluateFiles(refPath, candPath, MethodsFor(channel, e.Methods), e.Thresholds)
		if err != nil {
			skip(channel, err.Error())
			continue
		}
		out.Channels[channel] = res
	}
	return out
}
