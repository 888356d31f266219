package logseq

import (
	"bytes"
	"context"

	"go.uber.org/zap"
)

// Converter turns native EDN output into JSON with `jet --to json`.
type Converter struct {
	Path   string
	Runner Runner
	Logger *zap.Logger
}

// ToJSON pipes edn through the converter and returns its stdout.
// A non-zero exit is reported as ErrConversionFailed carrying stderr.
func (c *Converter) ToJSON(ctx context.Context, edn []byte) ([]byte, error) {
	res, err := c.Runner.Run(ctx, c.Path, []string{"--to", "json"}, bytes.NewReader(edn))
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, newError(ErrConversionFailed, "convert", res.Stderr, nil)
	}

	if c.Logger != nil {
		c.Logger.Debug("converted result",
			zap.Int("edn_bytes", len(edn)),
			zap.Int("json_bytes", len(res.Stdout)),
		)
	}
	return []byte(res.Stdout), nil
}
