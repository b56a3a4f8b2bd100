package brainclient

import (
	"context"
	"time"

	"github.com/aravindhsampath/chitti/pkg/wire"
)

const defaultProbeTimeout = 10 * time.Second

// Probe performs one minimal, non-streaming generateContent call to
// verify the brain is reachable and the credential is accepted, without
// registering tools or committing to a real conversation turn. It is
// what backs spec.md §6's "fatal brain error on startup probe" exit-code
// contract: cmd/chitti treats any non-nil error from it as fatal and
// exits with code 2, whatever its taxonomy type.
func (c *Client) Probe(ctx context.Context, model string) error {
	probeCtx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()

	req := wire.NewRequest(model, wire.NewTextInput("ping"))
	req.Stream = false

	_, err := c.SendAndFold(probeCtx, req)
	return err
}
