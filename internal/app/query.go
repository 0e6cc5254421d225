package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rbright/shotclock/internal/config"
	"github.com/rbright/shotclock/internal/shot"
	"github.com/rbright/shotclock/internal/statusrpc"
)

const watchDialTimeout = 3 * time.Second

func (r Runner) commandHistory(ctx context.Context, cfg config.Config, limit int, asJSON bool) int {
	if !cfg.History.Enable {
		fmt.Fprintln(r.Stderr, "error: shot history is disabled (history.enable = false)")
		return 1
	}

	store, err := openHistory(cfg.History)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer store.Close()

	shots, err := store.Recent(ctx, limit)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if asJSON {
		enc := json.NewEncoder(r.Stdout)
		for _, sh := range shots {
			if err := enc.Encode(sh); err != nil {
				fmt.Fprintf(r.Stderr, "error: encode shot: %v\n", err)
				return 1
			}
		}
		return 0
	}

	if len(shots) == 0 {
		fmt.Fprintln(r.Stdout, "no shots recorded")
		return 0
	}
	for _, sh := range shots {
		fmt.Fprintf(r.Stdout, "%s  %6ss  %-9s  %-7s  %s\n",
			sh.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			shot.Format(sh.Duration),
			sh.Verdict,
			sh.Trigger,
			sh.Device,
		)
	}

	summary, err := store.Summarize(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "%d shots, %d on target, average %ss\n", summary.Count, summary.OnTarget, shot.Format(summary.Average))
	return 0
}

// commandWatch streams extraction status changes until ctx ends or the session goes away.
func (r Runner) commandWatch(ctx context.Context, cfg config.Config, asJSON bool) int {
	client, err := statusrpc.Dial(ctx, cfg.StatusRPC.Address, watchDialTimeout)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer client.Close()

	var printErr error
	err = client.Watch(ctx, statusrpc.ServiceExtraction, func(resp *healthpb.HealthCheckResponse) {
		if printErr != nil {
			return
		}
		if asJSON {
			line, err := statusrpc.FormatJSON(resp)
			if err != nil {
				printErr = err
				return
			}
			fmt.Fprintln(r.Stdout, line)
			return
		}
		fmt.Fprintln(r.Stdout, extractionLabel(resp.GetStatus()))
	})
	if err == nil {
		err = printErr
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func extractionLabel(status healthpb.HealthCheckResponse_ServingStatus) string {
	switch status {
	case healthpb.HealthCheckResponse_SERVING:
		return "extracting"
	case healthpb.HealthCheckResponse_NOT_SERVING:
		return "idle"
	default:
		return "offline"
	}
}
