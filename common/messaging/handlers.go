package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// EnsureStream makes sure a JetStream stream exists and carries the given
// subjects, creating or widening it as needed. The progress stream is
// ensured this way at startup so workflow events survive broker restarts.
func EnsureStream(ctx context.Context, client *NatsBroker, name string, subjects []string) (jetstream.Stream, error) {
	stream, err := client.GetStream(ctx, name)
	if err != nil {
		if !errors.Is(err, jetstream.ErrStreamNotFound) && !strings.Contains(err.Error(), "stream not found") {
			log.Error().Err(err).Str("stream", name).Msg("Failed to get stream")
			return nil, err
		}
		return client.CreateStream(ctx, jetstream.StreamConfig{
			Name:     name,
			Subjects: subjects,
		})
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream info: %w", err)
	}

	config := info.Config
	subjectSet := make(map[string]struct{}, len(config.Subjects))
	for _, s := range config.Subjects {
		subjectSet[s] = struct{}{}
	}

	missing := false
	for _, s := range subjects {
		if _, ok := subjectSet[s]; !ok {
			missing = true
			config.Subjects = append(config.Subjects, s)
		}
	}
	if !missing {
		return stream, nil
	}

	log.Info().Strs("subjects", config.Subjects).Str("stream", name).Msg("Widening stream subjects")
	return client.CreateStream(ctx, config)
}
