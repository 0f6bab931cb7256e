// calmirror pushes local calendar events to a remote CalDAV collection.
// It is a thin demonstration shell around the sync engine; real deployments
// embed the syncer package directly behind their own storage and API.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/mo"
	"github.com/urfave/cli/v2"

	"github.com/calmirror/calmirror/event"
	"github.com/calmirror/calmirror/internal/httpclient"
	"github.com/calmirror/calmirror/storage/memory"
	"github.com/calmirror/calmirror/syncer"
	"github.com/calmirror/calmirror/uid"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "calmirror",
		Usage: "Mirror calendar events to an external CalDAV collection.",
		Commands: []*cli.Command{
			pushCommand(),
			cancelCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

// eventInput is the JSON shape accepted on stdin or via --file. Absent
// keys are no-ops, present-but-empty collections clear.
type eventInput struct {
	ID          int64             `json:"id"`
	CalendarID  *int64            `json:"calendarId,omitempty"`
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	Location    *string           `json:"location,omitempty"`
	StartDate   *time.Time        `json:"startDate,omitempty"`
	EndDate     *time.Time        `json:"endDate,omitempty"`
	Organizer   *event.Organizer  `json:"organizer,omitempty"`
	Attendees   *[]event.Attendee `json:"attendees,omitempty"`
	Resources   *[]event.Resource `json:"resources,omitempty"`
}

func (in eventInput) partial() event.Partial {
	var p event.Partial
	if in.Title != nil {
		p.Title = mo.Some(*in.Title)
	}
	if in.Description != nil {
		p.Description = mo.Some(*in.Description)
	}
	if in.Location != nil {
		p.Location = mo.Some(*in.Location)
	}
	if in.StartDate != nil {
		p.StartDate = mo.Some(*in.StartDate)
	}
	if in.EndDate != nil {
		p.EndDate = mo.Some(*in.EndDate)
	}
	if in.CalendarID != nil {
		p.CalendarID = mo.Some(*in.CalendarID)
	}
	if in.Organizer != nil {
		p.Organizer = mo.Some(*in.Organizer)
	}
	if in.Attendees != nil {
		p.Attendees = mo.Some(*in.Attendees)
	}
	if in.Resources != nil {
		p.Resources = mo.Some(*in.Resources)
	}
	return p
}

func pushCommand() *cli.Command {
	return &cli.Command{
		Name:  "push",
		Usage: "Read an event (JSON) from a file and sync it to the remote collection.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Required: true, Usage: "JSON file describing the event update."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))

			data, err := os.ReadFile(c.String("file"))
			if err != nil {
				return fmt.Errorf("failed to read event file: %w", err)
			}
			var in eventInput
			if err := json.Unmarshal(data, &in); err != nil {
				return fmt.Errorf("failed to parse event file: %w", err)
			}

			s, err := buildSyncer(logger)
			if err != nil {
				return err
			}

			rec, err := s.SyncEvent(c.Context, in.ID, in.partial())
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			logger.Info("event synced",
				"uid", rec.UID,
				"sequence", rec.Sequence,
				"object_url", rec.ObjectURL)
			return nil
		},
	}
}

func cancelCommand() *cli.Command {
	return &cli.Command{
		Name:  "cancel",
		Usage: "Issue a CANCEL payload for a previously synced event.",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "id", Required: true, Usage: "Local event id."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))

			s, err := buildSyncer(logger)
			if err != nil {
				return err
			}

			rec, err := s.CancelEvent(c.Context, c.Int64("id"))
			if err != nil {
				return fmt.Errorf("cancel failed: %w", err)
			}

			logger.Info("event cancelled",
				"uid", rec.UID,
				"sequence", rec.Sequence)
			return nil
		},
	}
}

func buildSyncer(logger *slog.Logger) (*syncer.Syncer, error) {
	collection := os.Getenv("CALDAV_COLLECTION_URL")
	if collection == "" {
		return nil, fmt.Errorf("CALDAV_COLLECTION_URL environment variable not set")
	}
	baseURL, err := url.Parse(collection)
	if err != nil {
		return nil, fmt.Errorf("invalid CALDAV_COLLECTION_URL: %w", err)
	}

	transport := httpclient.NewBasicAuthTransport(
		os.Getenv("CALDAV_USERNAME"),
		os.Getenv("CALDAV_PASSWORD"),
		nil,
		logger,
	)
	client, err := httpclient.NewHttpClientWrapper(&http.Client{Transport: transport}, *baseURL, logger)
	if err != nil {
		return nil, err
	}

	store := memory.New()
	mappings := uid.NewTieredStore(uid.NewDurableStore(store), nil, logger)
	allocator := uid.NewAllocator(mappings, uid.WithLogger(logger))

	return syncer.New(store, allocator, client, syncer.Config{CollectionURL: collection}, logger), nil
}

func setupLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
	return logger
}
