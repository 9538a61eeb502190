// worshipctl is the operator CLI for the seeding queue: enqueue candidate
// tracks, albums or playlists, and inspect job status.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ItsAltus/Worshipify/internal/client"
	"github.com/ItsAltus/Worshipify/internal/config"
	"github.com/ItsAltus/Worshipify/internal/model"
	"github.com/ItsAltus/Worshipify/internal/service"
	"github.com/ItsAltus/Worshipify/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "worshipctl",
		Short:         "Manage the Worshipify seeding queue",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newEnqueueCmd())
	root.AddCommand(newStatusCmd())
	return root
}

func openQueueService() (*service.QueueService, *store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	st, err := store.Open(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := st.AutoMigrate(); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}
	return service.NewQueueService(st, client.NewSpotifyClient(&cfg.Spotify)), st, nil
}

func newEnqueueCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "enqueue <spotify-id>",
		Short: "Add a track, album or playlist to the seeding queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, st, err := openQueueService()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			var resp *model.EnqueueResponse
			switch kind {
			case "track":
				resp, err = svc.EnqueueTrack(ctx, args[0])
			case "album":
				resp, err = svc.EnqueueAlbum(ctx, args[0])
			case "playlist":
				resp, err = svc.EnqueuePlaylist(ctx, args[0])
			default:
				return fmt.Errorf("unknown kind %q (want track, album or playlist)", kind)
			}
			if err != nil {
				return err
			}

			fmt.Printf("Enqueued %d job(s) from %s %s\n", resp.Enqueued, kind, args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "track", "what the ID refers to: track, album or playlist")
	return cmd
}

func newStatusCmd() *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "List seeding jobs, optionally filtered by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status := model.JobStatus(strings.ToLower(statusFilter))
			switch status {
			case "", model.JobStatusPending, model.JobStatusProcessing, model.JobStatusDone, model.JobStatusFailed:
			default:
				return fmt.Errorf("unknown status %q", statusFilter)
			}

			svc, st, err := openQueueService()
			if err != nil {
				return err
			}
			defer st.Close()

			jobs, err := svc.List(status)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Println("Queue is empty.")
				return nil
			}

			for _, job := range jobs {
				lastError := ""
				if job.LastError != nil {
					lastError = *job.LastError
				}
				fmt.Printf("%5d  %-24s %-10s %-16s attempts=%d  %s\n",
					job.ID, job.TrackRef, job.Status, job.Source, job.AttemptCount, lastError)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "filter by status: pending, processing, done or failed")
	return cmd
}
