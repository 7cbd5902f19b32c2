package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/chartmeta/internal/adapters/chartfs"
	"github.com/okian/chartmeta/internal/client"
)

func newSubmitCmd(out io.Writer) *cobra.Command {
	var (
		baseURL string
		wait    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "submit <song directory> <easy> <normal> <hard> <expert> <master>",
		Short: "Queue a song on a running server and print its rows",
		Args:  cobra.ExactArgs(1 + len(chartfs.Difficulties)),
		RunE: func(cmd *cobra.Command, args []string) error {
			levels, err := parseLevels(args[1:])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c := client.New(baseURL)
			sub, err := c.SubmitSong(ctx, args[0], levels)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "batch %s: %d queued, %d duplicate\n", sub.BatchID, sub.Accepted, sub.Duplicates)
			if wait <= 0 || sub.Accepted == 0 {
				return nil
			}

			waitCtx, cancel := context.WithTimeout(ctx, wait)
			defer cancel()
			rows, err := c.WaitForRows(waitCtx, args[0], sub.Accepted)
			if err != nil {
				return err
			}
			for _, r := range rows {
				_, _ = fmt.Fprintln(out, strings.Join(r.Record(), ","))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:9080", "base URL of the chartmeta server")
	cmd.Flags().DurationVar(&wait, "wait", 0, "wait this long for the rows and print them")
	return cmd
}
